package query

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/fluxfilter/internal/config"
	"github.com/fluxbase-eu/fluxfilter/internal/schema"
)

// QueryParams is everything extracted from one request
type QueryParams struct {
	Filters FilterSet
	// Page is nil when paging was disabled with a negative rows value
	Page *PageRequest
	Sort Sort
}

// Paged reports whether the caller asked for a single page
func (p *QueryParams) Paged() bool {
	return p.Page != nil
}

// Parser runs filter building and page/sort building over request parameters
type Parser struct {
	schema  schema.Provider
	builder *Builder
	pages   PageSortBuilder
}

// NewParser creates a parser from the query configuration
func NewParser(cfg *config.QueryConfig, p schema.Provider, rec Recorder) (*Parser, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	coercer := &Coercer{
		Enums:          p,
		Location:       loc,
		FirstValueOnly: cfg.FirstValueCoercion,
		Recorder:       rec,
	}
	if cfg.FirstValueCoercion {
		log.Warn().Msg("query.first_value_coercion is enabled: multi-value filters reuse their first value")
	}

	builder := NewBuilder(p, coercer)
	if cfg.FilterPrefix != "" || cfg.FilterSuffix != "" {
		builder.WithDecoration(cfg.FilterPrefix, cfg.FilterSuffix)
	}

	return &Parser{
		schema:  p,
		builder: builder,
		pages: PageSortBuilder{
			DefaultRows: cfg.DefaultRows,
			MaxRows:     cfg.MaxRows,
			DefaultSort: cfg.DefaultSort,
		},
	}, nil
}

// Parse builds filters, page and sort for the named entity
func (qp *Parser) Parse(entity string, values url.Values) (*QueryParams, error) {
	if _, err := qp.schema.Entity(entity); err != nil {
		return nil, err
	}

	filters, err := qp.builder.Build(entity, values)
	if err != nil {
		return nil, err
	}

	page, err := qp.pages.BuildPageRequest(values, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid paging parameters: %w", err)
	}

	params := &QueryParams{Filters: filters, Page: page}
	if page != nil {
		params.Sort = page.Sort
	} else {
		params.Sort = qp.pages.BuildSort(values)
	}

	return params, nil
}

// PageSort returns the page/sort builder used by the parser
func (qp *Parser) PageSort() PageSortBuilder {
	return qp.pages
}
