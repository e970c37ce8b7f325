package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Paging and sorting request parameters
const (
	ParamRows  = "rows"
	ParamPage  = "page"
	ParamStart = "start"
	ParamSidx  = "sidx"
	ParamSord  = "sord"
)

// Defaults used when a PageSortBuilder field is left zero
const (
	DefaultRows = 20
	DefaultSort = "id"
)

// PageSortBuilder builds page and sort descriptors from request parameters.
//
//	rows   page size, default 20; negative disables paging
//	page   1-based page number, default 1
//	start  1-based record position; overrides page
//	sidx   comma separated sort keys, each optionally followed by a direction
//	sord   default direction for keys without one
type PageSortBuilder struct {
	DefaultRows int
	// MaxRows caps rows when positive
	MaxRows     int
	DefaultSort string
}

// BuildPageRequest returns nil, nil when the caller asked for an unpaged
// result. A non-nil sort is used as is and sidx/sord are ignored.
func (b PageSortBuilder) BuildPageRequest(params url.Values, sort Sort) (*PageRequest, error) {
	rows := b.DefaultRows
	if rows == 0 {
		rows = DefaultRows
	}
	if raw := strings.TrimSpace(params.Get(ParamRows)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: rows %q", ErrInvalidPagination, raw)
		}
		rows = n
	}

	if rows < 0 {
		return nil, nil
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: rows must not be zero", ErrInvalidPagination)
	}

	if b.MaxRows > 0 && rows > b.MaxRows {
		log.Debug().
			Int("requested", rows).
			Int("max", b.MaxRows).
			Msg("Rows capped to max_rows")
		rows = b.MaxRows
	}

	req := &PageRequest{Size: rows}
	page := 1

	if raw := strings.TrimSpace(params.Get(ParamStart)); raw != "" {
		start, err := strconv.Atoi(raw)
		if err != nil || start < 1 {
			return nil, fmt.Errorf("%w: start %q", ErrInvalidPagination, raw)
		}
		offset := start - 1
		page = offset/rows + 1
		req.ExplicitOffset = &offset
	} else if raw := strings.TrimSpace(params.Get(ParamPage)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: page %q", ErrInvalidPagination, raw)
		}
		page = n
	}
	req.Page = page - 1

	if sort == nil {
		sort = b.BuildSort(params)
	}
	req.Sort = sort

	return req, nil
}

// BuildSort parses sidx and sord. A key naming an OR-group sorts on its
// first property.
func (b PageSortBuilder) BuildSort(params url.Values) Sort {
	sidx := strings.TrimSpace(params.Get(ParamSidx))
	if sidx == "" {
		sidx = b.DefaultSort
		if sidx == "" {
			sidx = DefaultSort
		}
	}
	defaultDir := ParseDirection(params.Get(ParamSord))

	var sort Sort
	for _, item := range strings.Split(sidx, ",") {
		fields := strings.Fields(item)
		if len(fields) == 0 {
			continue
		}

		name := fields[0]
		if i := strings.Index(name, OrSeparator); i >= 0 {
			name = name[:i]
		}

		dir := defaultDir
		if len(fields) > 1 {
			dir = ParseDirection(fields[1])
		}
		sort = append(sort, Order{Property: name, Direction: dir})
	}
	return sort
}
