package api

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fluxbase-eu/fluxfilter/internal/middleware"
	"github.com/fluxbase-eu/fluxfilter/internal/observability"
	"github.com/fluxbase-eu/fluxfilter/internal/query"
)

// PageResponse describes the requested page
type PageResponse struct {
	Index          int  `json:"index"` // zero-based
	Size           int  `json:"size"`
	Offset         int  `json:"offset"`
	ExplicitOffset bool `json:"explicit_offset"`
}

// QueryResponse is the parsed form of a query string, ready for a query
// builder to turn into a datastore query
type QueryResponse struct {
	Entity  string          `json:"entity"`
	Filters query.FilterSet `json:"filters"`
	Paged   bool            `json:"paged"`
	Page    *PageResponse   `json:"page,omitempty"`
	Sort    query.Sort      `json:"sort"`
}

// NewQueryResponse converts parser output into its wire form
func NewQueryResponse(entity string, params *query.QueryParams) QueryResponse {
	resp := QueryResponse{
		Entity:  entity,
		Filters: params.Filters,
		Paged:   params.Paged(),
		Sort:    params.Sort,
	}
	if resp.Filters == nil {
		resp.Filters = query.FilterSet{}
	}
	if resp.Sort == nil {
		resp.Sort = query.Sort{}
	}
	if params.Page != nil {
		resp.Page = &PageResponse{
			Index:          params.Page.Page,
			Size:           params.Page.Size,
			Offset:         params.Page.Offset(),
			ExplicitOffset: params.Page.ExplicitOffset != nil,
		}
	}
	return resp
}

// queryValues decodes the raw query string. Repeated keys keep every value.
func queryValues(c *fiber.Ctx) (url.Values, error) {
	return url.ParseQuery(string(c.Request().URI().QueryString()))
}

// handleQuery parses filter, paging and sort parameters for an entity
// GET /api/v1/query/:entity
func (s *Server) handleQuery(c *fiber.Ctx) error {
	entity := c.Params("entity")
	c.Locals(middleware.LocalEntity, entity)
	middleware.SetSpanAttributes(c, attribute.String("query.entity", entity))

	values, err := queryValues(c)
	if err != nil {
		return SendErrorWithCode(c, fiber.StatusBadRequest, "Malformed query string", CodeInvalidQuery, err.Error())
	}

	ctx, span := observability.StartParseSpan(middleware.TraceContext(c), entity)
	params, err := s.parser.Parse(entity, values)
	if err != nil {
		observability.EndParseSpan(span, 0, false, err)
		return handleEngineError(c, err, "parse query")
	}
	observability.SetSpanAttributes(ctx, attribute.String("query.sort", params.Sort.String()))
	observability.EndParseSpan(span, len(params.Filters), params.Paged(), nil)

	c.Locals(middleware.LocalFilterCount, len(params.Filters))

	return c.JSON(NewQueryResponse(entity, params))
}
