package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fluxbase-eu/fluxfilter/internal/query"
	"github.com/fluxbase-eu/fluxfilter/internal/schema"
)

// EntityResponse describes one entity
type EntityResponse struct {
	Name       string             `json:"name"`
	Label      string             `json:"label,omitempty"`
	Properties []*schema.Property `json:"properties"`
}

// handleListEntities returns the registered entity names, one page at a time.
// Paging and sort use the same rows/page/start/sidx/sord parameters as
// queries; name is the only sort key.
// GET /api/v1/entities
func (s *Server) handleListEntities(c *fiber.Ctx) error {
	values, err := queryValues(c)
	if err != nil {
		return SendErrorWithCode(c, fiber.StatusBadRequest, "Malformed query string", CodeInvalidQuery, err.Error())
	}

	names := s.catalog.EntityNames()

	pages := s.parser.PageSort()
	pages.DefaultSort = "name"
	page, err := pages.BuildPageRequest(values, nil)
	if err != nil {
		return handleEngineError(c, err, "list entities")
	}

	sort := pages.BuildSort(values)
	if page != nil {
		sort = page.Sort
	}
	for _, order := range sort {
		if order.Property != "name" {
			return SendErrorWithCode(c, fiber.StatusBadRequest, "Invalid sort", CodeInvalidQuery,
				"entities can only be sorted by name, got "+order.Property)
		}
	}
	if len(sort) > 0 && sort[0].Direction == query.Desc {
		reversed := make([]string, len(names))
		for i, name := range names {
			reversed[len(names)-1-i] = name
		}
		names = reversed
	}

	return c.JSON(query.Paginate(names, page))
}

// handleGetEntity describes one entity
// GET /api/v1/entities/:entity
func (s *Server) handleGetEntity(c *fiber.Ctx) error {
	entity, err := s.catalog.Entity(c.Params("entity"))
	if err != nil {
		return handleEngineError(c, err, "get entity")
	}

	return c.JSON(EntityResponse{
		Name:       entity.Name,
		Label:      entity.Label,
		Properties: entity.Properties(),
	})
}
