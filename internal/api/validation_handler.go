package api

import (
	"github.com/gofiber/fiber/v2"
)

// handleValidationID returns the opaque validation id of an entity
// GET /api/v1/validation/:entity/id
func (s *Server) handleValidationID(c *fiber.Ctx) error {
	entity := c.Params("entity")

	id, err := s.rules.ID(entity)
	if err != nil {
		return handleEngineError(c, err, "get validation id")
	}

	return c.JSON(fiber.Map{
		"entity": entity,
		"id":     id,
	})
}

// handleValidationRules returns the field rule map behind a validation id
// GET /api/v1/validation/rules/:id
func (s *Server) handleValidationRules(c *fiber.Ctx) error {
	rules, err := s.rules.Rules(c.Params("id"))
	if err != nil {
		return handleEngineError(c, err, "get validation rules")
	}

	// Cacheable: an id always maps to the same rules
	if !s.config.Validation.DevMode {
		c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	}

	return c.JSON(rules)
}
