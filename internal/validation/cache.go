package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/fluxfilter/internal/schema"
)

// ErrUnknownID is returned for ids that no entity maps to
var ErrUnknownID = errors.New("unknown validation id")

// namespace for name-based validation ids
var idNamespace = uuid.NewMD5(uuid.NameSpaceOID, []byte("fluxfilter.validation"))

// entityLister is implemented by providers that can enumerate their entities
type entityLister interface {
	EntityNames() []string
}

// Cache holds the two lookup tables: entity name to id, and id to rules.
// Entries are computed on first use. Concurrent first lookups may compute an
// entry more than once; every computation yields the same content.
type Cache struct {
	schema  schema.Provider
	devMode bool

	ids      sync.Map // entity name -> id
	entities sync.Map // id -> entity name
	rules    sync.Map // id -> Rules
}

// NewCache creates a cache over p. In dev mode rules are recomputed on every
// lookup so schema edits show up without a restart.
func NewCache(p schema.Provider, devMode bool) *Cache {
	return &Cache{schema: p, devMode: devMode}
}

// ID returns the opaque id of an entity. Keys are copied before they are
// stored, callers may pass strings backed by reused request buffers.
func (c *Cache) ID(entity string) (string, error) {
	if id, ok := c.ids.Load(entity); ok {
		return id.(string), nil
	}

	if _, err := c.schema.Entity(entity); err != nil {
		return "", err
	}

	entity = strings.Clone(entity)
	id := EntityID(entity)
	c.ids.Store(entity, id)
	c.entities.Store(id, entity)
	return id, nil
}

// Rules returns the rule map for an id previously returned by ID. Ids of
// entities the provider can enumerate are also accepted before ID was called.
func (c *Cache) Rules(id string) (Rules, error) {
	if !c.devMode {
		if rules, ok := c.rules.Load(id); ok {
			return rules.(Rules), nil
		}
	}

	name, ok := c.entityFor(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownID, id)
	}

	entity, err := c.schema.Entity(name)
	if err != nil {
		return nil, err
	}

	rules := BuildRules(entity)
	c.rules.Store(strings.Clone(id), rules)

	log.Debug().
		Str("entity", name).
		Str("id", id).
		Int("fields", len(rules)).
		Msg("Computed validation rules")

	return rules, nil
}

func (c *Cache) entityFor(id string) (string, bool) {
	if name, ok := c.entities.Load(id); ok {
		return name.(string), true
	}

	lister, ok := c.schema.(entityLister)
	if !ok {
		return "", false
	}
	for _, name := range lister.EntityNames() {
		if EntityID(name) == id {
			c.ids.Store(name, id)
			c.entities.Store(id, name)
			return name, true
		}
	}
	return "", false
}

// EntityID derives the stable id of an entity name
func EntityID(entity string) string {
	u := uuid.NewMD5(idNamespace, []byte(entity))
	return strings.ReplaceAll(u.String(), "-", "")
}
