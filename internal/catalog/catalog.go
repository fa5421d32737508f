// Package catalog resolves product-specific specifications (PSS) for
// plant/line/product keys. A key with no configured specification surfaces
// blend.ErrSpecificationNotFound; it is never silently treated as
// "no constraint".
package catalog

import (
	"context"
	"fmt"
	"sync"

	"blend-quality-service/internal/blend"
	"blend-quality-service/internal/models"
)

// Catalog looks up the specification applicable to a plant/line/product.
type Catalog interface {
	Resolve(ctx context.Context, key models.SpecKey) (models.Specification, error)
}

// Memory is an immutable in-memory Catalog, loaded once at startup. Safe for
// concurrent use.
type Memory struct {
	mu    sync.RWMutex
	specs map[models.SpecKey]models.Specification
}

// NewMemory builds a Memory catalog from a specification list. Later entries
// with a duplicate key overwrite earlier ones.
func NewMemory(specs []models.Specification) *Memory {
	m := &Memory{specs: make(map[models.SpecKey]models.Specification, len(specs))}
	for _, s := range specs {
		m.specs[s.Key] = s
	}
	return m
}

// Resolve returns the specification for key or ErrSpecificationNotFound.
func (m *Memory) Resolve(_ context.Context, key models.SpecKey) (models.Specification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	spec, ok := m.specs[key]
	if !ok {
		return models.Specification{}, fmt.Errorf("%w: %s/%s/%s",
			blend.ErrSpecificationNotFound, key.PlantName, key.PlantLine, key.ProductName)
	}
	return spec, nil
}

// Replace swaps the full specification set, for reload-on-signal setups.
func (m *Memory) Replace(specs []models.Specification) {
	next := make(map[models.SpecKey]models.Specification, len(specs))
	for _, s := range specs {
		next[s.Key] = s
	}
	m.mu.Lock()
	m.specs = next
	m.mu.Unlock()
}

// Keys returns every configured specification key.
func (m *Memory) Keys() []models.SpecKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]models.SpecKey, 0, len(m.specs))
	for k := range m.specs {
		keys = append(keys, k)
	}
	return keys
}
