// Package attrindex evaluates structured attribute compatibility between
// problems and recipes. Each tenant keeps an inverted index from
// (attribute key, value) to entity ids alongside the raw attribute
// document per entity. Safety flags are held separately: a safety
// exclusion is a hard drop, every other attribute only shifts ranking
// weight.
package attrindex

import (
	"sync"

	"github.com/google/uuid"

	"github.com/craftwise/craftwise-backend/internal/platform/logger"
)

// Doc maps attribute names to their admissible values. A key absent from
// an entity's doc means the entity is unconstrained on that attribute.
type Doc map[string][]string

type tenantIndex struct {
	mu       sync.RWMutex
	docs     map[uuid.UUID]Doc
	safety   map[uuid.UUID]map[string]struct{}
	inverted map[string]map[string]map[uuid.UUID]struct{}
}

// Index is safe for concurrent use; tenants are synchronized
// independently.
type Index struct {
	log *logger.Logger

	mu      sync.RWMutex
	tenants map[uuid.UUID]*tenantIndex
}

func New(log *logger.Logger) *Index {
	return &Index{
		log:     log.With("component", "attrindex"),
		tenants: make(map[uuid.UUID]*tenantIndex),
	}
}

func (ix *Index) tenantFor(tenant uuid.UUID, create bool) *tenantIndex {
	ix.mu.RLock()
	ti := ix.tenants[tenant]
	ix.mu.RUnlock()
	if ti != nil || !create {
		return ti
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ti = ix.tenants[tenant]; ti == nil {
		ti = &tenantIndex{
			docs:     make(map[uuid.UUID]Doc),
			safety:   make(map[uuid.UUID]map[string]struct{}),
			inverted: make(map[string]map[string]map[uuid.UUID]struct{}),
		}
		ix.tenants[tenant] = ti
	}
	return ti
}

// Put indexes (or replaces) the attribute document and declared safety
// flags for an entity.
func (ix *Index) Put(tenant, entityID uuid.UUID, doc Doc, safetyFlags []string) {
	ti := ix.tenantFor(tenant, true)
	ti.mu.Lock()
	defer ti.mu.Unlock()

	ti.removeLocked(entityID)

	stored := make(Doc, len(doc))
	for key, values := range doc {
		vals := append([]string(nil), values...)
		stored[key] = vals
		for _, v := range vals {
			byValue := ti.inverted[key]
			if byValue == nil {
				byValue = make(map[string]map[uuid.UUID]struct{})
				ti.inverted[key] = byValue
			}
			ids := byValue[v]
			if ids == nil {
				ids = make(map[uuid.UUID]struct{})
				byValue[v] = ids
			}
			ids[entityID] = struct{}{}
		}
	}
	ti.docs[entityID] = stored

	flags := make(map[string]struct{}, len(safetyFlags))
	for _, f := range safetyFlags {
		flags[f] = struct{}{}
	}
	ti.safety[entityID] = flags
}

// Remove drops the entity from the tenant's index.
func (ix *Index) Remove(tenant, entityID uuid.UUID) {
	ti := ix.tenantFor(tenant, false)
	if ti == nil {
		return
	}
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.removeLocked(entityID)
}

func (ti *tenantIndex) removeLocked(entityID uuid.UUID) {
	doc, ok := ti.docs[entityID]
	if ok {
		for key, values := range doc {
			for _, v := range values {
				if byValue := ti.inverted[key]; byValue != nil {
					delete(byValue[v], entityID)
					if len(byValue[v]) == 0 {
						delete(byValue, v)
					}
				}
			}
			if len(ti.inverted[key]) == 0 {
				delete(ti.inverted, key)
			}
		}
	}
	delete(ti.docs, entityID)
	delete(ti.safety, entityID)
}

// Matches reports whether the entity is superset-compatible with the
// required attributes: every required key either overlaps the entity's
// values or the entity leaves the key unconstrained.
func (ix *Index) Matches(tenant, entityID uuid.UUID, required Doc) bool {
	ti := ix.tenantFor(tenant, false)
	if ti == nil {
		return len(required) == 0
	}
	ti.mu.RLock()
	defer ti.mu.RUnlock()

	doc, ok := ti.docs[entityID]
	if !ok {
		return len(required) == 0
	}
	for key, wanted := range required {
		have, constrained := doc[key]
		if !constrained {
			continue
		}
		if !overlaps(have, wanted) {
			return false
		}
	}
	return true
}

// SoftScore grades attribute compatibility in [0,1] for ranking. Keys the
// entity explicitly satisfies count fully, keys it leaves unconstrained
// count half, and any explicit conflict floors the score at zero. An
// empty requirement scores a neutral 1.
func (ix *Index) SoftScore(tenant, entityID uuid.UUID, required Doc) float64 {
	if len(required) == 0 {
		return 1
	}
	ti := ix.tenantFor(tenant, false)
	if ti == nil {
		return 0.5
	}
	ti.mu.RLock()
	defer ti.mu.RUnlock()

	doc, ok := ti.docs[entityID]
	if !ok {
		return 0.5
	}
	var score float64
	for key, wanted := range required {
		have, constrained := doc[key]
		switch {
		case !constrained:
			score += 0.5
		case overlaps(have, wanted):
			score += 1
		default:
			return 0
		}
	}
	return score / float64(len(required))
}

// Excluded reports whether any of the entity's declared safety flags
// appears in the exclusion set. Excluded entities are dropped outright,
// never deprioritized.
func (ix *Index) Excluded(tenant, entityID uuid.UUID, excludedFlags []string) bool {
	if len(excludedFlags) == 0 {
		return false
	}
	ti := ix.tenantFor(tenant, false)
	if ti == nil {
		return false
	}
	ti.mu.RLock()
	defer ti.mu.RUnlock()

	declared := ti.safety[entityID]
	for _, f := range excludedFlags {
		if _, hit := declared[f]; hit {
			return true
		}
	}
	return false
}

// Candidates returns the ids of all indexed entities compatible with the
// required attributes. The inverted index drives the filter: for each
// required key, its postings name every entity constrained on the key,
// and only those outside the wanted values' postings are dropped.
// Entities with no posting under a key are unconstrained on it and pass.
func (ix *Index) Candidates(tenant uuid.UUID, required Doc) map[uuid.UUID]struct{} {
	ti := ix.tenantFor(tenant, false)
	if ti == nil {
		return nil
	}
	ti.mu.RLock()
	defer ti.mu.RUnlock()

	dropped := make(map[uuid.UUID]struct{})
	for key, wanted := range required {
		byValue := ti.inverted[key]
		if byValue == nil {
			continue
		}
		matched := make(map[uuid.UUID]struct{})
		for _, v := range wanted {
			for id := range byValue[v] {
				matched[id] = struct{}{}
			}
		}
		for _, ids := range byValue {
			for id := range ids {
				if _, hit := matched[id]; !hit {
					dropped[id] = struct{}{}
				}
			}
		}
	}

	out := make(map[uuid.UUID]struct{}, len(ti.docs))
	for id := range ti.docs {
		if _, gone := dropped[id]; !gone {
			out[id] = struct{}{}
		}
	}
	return out
}

func overlaps(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, hit := set[v]; hit {
			return true
		}
	}
	return false
}
