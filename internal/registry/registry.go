package registry

import (
	"errors"
	"fmt"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/invariant"
)

// ErrNotFound is returned when an id is not registered. It is an expected
// outcome for handles that outlived their entity.
var ErrNotFound = errors.New("registry: entity not found")

// Entity is anything the registry can own.
type Entity interface {
	RegistryID() ID
}

// Membership is a category-specific list that may hold a reference to an
// entity. Detach is called for every membership when the entity is removed.
type Membership interface {
	Detach(id ID)
}

// MembershipFunc adapts a function into a Membership.
type MembershipFunc func(id ID)

func (f MembershipFunc) Detach(id ID) {
	if f != nil {
		f(id)
	}
}

// Registry maps global ids to live entities. It is owned by a single
// simulation goroutine and performs no locking.
type Registry struct {
	entities    map[ID]Entity
	used        [numCategories][CategorySize]bool
	counts      [numCategories]int
	memberships []Membership
}

func New() *Registry {
	return &Registry{entities: make(map[ID]Entity)}
}

// Attach adds a membership list that is detached from on every removal.
func (r *Registry) Attach(m Membership) {
	if m == nil {
		return
	}
	r.memberships = append(r.memberships, m)
}

// Allocate returns the lowest free local id in c. Running out of ids is a
// logic bug and raises an invariant violation.
func (r *Registry) Allocate(c Category) uint8 {
	invariant.Check(c.Valid(), "registry.Allocate", "invalid category %d", c)
	slots := &r.used[c]
	for i := 0; i < CategorySize; i++ {
		if !slots[i] {
			return uint8(i)
		}
	}
	invariant.Panicf("registry.Allocate", "all %d %s ids in use", CategorySize, c)
	return 0
}

// Free reports how many local ids remain in c.
func (r *Registry) Free(c Category) int {
	if !c.Valid() {
		return 0
	}
	return CategorySize - r.counts[c]
}

// Register stores e under its own id. Registering an id that is in use is a
// logic bug.
func (r *Registry) Register(e Entity) {
	id := e.RegistryID()
	invariant.Check(id.Valid(), "registry.Register", "invalid id %d", id)
	_, exists := r.entities[id]
	invariant.Check(!exists, "registry.Register", "id %s already registered", id)
	r.entities[id] = e
	r.used[id.Category()][id.Local()] = true
	r.counts[id.Category()]++
}

// Lookup resolves id or returns ErrNotFound.
func (r *Registry) Lookup(id ID) (Entity, error) {
	e, ok := r.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id ID) bool {
	_, ok := r.entities[id]
	return ok
}

// Unregister removes id and detaches it from every membership list before
// returning, so no list observes a half-removed entity. Unknown ids are a
// no-op.
func (r *Registry) Unregister(id ID) bool {
	if _, ok := r.entities[id]; !ok {
		return false
	}
	delete(r.entities, id)
	r.used[id.Category()][id.Local()] = false
	r.counts[id.Category()]--
	for _, m := range r.memberships {
		m.Detach(id)
	}
	return true
}

// Count reports live entities in c.
func (r *Registry) Count(c Category) int {
	if !c.Valid() {
		return 0
	}
	return r.counts[c]
}

// IDs lists live ids in c in ascending order.
func (r *Registry) IDs(c Category) []ID {
	if !c.Valid() {
		return nil
	}
	ids := make([]ID, 0, r.counts[c])
	for i := 0; i < CategorySize; i++ {
		if r.used[c][i] {
			ids = append(ids, GlobalID(c, uint8(i)))
		}
	}
	return ids
}

// Each visits live entities in c in ascending id order. fn must not register
// or unregister entities.
func (r *Registry) Each(c Category, fn func(Entity)) {
	for _, id := range r.IDs(c) {
		fn(r.entities[id])
	}
}

// Get resolves id to a concrete entity type. A missing id or a type mismatch
// both report false.
func Get[T Entity](r *Registry, id ID) (T, bool) {
	var zero T
	e, ok := r.entities[id]
	if !ok {
		return zero, false
	}
	typed, ok := e.(T)
	return typed, ok
}
