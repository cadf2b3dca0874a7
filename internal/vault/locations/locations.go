// Package locations keeps the registry of qualifying vault locations and
// answers proximity checks against it.
package locations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	verrors "github.com/louisbranch/starvault/internal/errors"
	"github.com/louisbranch/starvault/internal/vault/storage"
)

// Location kinds. At most one main vault exists at a time.
const (
	KindMain   = "main"
	KindBranch = "branch"
)

// Position is a point in a named world.
type Position struct {
	World string
	X     int
	Y     int
	Z     int
}

// PositionProvider reports where an agent currently stands. Implemented by
// the surrounding world engine.
type PositionProvider interface {
	AgentPosition(ctx context.Context, agentID string) (Position, error)
}

// Registry is the in-memory view of registered vault locations, backed by
// the location store. Proximity checks run against the cached list so a
// location check never costs a store query.
type Registry struct {
	store storage.LocationStore

	mu   sync.RWMutex
	list []storage.Location
}

// NewRegistry returns a registry over the store. Call Load before serving
// proximity checks.
func NewRegistry(store storage.LocationStore) *Registry {
	return &Registry{store: store}
}

// Load replaces the cached list with the store's contents.
func (r *Registry) Load(ctx context.Context) error {
	list, err := r.store.ListLocations(ctx)
	if err != nil {
		return verrors.Wrap(verrors.CodeStoreUnavailable, "list vault locations", err)
	}
	r.mu.Lock()
	r.list = list
	r.mu.Unlock()
	return nil
}

// Create registers a new vault location. Names are unique; only one main
// vault may exist.
func (r *Registry) Create(ctx context.Context, loc storage.Location) error {
	if strings.TrimSpace(loc.Name) == "" {
		return verrors.New(verrors.CodeLocationNameEmpty, "location name is required")
	}
	if loc.Kind == "" {
		loc.Kind = KindBranch
	}
	if loc.Kind == KindMain && r.hasMain() {
		return verrors.New(verrors.CodeMainVaultExists, "a main vault is already registered")
	}

	id, err := r.store.InsertLocation(ctx, loc)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return verrors.WithMetadata(verrors.CodeLocationExists,
				fmt.Sprintf("location %q is already registered", loc.Name),
				map[string]string{"name": loc.Name})
		}
		return verrors.Wrap(verrors.CodeStoreUnavailable, "insert vault location", err)
	}
	loc.ID = id

	r.mu.Lock()
	r.list = append(r.list, loc)
	r.mu.Unlock()
	return nil
}

// Remove unregisters a location by name.
func (r *Registry) Remove(ctx context.Context, name string) error {
	removed, err := r.store.DeleteLocation(ctx, name)
	if err != nil {
		return verrors.Wrap(verrors.CodeStoreUnavailable, "delete vault location", err)
	}
	if !removed {
		return verrors.New(verrors.CodeLocationNotFound, fmt.Sprintf("location %q is not registered", name))
	}

	r.mu.Lock()
	kept := r.list[:0]
	for _, loc := range r.list {
		if loc.Name != name {
			kept = append(kept, loc)
		}
	}
	r.list = kept
	r.mu.Unlock()
	return nil
}

// List returns the cached locations.
func (r *Registry) List() []storage.Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]storage.Location, len(r.list))
	copy(list, r.list)
	return list
}

// Qualifies reports whether pos falls within any registered location's
// radius. Distance is Euclidean, computed in integer arithmetic.
func (r *Registry) Qualifies(pos Position) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, loc := range r.list {
		if loc.World != pos.World {
			continue
		}
		dx := int64(pos.X - loc.X)
		dy := int64(pos.Y - loc.Y)
		dz := int64(pos.Z - loc.Z)
		radius := int64(loc.Radius)
		if dx*dx+dy*dy+dz*dz <= radius*radius {
			return true
		}
	}
	return false
}

func (r *Registry) hasMain() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, loc := range r.list {
		if loc.Kind == KindMain {
			return true
		}
	}
	return false
}

// AgentQualifier answers the bank's location precondition by resolving the
// agent's position and checking it against the registry.
type AgentQualifier struct {
	Registry  *Registry
	Positions PositionProvider
}

// AtVaultLocation reports whether the agent stands within a registered vault
// location.
func (q *AgentQualifier) AtVaultLocation(ctx context.Context, agentID string) (bool, error) {
	if q.Registry == nil || q.Positions == nil {
		return false, verrors.New(verrors.CodeInvalidConfiguration, "registry and position provider are required")
	}
	pos, err := q.Positions.AgentPosition(ctx, agentID)
	if err != nil {
		return false, verrors.Wrap(verrors.CodeStoreUnavailable, "resolve agent position", err)
	}
	return q.Registry.Qualifies(pos), nil
}
