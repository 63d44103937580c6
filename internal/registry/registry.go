package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Store persists registry writes.
type Store interface {
	InsertAdmin(ctx context.Context, group, actor string) error
	InsertLocation(ctx context.Context, group, location string) error
	InsertMember(ctx context.Context, group, actor, location string) error
}

// Snapshot is the full registry state.
type Snapshot struct {
	SuperAdmins []string                       `json:"super_admins"`
	Admins      map[string][]string            `json:"admins"`
	Locations   map[string][]string            `json:"approved_locations"`
	Members     map[string]map[string][]string `json:"group_members"` // group -> location -> actors
}

// Registry holds roles, approved locations and location memberships per group.
type Registry struct {
	store Store

	mu          sync.RWMutex
	superAdmins map[string]struct{}
	admins      map[string][]string
	locations   map[string][]string
	members     map[string]map[string][]string
}

// New creates a registry. store may be nil.
func New(store Store, superAdmins []string) *Registry {
	r := &Registry{
		store:       store,
		superAdmins: make(map[string]struct{}),
		admins:      make(map[string][]string),
		locations:   make(map[string][]string),
		members:     make(map[string]map[string][]string),
	}
	for _, id := range superAdmins {
		if id = strings.TrimSpace(id); id != "" {
			r.superAdmins[id] = struct{}{}
		}
	}
	return r
}

func normalize(location string) string {
	return strings.ToLower(strings.TrimSpace(location))
}

func (r *Registry) IsSuperAdmin(actor string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.superAdmins[actor]
	return ok
}

// IsAdmin reports whether actor administers group. Super admins administer every group.
func (r *Registry) IsAdmin(actor, group string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.superAdmins[actor]; ok {
		return true
	}
	return slices.Contains(r.admins[group], actor)
}

func (r *Registry) AddAdmin(ctx context.Context, group, actor string) error {
	if actor == "" {
		return fmt.Errorf("empty actor")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.admins[group], actor) {
		return nil
	}
	if r.store != nil {
		if err := r.store.InsertAdmin(ctx, group, actor); err != nil {
			return fmt.Errorf("failed to store admin: %w", err)
		}
	}
	r.admins[group] = append(r.admins[group], actor)
	log.Info().Str("module", "registry").Str("group", group).Str("actor", actor).Msg("admin added")
	return nil
}

func (r *Registry) IsApprovedLocation(group, location string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.locations[group], normalize(location))
}

func (r *Registry) ApproveLocation(ctx context.Context, group, location string) error {
	loc := normalize(location)
	if loc == "" {
		return fmt.Errorf("empty location")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.locations[group], loc) {
		return nil
	}
	if r.store != nil {
		if err := r.store.InsertLocation(ctx, group, loc); err != nil {
			return fmt.Errorf("failed to store location: %w", err)
		}
	}
	r.locations[group] = append(r.locations[group], loc)
	log.Info().Str("module", "registry").Str("group", group).Str("location", loc).Msg("location approved")
	return nil
}

// Locations returns the approved locations of group in approval order.
func (r *Registry) Locations(group string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.locations[group])
}

func (r *Registry) IsMemberOfLocation(group, actor, location string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.members[group][normalize(location)], actor)
}

func (r *Registry) RegisterMember(ctx context.Context, group, actor, location string) error {
	loc := normalize(location)
	if loc == "" || actor == "" {
		return fmt.Errorf("member needs an actor and a location")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.members[group][loc], actor) {
		return nil
	}
	if r.store != nil {
		if err := r.store.InsertMember(ctx, group, actor, loc); err != nil {
			return fmt.Errorf("failed to store member: %w", err)
		}
	}
	if r.members[group] == nil {
		r.members[group] = make(map[string][]string)
	}
	r.members[group][loc] = append(r.members[group][loc], actor)
	log.Info().Str("module", "registry").Str("group", group).Str("actor", actor).Str("location", loc).Msg("member registered")
	return nil
}

// Members returns the members of location in group in registration order.
func (r *Registry) Members(group, location string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.members[group][normalize(location)])
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := Snapshot{
		Admins:    make(map[string][]string, len(r.admins)),
		Locations: make(map[string][]string, len(r.locations)),
		Members:   make(map[string]map[string][]string, len(r.members)),
	}
	for id := range r.superAdmins {
		snap.SuperAdmins = append(snap.SuperAdmins, id)
	}
	slices.Sort(snap.SuperAdmins)
	for g, ids := range r.admins {
		snap.Admins[g] = slices.Clone(ids)
	}
	for g, locs := range r.locations {
		snap.Locations[g] = slices.Clone(locs)
	}
	for g, byLoc := range r.members {
		m := make(map[string][]string, len(byLoc))
		for loc, ids := range byLoc {
			m[loc] = slices.Clone(ids)
		}
		snap.Members[g] = m
	}
	return snap
}

// Restore merges a persisted snapshot into the registry without touching the store.
// Super admins from the snapshot are added to the configured ones.
func (r *Registry) Restore(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range snap.SuperAdmins {
		r.superAdmins[id] = struct{}{}
	}
	for g, ids := range snap.Admins {
		for _, id := range ids {
			if !slices.Contains(r.admins[g], id) {
				r.admins[g] = append(r.admins[g], id)
			}
		}
	}
	for g, locs := range snap.Locations {
		for _, loc := range locs {
			loc = normalize(loc)
			if !slices.Contains(r.locations[g], loc) {
				r.locations[g] = append(r.locations[g], loc)
			}
		}
	}
	for g, byLoc := range snap.Members {
		if r.members[g] == nil {
			r.members[g] = make(map[string][]string)
		}
		for loc, ids := range byLoc {
			loc = normalize(loc)
			for _, id := range ids {
				if !slices.Contains(r.members[g][loc], id) {
					r.members[g][loc] = append(r.members[g][loc], id)
				}
			}
		}
	}
}
