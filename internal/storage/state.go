package storage

import (
	"sort"
	"sync"
)

// ServerState is the explicit session context owned by the storage layer:
// the current slot, the set of known slots, and tag/group registries.
// Constructed at startup and mutated only inside lock-protected mutation
// paths; there are no package-level singletons.
type ServerState struct {
	mu          sync.RWMutex
	currentSlot string
	slots       map[string]struct{}
	tagToSlots  map[string]map[string]struct{}
	groupSlots  map[string]map[string]struct{}
}

// NewServerState creates an empty state.
func NewServerState() *ServerState {
	return &ServerState{
		slots:      make(map[string]struct{}),
		tagToSlots: make(map[string]map[string]struct{}),
		groupSlots: make(map[string]map[string]struct{}),
	}
}

// CurrentSlot returns the active slot name, or "" when none is selected.
func (st *ServerState) CurrentSlot() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.currentSlot
}

// SetCurrentSlot selects the active slot.
func (st *ServerState) SetCurrentSlot(name string) {
	st.mu.Lock()
	st.currentSlot = name
	st.mu.Unlock()
}

// recordSlot registers a slot and rebuilds its tag/group membership.
func (st *ServerState) recordSlot(name string, tags []string, group string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.slots[name] = struct{}{}
	st.dropMembershipLocked(name)

	for _, tag := range tags {
		set, ok := st.tagToSlots[tag]
		if !ok {
			set = make(map[string]struct{})
			st.tagToSlots[tag] = set
		}
		set[name] = struct{}{}
	}
	if group != "" {
		set, ok := st.groupSlots[group]
		if !ok {
			set = make(map[string]struct{})
			st.groupSlots[group] = set
		}
		set[name] = struct{}{}
	}
}

// forgetSlot removes a slot from all registries and deselects it if it was
// the current slot.
func (st *ServerState) forgetSlot(name string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.slots, name)
	st.dropMembershipLocked(name)
	if st.currentSlot == name {
		st.currentSlot = ""
	}
}

func (st *ServerState) dropMembershipLocked(name string) {
	for tag, set := range st.tagToSlots {
		delete(set, name)
		if len(set) == 0 {
			delete(st.tagToSlots, tag)
		}
	}
	for group, set := range st.groupSlots {
		delete(set, name)
		if len(set) == 0 {
			delete(st.groupSlots, group)
		}
	}
}

// Slots returns the known slot names, sorted.
func (st *ServerState) Slots() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return sortedKeys(st.slots)
}

// Tags returns every tag in use, sorted.
func (st *ServerState) Tags() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]string, 0, len(st.tagToSlots))
	for tag := range st.tagToSlots {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Groups returns every group path in use, sorted.
func (st *ServerState) Groups() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]string, 0, len(st.groupSlots))
	for group := range st.groupSlots {
		out = append(out, group)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
