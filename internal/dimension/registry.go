package dimension

import (
	"fmt"
	"strings"
)

// DuplicateError is returned when a dimension name is registered twice.
// Names compare case-insensitively.
type DuplicateError struct {
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("dimension %q is already registered", e.Name)
}

// InvalidTierError is returned for a tier outside ADVANCED, CORE,
// SUPPORTING and STRUCTURAL.
type InvalidTierError struct {
	Name string
	Tier Tier
}

func (e *InvalidTierError) Error() string {
	valid := make([]string, len(Tiers))
	for i, t := range Tiers {
		valid[i] = string(t)
	}
	if e.Name == "" {
		return fmt.Sprintf("invalid tier %q, must be one of %s", e.Tier, strings.Join(valid, ", "))
	}
	return fmt.Sprintf("dimension %q has invalid tier %q, must be one of %s", e.Name, e.Tier, strings.Join(valid, ", "))
}

// Registry catalogs the dimensions of one analysis session, indexed by
// name and tier. It is not safe for concurrent registration; populate it
// at composition time and treat it as read-only afterwards.
type Registry struct {
	byName map[string]Dimension
	order  []string
	byTier map[Tier][]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Dimension),
		byTier: make(map[Tier][]string),
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds d to the catalog.
func (r *Registry) Register(d Dimension) error {
	key := normalize(d.Name())
	if _, exists := r.byName[key]; exists {
		return &DuplicateError{Name: d.Name()}
	}
	if !d.Tier().Valid() {
		return &InvalidTierError{Name: d.Name(), Tier: d.Tier()}
	}
	r.byName[key] = d
	r.order = append(r.order, key)
	r.byTier[d.Tier()] = append(r.byTier[d.Tier()], d.Name())
	return nil
}

// Get looks a dimension up by case-insensitive name.
func (r *Registry) Get(name string) (Dimension, bool) {
	d, ok := r.byName[normalize(name)]
	return d, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[normalize(name)]
	return ok
}

// Len returns the number of registered dimensions.
func (r *Registry) Len() int {
	return len(r.order)
}

// All returns the registered dimensions in registration order.
func (r *Registry) All() []Dimension {
	out := make([]Dimension, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byName[key])
	}
	return out
}

// Names returns the declared names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byName[key].Name())
	}
	return out
}

// Descriptors returns registration metadata in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, Describe(r.byName[key]))
	}
	return out
}

// ByTier returns the names registered under tier, in registration order.
func (r *Registry) ByTier(tier Tier) ([]string, error) {
	if !tier.Valid() {
		return nil, &InvalidTierError{Tier: tier}
	}
	names := r.byTier[tier]
	out := make([]string, len(names))
	copy(out, names)
	return out, nil
}

// TierInfo summarizes one tier of the registry.
type TierInfo struct {
	Count      int      `json:"count"`
	Dimensions []string `json:"dimensions"`
}

// TierSummary returns the count and names for every valid tier,
// including empty ones.
func (r *Registry) TierSummary() map[Tier]TierInfo {
	out := make(map[Tier]TierInfo, len(Tiers))
	for _, t := range Tiers {
		names, _ := r.ByTier(t)
		out[t] = TierInfo{Count: len(names), Dimensions: names}
	}
	return out
}

// Clear removes every dimension and tier index.
func (r *Registry) Clear() {
	r.byName = make(map[string]Dimension)
	r.order = nil
	r.byTier = make(map[Tier][]string)
}
