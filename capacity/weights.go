package capacity

import (
	"sort"
	"strings"

	"github.com/warp/capacity-engine/generic"
)

// =============================================================================
// WEIGHT CATALOG - Category -> weight lookup
// =============================================================================

// CategoryWeight is one entry of the weight editor listing.
type CategoryWeight struct {
	Category string        `json:"category"`
	Weight   generic.Value `json:"weight"`
}

// WeightCatalog resolves category weights.
//
// Base weights come from the arrivals themselves: the first defined weight
// seen for each category. Overrides are layered on with WithOverrides, which
// returns a new catalog and leaves the receiver untouched.
//
// Category names are trimmed and matched case-sensitively.
type WeightCatalog struct {
	base      map[string]generic.Value
	overrides map[string]generic.Value
	order     []string
	unmatched []string
}

// NewWeightCatalog builds the base catalog from arrival rows.
func NewWeightCatalog(arrivals []ArrivalRecord) *WeightCatalog {
	c := &WeightCatalog{
		base:      make(map[string]generic.Value),
		overrides: make(map[string]generic.Value),
	}
	for _, a := range arrivals {
		name := strings.TrimSpace(a.Category)
		if name == "" {
			continue
		}
		if _, seen := c.base[name]; !seen {
			c.order = append(c.order, name)
			c.base[name] = a.Weight
			continue
		}
		if !c.base[name].IsDefined() {
			c.base[name] = a.Weight
		}
	}
	return c
}

// WithOverrides returns a catalog with the given overrides applied on top of
// the base weights. Previous overrides on the receiver are not carried over.
//
// An override with an undefined weight is skipped. An override for a
// category that has no arrivals has no effect and is listed by Unmatched.
func (c *WeightCatalog) WithOverrides(overrides []WeightOverride) *WeightCatalog {
	next := &WeightCatalog{
		base:      c.base,
		overrides: make(map[string]generic.Value, len(overrides)),
		order:     c.order,
	}
	reported := make(map[string]bool)
	for _, o := range overrides {
		name := strings.TrimSpace(o.Category)
		if name == "" || !o.Weight.IsDefined() {
			continue
		}
		if _, known := c.base[name]; !known {
			if !reported[name] {
				reported[name] = true
				next.unmatched = append(next.unmatched, name)
			}
			continue
		}
		next.overrides[name] = o.Weight
	}
	return next
}

// Resolve returns the effective weight of a category: the override when one
// exists, otherwise the base weight. ok is false for unknown categories.
func (c *WeightCatalog) Resolve(category string) (generic.Value, bool) {
	name := strings.TrimSpace(category)
	if w, ok := c.overrides[name]; ok {
		return w, true
	}
	w, ok := c.base[name]
	return w, ok
}

// Override returns the override weight for a category, if any.
func (c *WeightCatalog) Override(category string) (generic.Value, bool) {
	w, ok := c.overrides[strings.TrimSpace(category)]
	return w, ok
}

// Unmatched lists override categories that matched no arrivals.
func (c *WeightCatalog) Unmatched() []string {
	return append([]string(nil), c.unmatched...)
}

// Categories lists the distinct categories with a defined base weight,
// sorted by name. This is the weight editor listing.
func (c *WeightCatalog) Categories() []CategoryWeight {
	var out []CategoryWeight
	for _, name := range c.order {
		if w := c.base[name]; w.IsDefined() {
			out = append(out, CategoryWeight{Category: name, Weight: w})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Len returns the number of known categories.
func (c *WeightCatalog) Len() int {
	return len(c.order)
}
