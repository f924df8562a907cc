// Package profile holds the game mapping profiles a bridge translates with and
// resolves which of them is active.
//
// A profile maps raw controller button names (as sent by the phone client) to
// one or more logical actions such as "south" or "dpad_up". Profiles are
// validated once when they enter a Catalog; lookups never re-check them.
package profile

import (
	"errors"
	"strings"
)

// ErrNoProfilesAvailable is returned when a catalog has nothing to resolve to.
var ErrNoProfilesAvailable = errors.New("no profiles available")

// FallbackDefaultID is used when a catalog source does not name a default.
const FallbackDefaultID = "platformer"

// Profile is a named button to action table.
type Profile struct {
	ID          string
	Name        string
	Description string
	// VirtualMap maps a raw button name to normalized action names.
	VirtualMap map[string][]string
}

// Actions returns the actions mapped to a raw button name.
func (p Profile) Actions(button string) []string {
	return p.VirtualMap[button]
}

// Catalog is an ordered set of profiles plus the id to fall back to.
// It is not safe for concurrent use; the bridge runtime guards it with its lock.
type Catalog struct {
	profiles  map[string]Profile
	order     []string
	defaultID string
}

// NewCatalog creates a catalog holding the given profiles in order.
func NewCatalog(defaultID string, profiles ...Profile) *Catalog {
	c := &Catalog{
		profiles:  make(map[string]Profile, len(profiles)),
		defaultID: strings.TrimSpace(defaultID),
	}
	for _, p := range profiles {
		c.Put(p)
	}
	return c
}

// Put stores p, replacing any profile with the same id as a whole.
// Profiles without an id are rejected.
func (c *Catalog) Put(p Profile) bool {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return false
	}
	if p.VirtualMap == nil {
		p.VirtualMap = map[string][]string{}
	}
	if _, exists := c.profiles[p.ID]; !exists {
		c.order = append(c.order, p.ID)
	}
	c.profiles[p.ID] = p
	return true
}

// Get returns the profile stored under exactly id.
func (c *Catalog) Get(id string) (Profile, bool) {
	p, ok := c.profiles[id]
	return p, ok
}

// Lookup finds the stored id matching id case-insensitively.
// An exact match wins over a case-folded one.
func (c *Catalog) Lookup(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false
	}
	if _, ok := c.profiles[id]; ok {
		return id, true
	}
	for _, stored := range c.order {
		if strings.EqualFold(stored, id) {
			return stored, true
		}
	}
	return "", false
}

// IDs returns profile ids in catalog order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Catalog) Len() int { return len(c.order) }

// DefaultID returns the configured default id. It may not be present in the catalog.
func (c *Catalog) DefaultID() string { return c.defaultID }

// Resolve resolves requested against the catalog's own default.
func (c *Catalog) Resolve(requested string) (string, error) {
	return Resolve(requested, c, c.DefaultID())
}

// Resolve picks the profile id to use for requested. Unknown ids fall back to
// defaultID, then to the first profile in catalog order.
func Resolve(requested string, c *Catalog, defaultID string) (string, error) {
	if c == nil || c.Len() == 0 {
		return "", ErrNoProfilesAvailable
	}
	if id, ok := c.Lookup(requested); ok {
		return id, nil
	}
	if id, ok := c.Lookup(defaultID); ok {
		return id, nil
	}
	return c.order[0], nil
}
