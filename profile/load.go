package profile

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

//go:embed builtin.json
var builtinCatalog []byte

// Builtin returns the catalog shipped with the binary.
func Builtin() *Catalog {
	c, err := DecodeCatalog(builtinCatalog, "json")
	if err != nil {
		panic("profile: invalid builtin catalog: " + err.Error())
	}
	return c
}

// FormatFromPath maps a file extension to a catalog format.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return "json"
	}
}

// Load reads and validates a catalog file. The format follows the extension.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile catalog: %w", err)
	}
	c, err := DecodeCatalog(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Discover loads explicit when set. Otherwise the first existing candidate is
// loaded, and the builtin catalog is used when none exists. The returned
// string names the source that was used.
func Discover(explicit string, candidates []string) (*Catalog, string, error) {
	if explicit != "" {
		c, err := Load(explicit)
		return c, explicit, err
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		c, err := Load(p)
		return c, p, err
	}
	return Builtin(), "builtin", nil
}

// DecodeCatalog parses a catalog document in the given format ("json", "yaml" or "toml").
func DecodeCatalog(data []byte, format string) (*Catalog, error) {
	var src map[string]any
	switch format {
	case "json":
		if err := json.Unmarshal(data, &src); err != nil {
			return nil, fmt.Errorf("decode json catalog: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &src); err != nil {
			return nil, fmt.Errorf("decode yaml catalog: %w", err)
		}
	case "toml":
		tree, err := toml.LoadBytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode toml catalog: %w", err)
		}
		src = tree.ToMap()
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s", format)
	}
	return FromSource(src)
}

// FromSource builds a catalog from a decoded {gameProfiles, defaults} document.
// Profiles without an id are skipped and repeated ids keep their first entry.
func FromSource(src map[string]any) (*Catalog, error) {
	if src == nil {
		return nil, ErrNoProfilesAvailable
	}
	defaultID := strings.TrimSpace(scalarString(asMap(src["defaults"])["gameProfileId"]))
	if defaultID == "" {
		defaultID = FallbackDefaultID
	}

	c := NewCatalog(defaultID)
	for _, raw := range asList(src["gameProfiles"]) {
		p, ok := FromMap(raw)
		if !ok {
			continue
		}
		if _, dup := c.Get(p.ID); dup {
			continue
		}
		c.Put(p)
	}
	if c.Len() == 0 {
		return nil, ErrNoProfilesAvailable
	}
	return c, nil
}

// Source renders the catalog back into its document shape, e.g. for templates.
func (c *Catalog) Source() map[string]any {
	profiles := make([]map[string]any, 0, c.Len())
	for _, id := range c.order {
		p := c.profiles[id]
		vm := make(map[string]any, len(p.VirtualMap))
		for button, actions := range p.VirtualMap {
			vm[button] = append([]string(nil), actions...)
		}
		entry := map[string]any{
			"id":         p.ID,
			"virtualMap": vm,
		}
		if p.Name != "" {
			entry["name"] = p.Name
		}
		if p.Description != "" {
			entry["description"] = p.Description
		}
		profiles = append(profiles, entry)
	}
	return map[string]any{
		"defaults":     map[string]any{"gameProfileId": c.defaultID},
		"gameProfiles": profiles,
	}
}

// Encode renders the catalog in the given format.
func (c *Catalog) Encode(format string) ([]byte, error) {
	src := c.Source()
	switch format {
	case "json":
		return json.MarshalIndent(src, "", "  ")
	case "yaml":
		return yaml.Marshal(src)
	case "toml":
		tree, err := toml.TreeFromMap(src)
		if err != nil {
			return nil, err
		}
		s, err := tree.ToTomlString()
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	default:
		return nil, errors.New("unsupported catalog format: " + format)
	}
}
