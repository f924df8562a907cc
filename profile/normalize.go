package profile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NormalizeAction lower-cases v and keeps only [a-z0-9_].
func NormalizeAction(v any) string {
	s := strings.ToLower(strings.TrimSpace(scalarString(v)))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ActionList normalizes a mapping value that is either a single action or a
// list of actions. Empty results are dropped and duplicates keep their first position.
func ActionList(v any) []string {
	var source []any
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		source = t
	case []string:
		for _, s := range t {
			source = append(source, s)
		}
	default:
		source = []any{t}
	}

	out := make([]string, 0, len(source))
	seen := make(map[string]struct{}, len(source))
	for _, entry := range source {
		a := NormalizeAction(entry)
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// NormalizeVirtualMap validates a raw button map. Blank button names and
// buttons without any valid action are dropped.
func NormalizeVirtualMap(raw map[string]any) map[string][]string {
	out := make(map[string][]string, len(raw))
	for button, actions := range raw {
		key := strings.TrimSpace(button)
		if key == "" {
			continue
		}
		list := ActionList(actions)
		if len(list) == 0 {
			continue
		}
		out[key] = list
	}
	return out
}

// FromMap builds a Profile from a decoded {id, name, description, virtualMap}
// object. ok is false when the object carries no usable id.
func FromMap(raw map[string]any) (p Profile, ok bool) {
	if raw == nil {
		return Profile{}, false
	}
	p.ID = strings.TrimSpace(scalarString(raw["id"]))
	if p.ID == "" {
		return Profile{}, false
	}
	p.Name = strings.TrimSpace(scalarString(raw["name"]))
	p.Description = strings.TrimSpace(scalarString(raw["description"]))
	p.VirtualMap = NormalizeVirtualMap(asMap(raw["virtualMap"]))
	return p, true
}

// Decode builds a Profile from a JSON object as pushed by the session server.
// Anything that is not an object with an id yields ok == false.
func Decode(data []byte) (Profile, bool) {
	if len(data) == 0 {
		return Profile{}, false
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Profile{}, false
	}
	return FromMap(raw)
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case []any, map[string]any, map[any]any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// asMap accepts the map shapes produced by the JSON, YAML and TOML decoders.
func asMap(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[scalarString(k)] = val
		}
		return out
	default:
		return nil
	}
}

// asList accepts the list shapes produced by the JSON, YAML and TOML decoders.
func asList(v any) []map[string]any {
	switch t := v.(type) {
	case []map[string]any:
		return t
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, entry := range t {
			if m := asMap(entry); m != nil {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}
