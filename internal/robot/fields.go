package robot

import (
	"fmt"
	"reflect"
	"strings"
)

// ResolveFields turns a --fields argument (a preset name or a csv list of
// robot tag keys) into the set of field keys to project. Keys not found
// on Hit are rejected so a typo in --fields fails loudly rather than
// silently returning a thinner-than-expected record.
func ResolveFields(spec string) (map[string]bool, error) {
	known := fieldKeys()

	if spec == "" {
		spec = "summary"
	}
	if spec == "minimal" || spec == "summary" || spec == "all" {
		return presetFields(spec), nil
	}

	keys := make(map[string]bool)
	for _, raw := range strings.Split(spec, ",") {
		key := strings.TrimSpace(raw)
		if key == "" {
			continue
		}
		if !known[key] {
			return nil, fmt.Errorf("unknown field %q (known fields: %s)", key, strings.Join(sortedKeys(known), ", "))
		}
		keys[key] = true
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("--fields must name at least one field")
	}
	return keys, nil
}

// presetFields returns every field tagged with the given preset name.
func presetFields(preset string) map[string]bool {
	keys := make(map[string]bool)
	t := reflect.TypeOf(Hit{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		presets := strings.Split(f.Tag.Get("preset"), ",")
		for _, p := range presets {
			if p == preset {
				keys[f.Tag.Get("robot")] = true
				break
			}
		}
	}
	return keys
}

// fieldKeys returns every robot tag key declared on Hit, regardless of
// preset membership, so csv --fields lists can name fields outside the
// default summary preset (content, content_truncated, which only the all
// preset includes).
func fieldKeys() map[string]bool {
	keys := make(map[string]bool)
	t := reflect.TypeOf(Hit{})
	for i := 0; i < t.NumField(); i++ {
		if key := t.Field(i).Tag.Get("robot"); key != "" {
			keys[key] = true
		}
	}
	return keys
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Project reduces h to a map keyed by robot tag, containing only the
// fields named in keys. A field absent from keys never reaches the
// output, even as a zero value, so adding a field to Hit can never
// silently start leaking it through an existing --fields selection.
func Project(h Hit, keys map[string]bool) map[string]any {
	out := make(map[string]any, len(keys))
	v := reflect.ValueOf(h)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("robot")
		if key == "" || !keys[key] {
			continue
		}
		fv := v.Field(i)
		if fv.Kind() == reflect.Ptr {
			if fv.IsNil() {
				continue
			}
			out[key] = fv.Elem().Interface()
			continue
		}
		out[key] = fv.Interface()
	}
	return out
}
