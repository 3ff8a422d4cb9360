// Package registry tracks which (branch, year) artifacts exist. The document
// is a JSON object mapping each branch to its years, both in insertion order.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Registry is an ordered branch -> years mapping with no duplicate pairs.
// The zero value is empty and ready to use.
type Registry struct {
	branches []string
	years    map[string][]string
}

func New() *Registry {
	return &Registry{years: make(map[string][]string)}
}

// Add records year under branch. It reports whether the registry changed.
func (r *Registry) Add(branch, year string) bool {
	if r.years == nil {
		r.years = make(map[string][]string)
	}
	years, ok := r.years[branch]
	if !ok {
		r.branches = append(r.branches, branch)
	}
	for _, y := range years {
		if y == year {
			return false
		}
	}
	r.years[branch] = append(years, year)
	return true
}

// Has reports whether the pair is registered.
func (r *Registry) Has(branch, year string) bool {
	for _, y := range r.years[branch] {
		if y == year {
			return true
		}
	}
	return false
}

// Branches returns the branches in insertion order.
func (r *Registry) Branches() []string {
	return append([]string(nil), r.branches...)
}

// Years returns the years of branch in insertion order, or nil if the branch
// is unknown.
func (r *Registry) Years(branch string) []string {
	years := r.years[branch]
	if len(years) == 0 {
		return nil
	}
	return append([]string(nil), years...)
}

// Len returns the number of registered pairs.
func (r *Registry) Len() int {
	n := 0
	for _, years := range r.years {
		n += len(years)
	}
	return n
}

// Encode renders the document with four-space indentation.
func (r *Registry) Encode() ([]byte, error) {
	raw, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Parse decodes a registry document.
func Parse(data []byte) (*Registry, error) {
	r := New()
	if len(bytes.TrimSpace(data)) == 0 {
		return r, nil
	}
	if err := r.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range r.branches {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		years := r.years[b]
		if years == nil {
			years = []string{}
		}
		val, err := json.Marshal(years)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps the key order of the document. Repeated pairs are
// collapsed.
func (r *Registry) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("registry: expected object, got %v", tok)
	}
	out := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("registry: %w", err)
		}
		branch, ok := tok.(string)
		if !ok {
			return fmt.Errorf("registry: expected branch name, got %v", tok)
		}
		var years []string
		if err := dec.Decode(&years); err != nil {
			return fmt.Errorf("registry: years of %q: %w", branch, err)
		}
		if _, seen := out.years[branch]; !seen {
			out.branches = append(out.branches, branch)
			out.years[branch] = nil
		}
		for _, y := range years {
			out.Add(branch, y)
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	*r = *out
	return nil
}
