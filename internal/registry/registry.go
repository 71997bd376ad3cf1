// Package registry loads the monitored endpoint list.
//
// A source is line oriented text: each line holding at least two
// whitespace separated tokens contributes "<name> <url>", further tokens are
// ignored and shorter lines are skipped. Files written by legacy Korean
// Windows tools are CP949 encoded, so bytes that are not valid UTF-8 are
// decoded as CP949 instead of being rejected.
package registry

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"

	"edumonitor/internal/models"
)

var (
	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	// CRLF and lone CR both end a line.
	newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Registry is an immutable, ordered set of endpoints keyed by name.
type Registry struct {
	entries []models.Endpoint
	index   map[string]int
}

// Empty returns a registry without endpoints.
func Empty() *Registry {
	return &Registry{index: map[string]int{}}
}

// Load reads the registry at path. A missing file yields an empty registry
// and no error; other read failures yield an empty registry and the error.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Empty(), nil
	}
	if err != nil {
		return Empty(), fmt.Errorf("read registry: %w", err)
	}
	return Parse(data), nil
}

// Parse builds a registry from raw source bytes.
func Parse(data []byte) *Registry {
	reg := Empty()
	for _, line := range strings.Split(newlines.Replace(decode(data)), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		reg.put(fields[0], fields[1])
	}
	return reg
}

// New builds a registry from endpoints, applying the same last-write-wins rule as Parse.
func New(endpoints []models.Endpoint) *Registry {
	reg := Empty()
	for _, ep := range endpoints {
		reg.put(ep.Name, ep.URL)
	}
	return reg
}

func (r *Registry) put(name, url string) {
	if idx, ok := r.index[name]; ok {
		r.entries[idx].URL = url
		return
	}
	r.index[name] = len(r.entries)
	r.entries = append(r.entries, models.Endpoint{Name: name, URL: url})
}

func decode(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := korean.EUCKR.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}

// All returns the endpoints in source order.
func (r *Registry) All() []models.Endpoint {
	out := make([]models.Endpoint, len(r.entries))
	copy(out, r.entries)
	return out
}

// Map returns name to URL.
func (r *Registry) Map() map[string]string {
	out := make(map[string]string, len(r.entries))
	for _, ep := range r.entries {
		out[ep.Name] = ep.URL
	}
	return out
}

// Names returns endpoint names in source order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.entries))
	for i, ep := range r.entries {
		out[i] = ep.Name
	}
	return out
}

// Get looks up the URL registered for name.
func (r *Registry) Get(name string) (string, bool) {
	idx, ok := r.index[name]
	if !ok {
		return "", false
	}
	return r.entries[idx].URL, true
}

// Len reports the number of endpoints.
func (r *Registry) Len() int {
	return len(r.entries)
}
