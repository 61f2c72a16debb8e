package behavior

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/GetAnima/anima-memory/internal/storage"
)

// ParamKind is the closed set of parameter value kinds.
type ParamKind string

const (
	ParamNumber  ParamKind = "number"
	ParamBoolean ParamKind = "boolean"
	ParamString  ParamKind = "string"
)

const maxParamStringChars = 200

// ParamValue is a tagged scalar. Exactly the field matching Kind is
// meaningful.
type ParamValue struct {
	Kind   ParamKind `json:"kind"`
	Number float64   `json:"number,omitempty"`
	Bool   bool      `json:"bool,omitempty"`
	Str    string    `json:"str,omitempty"`
}

// NumberValue wraps a float as a parameter value.
func NumberValue(v float64) ParamValue { return ParamValue{Kind: ParamNumber, Number: v} }

// BoolValue wraps a bool as a parameter value.
func BoolValue(v bool) ParamValue { return ParamValue{Kind: ParamBoolean, Bool: v} }

// StringValue wraps a short string as a parameter value.
func StringValue(v string) ParamValue { return ParamValue{Kind: ParamString, Str: v} }

var (
	ErrEmptyParamKey   = errors.New("parameter key is empty")
	ErrBadParamKind    = errors.New("parameter kind must be number, boolean, or string")
	ErrParamStringLong = fmt.Errorf("parameter string exceeds %d chars", maxParamStringChars)
)

// Params is the keyed last-write-wins scalar store. No decay, no history.
type Params struct {
	layout storage.Layout
	table  map[string]ParamValue
	loaded bool
}

func newParams(layout storage.Layout) *Params {
	return &Params{layout: layout}
}

// Load reads the index; corrupt state is logged and treated as empty.
func (p *Params) Load() error {
	var table map[string]ParamValue
	res := storage.LoadIndex(p.layout.IndexPath("parameters"), &table)
	if res.State == storage.LoadCorrupt {
		log.Printf("parameters: corrupt index, starting empty: %s", res.Reason)
		table = nil
	}
	if table == nil {
		table = make(map[string]ParamValue)
	}
	p.table = table
	p.loaded = true
	return nil
}

// Flush rewrites the index.
func (p *Params) Flush() error {
	return storage.SaveIndex(p.layout.IndexPath("parameters"), p.table)
}

// Invalidate drops the cache so the next operation reloads.
func (p *Params) Invalidate() { p.loaded = false }

func (p *Params) ensureLoaded() {
	if !p.loaded {
		p.Load()
	}
}

// Set stores a parameter, last write wins.
func (p *Params) Set(key string, v ParamValue) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyParamKey
	}
	switch v.Kind {
	case ParamNumber, ParamBoolean:
	case ParamString:
		if len(v.Str) > maxParamStringChars {
			return ErrParamStringLong
		}
	default:
		return fmt.Errorf("%w: %q", ErrBadParamKind, v.Kind)
	}

	p.ensureLoaded()
	p.table[key] = v
	return p.Flush()
}

// Get returns a parameter and whether it exists.
func (p *Params) Get(key string) (ParamValue, bool) {
	p.ensureLoaded()
	v, ok := p.table[strings.TrimSpace(key)]
	return v, ok
}

// All returns a copy of the parameter table.
func (p *Params) All() map[string]ParamValue {
	p.ensureLoaded()
	out := make(map[string]ParamValue, len(p.table))
	for k, v := range p.table {
		out[k] = v
	}
	return out
}

// Keys returns all parameter keys, sorted.
func (p *Params) Keys() []string {
	p.ensureLoaded()
	keys := make([]string, 0, len(p.table))
	for k := range p.table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
