package data

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// JSONProvider reads event properties out of a raw JSON object without
// decoding it up front. Each lookup is a gjson key query.
type JSONProvider struct {
	raw string
}

// NewJSONProvider creates a provider over a JSON object document.
func NewJSONProvider(raw string) (*JSONProvider, error) {
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrInvalidProperties)
	}
	if !gjson.Parse(raw).IsObject() {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidProperties)
	}
	return &JSONProvider{raw: raw}, nil
}

// Property implements Provider.Property
func (p *JSONProvider) Property(name string) (any, bool) {
	res := gjson.Get(p.raw, gjson.Escape(name))
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}

// Properties implements Provider.Properties
func (p *JSONProvider) Properties() map[string]any {
	m, ok := gjson.Parse(p.raw).Value().(map[string]any)
	if !ok {
		return make(map[string]any)
	}
	return m
}

// Raw returns the JSON document backing the provider.
func (p *JSONProvider) Raw() string {
	return p.raw
}
