package data

import (
	"maps"
)

// StaticProvider is a simple provider backed by a predefined map of properties.
// It's useful for testing and for synthesized events whose properties are
// known in advance.
type StaticProvider struct {
	// data is the static map of properties
	data map[string]any
}

// NewStaticProvider creates a new StaticProvider with the provided properties.
// The map is copied, so later changes by the caller are not observed.
func NewStaticProvider(data map[string]any) *StaticProvider {
	return &StaticProvider{
		data: maps.Clone(data),
	}
}

// Property implements Provider.Property
func (p *StaticProvider) Property(name string) (any, bool) {
	v, ok := p.data[name]
	return v, ok
}

// Properties implements Provider.Properties
// It returns a clone of the data to prevent modification of the original
func (p *StaticProvider) Properties() map[string]any {
	out := maps.Clone(p.data)
	if out == nil {
		out = make(map[string]any)
	}
	return out
}
