package data

import (
	"maps"
)

// CompositeProvider combines multiple providers into a single property source.
// Lookups are answered by the first provider in the chain that has the property,
// so earlier providers shadow later ones.
type CompositeProvider struct {
	// providers is the ordered list of providers to query
	providers []Provider
}

// NewCompositeProvider creates a new CompositeProvider with the given providers
// The providers will be queried in the order they are provided
func NewCompositeProvider(providers ...Provider) *CompositeProvider {
	return &CompositeProvider{
		providers: providers,
	}
}

// Property implements Provider.Property
func (p *CompositeProvider) Property(name string) (any, bool) {
	for _, provider := range p.providers {
		if provider == nil {
			continue
		}
		if v, ok := provider.Property(name); ok {
			return v, true
		}
	}
	return nil, false
}

// Properties implements Provider.Properties
// It merges every provider's snapshot, with earlier providers winning on duplicate keys.
func (p *CompositeProvider) Properties() map[string]any {
	result := make(map[string]any)
	for i := len(p.providers) - 1; i >= 0; i-- {
		if p.providers[i] == nil {
			continue
		}
		maps.Copy(result, p.providers[i].Properties())
	}
	return result
}
