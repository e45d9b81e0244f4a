package providers

import (
	"fmt"
	"slices"
)

const DefaultProviderID = TimestampFeedID

// Registry keeps adapters in display order.
type Registry struct {
	providers []Provider
	configs   *ConfigCache
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		providers: []Provider{
			NewTimestampFeed(deps),
			NewChannelSchedule(deps),
			NewHTMLListings(deps),
			NewMatchAPI(deps),
		},
		configs: deps.Configs,
	}
}

// NewRegistryOf is used when the adapter set is assembled by hand.
func NewRegistryOf(configs *ConfigCache, providers ...Provider) *Registry {
	return &Registry{providers: providers, configs: configs}
}

func (r *Registry) Get(id string) (Provider, error) {
	for _, p := range r.providers {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown provider '%s'", id)
}

func (r *Registry) Has(id string) bool {
	_, err := r.Get(id)
	return err == nil
}

func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		ids = append(ids, p.ID())
	}
	return ids
}

// Enabled lists adapters not switched off in their configuration.
func (r *Registry) Enabled() []Provider {
	return slices.DeleteFunc(slices.Clone(r.providers), func(p Provider) bool {
		return !r.configs.configFor(p.ID()).Settings.Enabled
	})
}
