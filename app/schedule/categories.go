package schedule

import (
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yml
var categoriesYAML []byte

// AliasTable maps each app category to the literal source labels it absorbs.
type AliasTable map[Category][]string

var defaultAliasTables = mustLoadAliasTables(categoriesYAML)

// MapCategory returns the first category, in display order, whose alias list
// contains label exactly.
func MapCategory(label string, table AliasTable) (Category, bool) {
	if label == "" {
		return "", false
	}
	for _, c := range AllCategories {
		if slices.Contains(table[c], label) {
			return c, true
		}
	}
	return "", false
}

// DefaultAliasTable returns the built-in table for a provider, or an empty table.
func DefaultAliasTable(provider string) AliasTable {
	table, ok := defaultAliasTables[provider]
	if !ok {
		return AliasTable{}
	}
	out := make(AliasTable, len(table))
	for c, aliases := range table {
		out[c] = slices.Clone(aliases)
	}
	return out
}

func ParseAliasTables(data []byte) (map[string]AliasTable, error) {
	var tables map[string]AliasTable
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("failed to parse category aliases: %w", err)
	}
	for provider, table := range tables {
		if err := table.Validate(); err != nil {
			return nil, fmt.Errorf("provider %s: %w", provider, err)
		}
	}
	return tables, nil
}

func (t AliasTable) Validate() error {
	for c := range t {
		if !c.Valid() {
			return fmt.Errorf("unknown category %q", c)
		}
	}
	return nil
}

func mustLoadAliasTables(data []byte) map[string]AliasTable {
	tables, err := ParseAliasTables(data)
	if err != nil {
		panic(err)
	}
	return tables
}
