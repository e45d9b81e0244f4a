package schedule

import "testing"

func TestMapCategory(t *testing.T) {
	table := DefaultAliasTable("daddystreams")

	tests := []struct {
		label    string
		expected Category
		ok       bool
	}{
		{"NBA", CategoryBasketball, true},
		{"WNBA FINALS", CategoryWNBA, true},
		{"Am. Football (NFL)", CategoryFootball, true},
		{"Football", CategorySoccer, true},
		{"Ice Hockey (NHL)", CategoryHockey, true},
		{"nba", "", false},
		{"Cricket", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := MapCategory(tt.label, table)
		if ok != tt.ok || got != tt.expected {
			t.Errorf("MapCategory(%q): expected %q/%v, got %q/%v", tt.label, tt.expected, tt.ok, got, ok)
		}
	}
}

func TestMapCategoryFirstMatchWins(t *testing.T) {
	table := AliasTable{
		CategorySoccer:     {"Football"},
		CategoryBasketball: {"Football"},
	}

	got, ok := MapCategory("Football", table)
	if !ok || got != CategoryBasketball {
		t.Errorf("Expected Basketball (earlier in display order), got %q", got)
	}
}

func TestDefaultAliasTables(t *testing.T) {
	for _, provider := range []string{"daddystreams", "pptv", "sharkstreams", "streamed"} {
		if len(DefaultAliasTable(provider)) == 0 {
			t.Errorf("Expected built-in aliases for %s", provider)
		}
	}

	if got, _ := MapCategory("Always Live", DefaultAliasTable("pptv")); got != Category247 {
		t.Errorf("Expected 24/7, got %q", got)
	}

	if len(DefaultAliasTable("unknown")) != 0 {
		t.Error("Expected empty table for unknown provider")
	}

	table := DefaultAliasTable("streamed")
	table[CategoryBasketball] = append(table[CategoryBasketball], "mutated")
	if len(DefaultAliasTable("streamed")[CategoryBasketball]) != 1 {
		t.Error("Expected built-in table to be isolated from caller mutation")
	}
}

func TestParseAliasTablesRejectsUnknownCategory(t *testing.T) {
	_, err := ParseAliasTables([]byte("custom:\n  Curling: [\"curling\"]\n"))
	if err == nil {
		t.Error("Expected error for unknown category")
	}
}
