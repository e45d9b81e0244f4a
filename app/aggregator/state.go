package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/stream-comb/app/schedule"
)

const (
	SelectionSlot = "ui_selection"
	SettingsSlot  = "ui_settings"
)

type storedSelection struct {
	Provider string            `json:"provider"`
	Category schedule.Category `json:"category"`
}

// storedSettings accepts the legacy showTodayOnly flag on read.
type storedSettings struct {
	AllowAllStreams bool  `json:"allowAllStreams"`
	ShowEnded       *bool `json:"showEnded,omitempty"`
	ShowTodayOnly   *bool `json:"showTodayOnly,omitempty"`
}

func (s storedSettings) params() schedule.FilterParams {
	params := schedule.FilterParams{AllowAllStreams: s.AllowAllStreams}
	switch {
	case s.ShowEnded != nil:
		params.ShowEnded = *s.ShowEnded
	case s.ShowTodayOnly != nil:
		params.ShowEnded = !*s.ShowTodayOnly
	}
	return params
}

// Restore loads persisted slots. Unknown providers or categories fall back
// to defaults; unreadable slots are ignored.
func (o *Orchestrator) Restore(ctx context.Context) error {
	if o.settings == nil {
		return nil
	}

	selection, err := o.settings.GetSlot(ctx, SelectionSlot)
	if err != nil {
		return fmt.Errorf("failed to restore selection: %w", err)
	}
	settings, err := o.settings.GetSlot(ctx, SettingsSlot)
	if err != nil {
		return fmt.Errorf("failed to restore settings: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if selection != nil {
		var stored storedSelection
		if err := json.Unmarshal(selection, &stored); err != nil {
			slog.Warn("Ignoring unreadable selection", "error", err)
		} else {
			if o.registry.Has(stored.Provider) {
				o.provider = stored.Provider
			}
			if stored.Category.Valid() {
				o.category = stored.Category
				o.categoryChosen = true
			}
		}
	}

	if settings != nil {
		var stored storedSettings
		if err := json.Unmarshal(settings, &stored); err != nil {
			slog.Warn("Ignoring unreadable settings", "error", err)
		} else {
			o.filters = stored.params()
		}
	}

	slog.Info("Restored UI state", "provider", o.provider, "category", o.category,
		"allow_all_streams", o.filters.AllowAllStreams, "show_ended", o.filters.ShowEnded)
	return nil
}

func (o *Orchestrator) persistSelection(ctx context.Context, provider string, category schedule.Category) error {
	if o.settings == nil {
		return nil
	}
	data, err := json.Marshal(storedSelection{Provider: provider, Category: category})
	if err != nil {
		return fmt.Errorf("failed to encode selection: %w", err)
	}
	return o.settings.SetSlot(ctx, SelectionSlot, data)
}

func (o *Orchestrator) persistSettings(ctx context.Context, params schedule.FilterParams) error {
	if o.settings == nil {
		return nil
	}
	showEnded := params.ShowEnded
	data, err := json.Marshal(storedSettings{AllowAllStreams: params.AllowAllStreams, ShowEnded: &showEnded})
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return o.settings.SetSlot(ctx, SettingsSlot, data)
}
