package ics

import (
	"fmt"
	"os"

	"calstate/internal/calendar"
	appLog "calstate/internal/log"
	"calstate/internal/model"
)

// Import parses body and expands it into entry configs, sorted the way
// calendar.New expects them.
func Import(src Source, body []byte, cfg ExpandConfig) ([]model.Config, error) {
	comps, err := ParseICS(src, body, cfg.DisplayLocation)
	if err != nil {
		return nil, err
	}

	res, err := ExpandOccurrences(comps, cfg)
	if err != nil {
		return nil, err
	}

	calendar.SortConfigs(res.Configs)
	appLog.Info("ics import completed",
		"id", src.ID,
		"components", len(comps),
		"entries", len(res.Configs),
		"truncated", len(res.TruncatedEvents),
	)
	return res.Configs, nil
}

// ImportFile reads src.Path and imports it.
func ImportFile(src Source, cfg ExpandConfig) ([]model.Config, error) {
	body, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", src.ID, err)
	}
	return Import(src, body, cfg)
}
