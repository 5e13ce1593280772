package model

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"calstate/internal/datetime"
)

// entriesDoc is the on-disk shape of an entries file. Dates are kept as
// strings here so they can be resolved against the configured timezone.
type entriesDoc struct {
	Entries []rawConfig `yaml:"entries"`
}

type rawConfig struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Review      *string  `yaml:"review"`
	StartDate   string   `yaml:"start_date"`
	EndDate     string   `yaml:"end_date"`
	Deadline    string   `yaml:"deadline"`
	AllDay      bool     `yaml:"all_day"`
	Completed   bool     `yaml:"completed"`
	Tags        []string `yaml:"tags"`
	Priority    Priority `yaml:"priority"`
	Type        Type     `yaml:"type"`
	Status      Status   `yaml:"status"`
}

// DecodeConfigs reads an entries YAML document. Unknown fields are
// rejected rather than ignored, dates without an offset resolve in loc, and
// every config is validated. An empty document yields no configs.
func DecodeConfigs(r io.Reader, loc *time.Location) ([]Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc entriesDoc
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode entries: %w", err)
	}

	out := make([]Config, 0, len(doc.Entries))
	for i, raw := range doc.Entries {
		cfg, err := raw.toConfig(loc)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, raw.ID, err)
		}
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (r rawConfig) toConfig(loc *time.Location) (Config, error) {
	cfg := Config{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Review:      r.Review,
		AllDay:      r.AllDay,
		Completed:   r.Completed,
		Tags:        r.Tags,
		Priority:    r.Priority,
		Type:        r.Type,
		Status:      r.Status,
	}

	var err error
	if cfg.StartDate, err = optionalInstant(r.StartDate, loc); err != nil {
		return Config{}, fmt.Errorf("start_date: %w", err)
	}
	if cfg.EndDate, err = optionalInstant(r.EndDate, loc); err != nil {
		return Config{}, fmt.Errorf("end_date: %w", err)
	}
	if cfg.Deadline, err = optionalInstant(r.Deadline, loc); err != nil {
		return Config{}, fmt.Errorf("deadline: %w", err)
	}
	return cfg, nil
}

func optionalInstant(raw string, loc *time.Location) (*datetime.Instant, error) {
	if raw == "" {
		return nil, nil
	}
	i, err := datetime.ParseIn(raw, loc)
	if err != nil {
		return nil, err
	}
	return &i, nil
}
