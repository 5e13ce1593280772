package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	_ "time/tzdata"

	flag "github.com/spf13/pflag"

	"calstate/internal/calendar"
	"calstate/internal/config"
	"calstate/internal/datetime"
	"calstate/internal/ics"
	appLog "calstate/internal/log"
	"calstate/internal/model"
)

const version = "0.1.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	at         string
	rangeUnit  string
	logLevel   string
	export     string
}

func main() {
	flags := parseFlags()

	if err := run(flags, os.Stdout); err != nil {
		appLog.Error("calstate failed", err, "config_path", flags.configPath)
		os.Exit(1)
	}
}

func run(flags flagConfig, stdout io.Writer) error {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := conf.Log.Level
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	appLog.Configure(appLog.Options{Level: level, Format: conf.Log.Format})
	appLog.Info("calstate starting", "version", version)

	loc, err := conf.Location()
	if err != nil {
		appLog.Warn("unknown timezone, using UTC", "timezone", conf.Timezone, "error", err.Error())
	}

	at := datetime.FromTime(time.Now().In(loc))
	if flags.at != "" {
		if at, err = datetime.ParseIn(flags.at, loc); err != nil {
			return fmt.Errorf("--at: %w", err)
		}
	}

	unit, err := datetime.ParseUnit(flags.rangeUnit)
	if err != nil {
		return fmt.Errorf("--range: %w", err)
	}
	iv, err := at.RangeFrom(unit, conf.Weekday())
	if err != nil {
		return fmt.Errorf("--range: %w", err)
	}

	appLog.Info("effective config",
		"timezone", loc.String(),
		"week_start", conf.WeekStart,
		"horizon_days", conf.HorizonDays,
		"seed_count", len(conf.Seeds),
		"entries_file", conf.EntriesFile,
		"at", at.String(),
		"range", unit.String(),
	)

	configs, err := loadConfigs(conf, flags.configPath, loc, at)
	if err != nil {
		return err
	}

	idx, err := calendar.New(nil, configs)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	appLog.Info("index ready", "entries", idx.Len(), "chained", idx.Chained())

	query, err := dayBounds(iv, loc)
	if err != nil {
		return err
	}
	found, err := idx.FindInInterval(query)
	if err != nil {
		return err
	}

	if err := renderAgenda(stdout, unit, iv, found); err != nil {
		return err
	}

	if flags.export != "" {
		if err := exportICS(flags.export, stdout, found); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	return nil
}

// dayBounds widens iv to whole calendar days in loc: from midnight of its
// first day through 23:59 of its last day. iv's endpoints sit at midnight
// in a fixed offset, which drifts from loc when the range crosses a DST
// change, so only their dates are kept.
func dayBounds(iv datetime.Interval, loc *time.Location) (datetime.Interval, error) {
	first, last := iv.Start().Local(), iv.End().Local()
	start := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	end := time.Date(last.Year(), last.Month(), last.Day()+1, 0, 0, 0, 0, loc).Add(-time.Minute)
	return datetime.NewInterval(datetime.FromTime(start), datetime.FromTime(end))
}

// loadConfigs gathers entry configs from every ICS seed and the entries
// file, sorted for calendar.New. A seed that fails to import is logged
// and skipped; a broken entries file is fatal. When several sources carry
// the same id the first one, in config order with the entries file last,
// is kept and the rest are logged and skipped.
func loadConfigs(conf *config.Config, configPath string, loc *time.Location, at datetime.Instant) ([]model.Config, error) {
	expand := ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      at.Time().AddDate(0, 0, -conf.HorizonDays),
		RangeEnd:        at.Time().AddDate(0, 0, conf.HorizonDays),
	}

	var out []model.Config
	seen := make(map[string]string)
	keep := func(source string, configs []model.Config) {
		for _, c := range configs {
			if first, dup := seen[c.ID]; dup {
				appLog.Warn("duplicate entry id, skipping", "id", c.ID, "seed", source, "kept_from", first)
				continue
			}
			seen[c.ID] = source
			out = append(out, c)
		}
	}

	for _, seed := range conf.Seeds {
		src := ics.Source{ID: seed.ID, Path: config.Resolve(configPath, seed.Path), Name: seed.Name}
		configs, err := ics.ImportFile(src, expand)
		if err != nil {
			appLog.Error("seed import failed", err, "id", seed.ID, "path", src.Path)
			continue
		}
		keep(seed.ID, configs)
	}

	if conf.EntriesFile != "" {
		path := config.Resolve(configPath, conf.EntriesFile)
		configs, err := readEntries(path, loc)
		if err != nil {
			return nil, fmt.Errorf("entries file %s: %w", path, err)
		}
		keep(conf.EntriesFile, configs)
	}

	calendar.SortConfigs(out)
	return out, nil
}

func readEntries(path string, loc *time.Location) ([]model.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			appLog.Warn("entries file missing, skipping", "path", path)
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	return model.DecodeConfigs(f, loc)
}

func exportICS(path string, stdout io.Writer, entries []model.Entry) error {
	if path == "-" {
		return ics.Export(stdout, entries, time.Now())
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ics.Export(f, entries, time.Now()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVarP(&cfg.configPath, "config", "c", "/etc/calstate/config.yaml", "Path to config file")
	flag.StringVar(&cfg.at, "at", "", "Reference date (default now), e.g. 2024-12-24 or 2024-12-24T09:00")
	flag.StringVarP(&cfg.rangeUnit, "range", "r", "weeks", "Agenda range: weeks, months or years")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level (overrides config if set)")
	flag.StringVar(&cfg.export, "export", "", "Write the agenda entries as ICS to this path (- for stdout)")

	flag.Parse()

	return cfg
}
