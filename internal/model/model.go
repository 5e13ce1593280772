package model

import (
	"errors"
	"slices"

	"github.com/google/uuid"

	"calstate/internal/datetime"
)

// ErrInvalidEntry wraps validation failures of an entry configuration.
var ErrInvalidEntry = errors.New("invalid entry")

// Priority ranks an entry from 0 (none) to 5 (highest).
type Priority int

// Type tells whether an entry is a task, an event or a slot. A slot
// reserves otherwise empty time.
type Type string

const (
	TypeTask  Type = "TASK"
	TypeEvent Type = "EVENT"
	TypeSlot  Type = "SLOT"
)

// Status is the inbox/list an entry lives in.
type Status string

const (
	StatusDefault Status = "Default"
	StatusInbox   Status = "Inbox"
	StatusSomeday Status = "Someday"
	StatusDeleted Status = "Deleted"
)

// Config carries every field of an entry. It is the input to NewEntry and
// to calendar.Index.Add.
type Config struct {
	ID          string            `yaml:"id" json:"id" validate:"required"`
	Title       string            `yaml:"title" json:"title"`
	Description string            `yaml:"description" json:"description"`
	Review      *string           `yaml:"review,omitempty" json:"review,omitempty"`
	StartDate   *datetime.Instant `yaml:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate     *datetime.Instant `yaml:"end_date,omitempty" json:"end_date,omitempty"`
	Deadline    *datetime.Instant `yaml:"deadline,omitempty" json:"deadline,omitempty"`
	AllDay      bool              `yaml:"all_day" json:"all_day"`
	Completed   bool              `yaml:"completed" json:"completed"`
	Tags        []string          `yaml:"tags" json:"tags" validate:"unique,dive,required"`
	Priority    Priority          `yaml:"priority" json:"priority" validate:"gte=0,lte=5"`
	Type        Type              `yaml:"type" json:"type" validate:"oneof=TASK EVENT SLOT"`
	Status      Status            `yaml:"status" json:"status" validate:"oneof=Default Inbox Someday Deleted"`
}

func (c Config) clone() Config {
	out := c
	out.Review = clonePtr(c.Review)
	out.StartDate = clonePtr(c.StartDate)
	out.EndDate = clonePtr(c.EndDate)
	out.Deadline = clonePtr(c.Deadline)
	out.Tags = slices.Clone(c.Tags)
	return out
}

// Entry is an immutable calendar or task value. Update returns a new
// Entry; nothing mutates an existing one.
type Entry struct {
	cfg Config
}

// NewEntry validates cfg and copies it into a new Entry.
func NewEntry(cfg Config) (Entry, error) {
	if err := Validate(cfg); err != nil {
		return Entry{}, err
	}
	return Entry{cfg: cfg.clone()}, nil
}

func (e Entry) ID() string          { return e.cfg.ID }
func (e Entry) Title() string       { return e.cfg.Title }
func (e Entry) Description() string { return e.cfg.Description }
func (e Entry) AllDay() bool        { return e.cfg.AllDay }
func (e Entry) Completed() bool     { return e.cfg.Completed }
func (e Entry) Priority() Priority  { return e.cfg.Priority }
func (e Entry) Type() Type          { return e.cfg.Type }
func (e Entry) Status() Status      { return e.cfg.Status }
func (e Entry) Tags() []string      { return slices.Clone(e.cfg.Tags) }

// Review is the note written after completing the entry.
func (e Entry) Review() (string, bool) { return deref(e.cfg.Review) }

func (e Entry) StartDate() (datetime.Instant, bool) { return deref(e.cfg.StartDate) }
func (e Entry) EndDate() (datetime.Instant, bool)   { return deref(e.cfg.EndDate) }
func (e Entry) Deadline() (datetime.Instant, bool)  { return deref(e.cfg.Deadline) }

// Config returns a copy of the fields e was built from.
func (e Entry) Config() Config { return e.cfg.clone() }

// IsZero reports whether e is the zero Entry.
func (e Entry) IsZero() bool { return e.cfg.ID == "" }

// Patch lists the fields to change in Update. Nil fields keep their
// current value; the Clear flags drop an optional field.
type Patch struct {
	Title       *string
	Description *string
	Review      *string
	StartDate   *datetime.Instant
	EndDate     *datetime.Instant
	Deadline    *datetime.Instant
	AllDay      *bool
	Completed   *bool
	Tags        []string
	Priority    *Priority
	Type        *Type
	Status      *Status

	ClearReview    bool
	ClearStartDate bool
	ClearEndDate   bool
	ClearDeadline  bool
}

// TouchesDates reports whether applying p may move the entry in time.
func (p Patch) TouchesDates() bool {
	return p.StartDate != nil || p.EndDate != nil || p.ClearStartDate || p.ClearEndDate
}

// Update returns a new Entry with p merged over e. The result is
// validated; e is left as it was either way.
func (e Entry) Update(p Patch) (Entry, error) {
	next := e.cfg.clone()

	setIf(&next.Title, p.Title)
	setIf(&next.Description, p.Description)
	setIf(&next.AllDay, p.AllDay)
	setIf(&next.Completed, p.Completed)
	setIf(&next.Priority, p.Priority)
	setIf(&next.Type, p.Type)
	setIf(&next.Status, p.Status)
	if p.Tags != nil {
		next.Tags = slices.Clone(p.Tags)
	}

	next.Review = mergeOptional(next.Review, p.Review, p.ClearReview)
	next.StartDate = mergeOptional(next.StartDate, p.StartDate, p.ClearStartDate)
	next.EndDate = mergeOptional(next.EndDate, p.EndDate, p.ClearEndDate)
	next.Deadline = mergeOptional(next.Deadline, p.Deadline, p.ClearDeadline)

	return NewEntry(next)
}

// NewID returns a fresh random entry id.
func NewID() string {
	return uuid.NewString()
}

// Ptr returns a pointer to v, handy for optional Config and Patch fields.
func Ptr[T any](v T) *T {
	return &v
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func mergeOptional[T any](cur, patch *T, clear bool) *T {
	switch {
	case clear:
		return nil
	case patch != nil:
		return clonePtr(patch)
	default:
		return cur
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func deref[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}
