package model

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	vOnce sync.Once
	vInst *validator.Validate
)

// validate returns the shared validator. Field names in errors follow the
// yaml tags so they match what users write in entry files.
func validate() *validator.Validate {
	vOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("yaml")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		vInst = v
	})
	return vInst
}

// Validate checks cfg against the entry rules: a non-empty id, priority
// 0-5, known type and status, and distinct non-empty tags.
func Validate(cfg Config) error {
	if err := validate().Struct(cfg); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidEntry, cfg.ID, err)
	}
	return nil
}
