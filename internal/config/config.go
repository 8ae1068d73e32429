package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/caarlos0/env/v11"
)

// Validator is implemented by config sections that check their own invariants
// after the environment has been parsed.
type Validator interface {
	Validate() error
}

// New parses environment variables into T and then validates every top-level
// section of T that implements [Validator].
func New[T any]() (T, error) {
	var cfg T
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := validateSections(&cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func validateSections(cfg any) error {
	v := reflect.ValueOf(cfg).Elem()
	if v.Kind() != reflect.Struct {
		if val, ok := cfg.(Validator); ok {
			return val.Validate()
		}
		return nil
	}

	var errs []error
	for i := range v.NumField() {
		field := v.Field(i)
		if !field.CanAddr() || !field.Addr().CanInterface() {
			continue
		}
		if val, ok := field.Addr().Interface().(Validator); ok {
			if err := val.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", v.Type().Field(i).Name, err))
			}
		}
	}
	return errors.Join(errs...)
}
