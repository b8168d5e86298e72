package server

import (
	"errors"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	minYear = 1900
	maxYear = 2100
)

var (
	registerOnce   sync.Once
	registerErr    error
	errNoValidator = errors.New("gin binding engine is not go-playground/validator")
)

func registerValidations() error {
	registerOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errNoValidator
			return
		}
		engine.RegisterTagNameFunc(jsonFieldName)
		if err := engine.RegisterValidation("year", validateYear); err != nil {
			registerErr = err
			return
		}
		registerErr = engine.RegisterValidation("httpurl_or_empty", validateHTTPURLOrEmpty)
	})
	return registerErr
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// validateYear accepts plausible calendar years; nil pointers are skipped by omitempty.
func validateYear(fl validator.FieldLevel) bool {
	year := fl.Field().Int()
	return year >= minYear && year <= maxYear
}

func validateHTTPURLOrEmpty(fl validator.FieldLevel) bool {
	raw := strings.TrimSpace(fl.Field().String())
	if raw == "" {
		return true
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

// describeValidation flattens validator errors into "field: tag" pairs.
func describeValidation(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	parts := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		parts = append(parts, fieldErr.Field()+": "+fieldErr.Tag())
	}
	return strings.Join(parts, "; ")
}
