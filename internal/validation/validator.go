// Marquee - Movie Recommendation Engine
// Copyright 2026 The Marquee Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marquee-rec/marquee

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/marquee-rec/marquee/internal/recommend"
)

// ErrorCode is the API error code for every validation failure.
const ErrorCode = "VALIDATION_ERROR"

// ValidationError is a single field failure.
type ValidationError struct {
	field, tag, param string
	value             interface{}
	message           string
}

// Field returns the request field name, as named in its json tag.
func (e *ValidationError) Field() string { return e.field }

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string { return e.tag }

// Param returns the tag parameter, e.g. "100" for "max=100".
func (e *ValidationError) Param() string { return e.param }

// Value returns the rejected value.
func (e *ValidationError) Value() interface{} { return e.value }

func (e *ValidationError) Error() string { return e.message }

// RequestValidationError collects every field failure of one request.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the field failures.
func (ve *RequestValidationError) Errors() []ValidationError { return ve.errors }

func (ve *RequestValidationError) Error() string {
	if msg := ve.joined(); msg != "" {
		return msg
	}
	return "validation failed"
}

func (ve *RequestValidationError) joined() string {
	var b strings.Builder
	for i := range ve.errors {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ve.errors[i].message)
	}
	return b.String()
}

// APIError is the error body the HTTP layer sends for a failed request.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError converts the failures to a VALIDATION_ERROR body. A single
// failure is described inline; several are listed under "fields".
func (ve *RequestValidationError) ToAPIError() *APIError {
	out := &APIError{Code: ErrorCode, Message: "Validation failed"}
	switch n := len(ve.errors); {
	case n == 1:
		e := ve.errors[0]
		out.Message = e.message
		out.Details = map[string]interface{}{"field": e.field, "tag": e.tag, "value": e.value}
	case n > 1:
		fields := make([]map[string]interface{}, 0, n)
		for _, e := range ve.errors {
			fields = append(fields, map[string]interface{}{"field": e.field, "tag": e.tag, "message": e.message})
		}
		out.Message = ve.joined()
		out.Details = map[string]interface{}{"fields": fields}
	}
	return out
}

var (
	shared     *validator.Validate
	sharedOnce sync.Once
)

// GetValidator returns the shared validator. Field names in errors come from
// json tags, and the "algorithm" tag accepts anything recommend.ParseAlgorithm
// does.
func GetValidator() *validator.Validate {
	sharedOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonFieldName)
		//nolint:errcheck // registration only fails on an empty tag
		_ = v.RegisterValidation("algorithm", func(fl validator.FieldLevel) bool {
			_, err := recommend.ParseAlgorithm(fl.Field().String())
			return err == nil
		})
		shared = v
	})
	return shared
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// ValidateStruct validates s. It returns nil or a *RequestValidationError.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{
			errors: []ValidationError{{field: "unknown", tag: "unknown", message: err.Error()}},
		}
	}

	out := &RequestValidationError{errors: make([]ValidationError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.errors = append(out.errors, ValidationError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			value:   fe.Value(),
			message: describe(fe),
		})
	}
	return out
}

// bounds phrases the comparison tags; strings get a "characters" suffix
// for min and max.
var bounds = map[string]string{
	"gte": "greater than or equal to",
	"lte": "less than or equal to",
	"gt":  "greater than",
	"lt":  "less than",
	"min": "at least",
	"max": "at most",
}

func describe(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()

	switch tag {
	case "required":
		return field + " is required"
	case "algorithm":
		return field + " must be one of collaborative, content, hybrid, popularity"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	}

	phrase, ok := bounds[tag]
	if !ok {
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
	msg := fmt.Sprintf("%s must be %s %s", field, phrase, param)
	if (tag == "min" || tag == "max") && fe.Kind() == reflect.String {
		msg += " characters"
	}
	return msg
}
