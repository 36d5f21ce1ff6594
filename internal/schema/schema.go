// Package schema decodes and validates client input for subjects, documents
// and reports before it reaches storage.
//
// Create input uses pointer fields so that "absent" can be told apart from a
// zero value; defaults are filled in only after validation passes.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidationError is a rejected-input error. Field is the JSON path of the
// offending field when it can be attributed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// decode unmarshals a JSON object body into v and reports malformed or
// mistyped input as a ValidationError.
func decode(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return &ValidationError{Message: "request body is required"}
	}
	if err := json.Unmarshal(data, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			if typeErr.Field == "" {
				return &ValidationError{Message: "request body must be a JSON object"}
			}
			return &ValidationError{
				Field:   typeErr.Field,
				Message: fmt.Sprintf("%s must be %s", typeErr.Field, describeType(typeErr.Type)),
			}
		}
		return &ValidationError{Message: "invalid JSON body"}
	}
	return nil
}

func describeType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "an integer"
	case reflect.Slice, reflect.Array:
		return "an array"
	case reflect.Struct, reflect.Map:
		return "an object"
	default:
		return t.Kind().String()
	}
}

// fromOzzo converts ozzo field errors into a ValidationError for the first
// failing field in declaration order.
func fromOzzo(err error, order []string) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	for _, field := range order {
		if fe, ok := errs[field]; ok {
			return &ValidationError{Field: field, Message: field + " " + fe.Error()}
		}
	}
	return &ValidationError{Message: errs.Error()}
}

// optionalIn validates an optional enum field: absent is fine, present must
// be one of the allowed values.
func optionalIn(present bool, allowed ...any) validation.Rule {
	return validation.When(present, validation.Required, validation.In(allowed...).Error("must be one of "+joinValues(allowed)))
}

func joinValues(values []any) string {
	var b bytes.Buffer
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprint(&b, v)
	}
	return b.String()
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func sliceOr[T any](p *[]T) []T {
	if p == nil || *p == nil {
		return []T{}
	}
	return *p
}
