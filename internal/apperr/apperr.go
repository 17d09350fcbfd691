package apperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog/log"
)

// Kind classifies an expected failure and decides its HTTP status.
type Kind int

const (
	Internal Kind = iota
	Validation
	Duplicate
	Unauthenticated
	Forbidden
	NotFound
	Conflict
	Timeout
)

func (k Kind) Status() int {
	switch k {
	case Validation, Duplicate:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Timeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a failure that is safe to show to the client.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Fields builds a validation failure from explicit field errors.
func Fields(fields ...FieldError) *Error {
	return &Error{Kind: Validation, Message: "Validation failed", Fields: fields}
}

// FromValidation converts an ozzo validation result into a Validation error
// listing every failing field. Nested structs and slices produce dotted
// names such as "address.coordinates" or "roomTypes.0.price". Errors that
// are not validation results are returned unchanged.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		var single validation.Error
		if errors.As(err, &single) {
			return Fields(FieldError{Message: single.Error()})
		}
		return err
	}
	var fields []FieldError
	flatten("", verrs, &fields)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return Fields(fields...)
}

func flatten(prefix string, errs validation.Errors, out *[]FieldError) {
	for key, err := range errs {
		if err == nil {
			continue
		}
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		var nested validation.Errors
		if errors.As(err, &nested) {
			flatten(name, nested, out)
			continue
		}
		*out = append(*out, FieldError{Field: name, Message: err.Error()})
	}
}

// FromDecode converts a JSON decoding failure into a Validation error.
func FromDecode(err error) error {
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return Fields(FieldError{
			Field:   typeErr.Field,
			Message: "must be " + jsonKind(typeErr.Type.Kind()),
		})
	}
	return Wrap(Validation, "Request body must be valid JSON", err)
}

func jsonKind(k reflect.Kind) string {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Slice, reflect.Array:
		return "a list"
	case reflect.Struct, reflect.Map:
		return "an object"
	case reflect.Bool:
		return "a boolean"
	}
	return "a " + k.String()
}

// Classify maps any error onto an Error. Unknown errors become Internal.
func Classify(err error) *Error {
	var ae *Error
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(Timeout, "Request timed out", err)
	}
	return Wrap(Internal, "Server error", err)
}

// Respond writes err as a JSON error body and aborts the chain.
func Respond(c *gin.Context, err error) {
	ae := Classify(err)
	if ae.Kind == Internal || ae.Kind == Timeout {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.Request.URL.Path).
			Msg(strings.ToLower(ae.Message))
	}

	body := gin.H{"message": ae.Message}
	if len(ae.Fields) > 0 {
		body["errors"] = ae.Fields
	}
	c.AbortWithStatusJSON(ae.Kind.Status(), body)
}
