package parse

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"cudorms-backend/internal/apperr"
)

var spaceRe = regexp.MustCompile(`\s+`)

// Query reads typed values out of URL query parameters and collects a
// field error for every value that fails its rules, so a request can
// report all bad parameters at once.
type Query struct {
	values url.Values
	errs   []apperr.FieldError
}

func NewQuery(values url.Values) *Query {
	return &Query{values: values}
}

func (q *Query) raw(key string) (string, bool) {
	v := strings.TrimSpace(q.values.Get(key))
	return v, v != ""
}

func (q *Query) fail(key, msg string) {
	q.errs = append(q.errs, apperr.FieldError{Field: key, Message: msg})
}

// check validates value against rules and records msg for key on failure.
func (q *Query) check(key, msg string, value interface{}, rules ...validation.Rule) bool {
	if err := validation.Validate(value, rules...); err != nil {
		q.fail(key, msg)
		return false
	}
	return true
}

var errOutOfRange = errors.New("out of range")

// within checks min <= value <= max. validation.Min and Max skip zero values,
// so they cannot reject page=0.
func within[T int | float64](min, max T) validation.Rule {
	return validation.By(func(value interface{}) error {
		if v := value.(T); v < min || v > max {
			return errOutOfRange
		}
		return nil
	})
}

// Int returns the integer at key, or def when it is absent. Values outside
// [min, max] or not integers are reported with msg.
func (q *Query) Int(key string, def, min, max int, msg string) int {
	v, ok := q.raw(key)
	if !ok {
		return def
	}
	if !q.check(key, msg, v, is.Int) {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		q.fail(key, msg)
		return def
	}
	if !q.check(key, msg, n, within(min, max)) {
		return def
	}
	return n
}

// Float returns the number at key or 0 when it is absent. NaN and Inf are
// not numbers here.
func (q *Query) Float(key string, min, max float64, msg string) float64 {
	v, ok := q.raw(key)
	if !ok {
		return 0
	}
	if !q.check(key, msg, v, is.Float) {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		q.fail(key, msg)
		return 0
	}
	if !q.check(key, msg, f, within(min, max)) {
		return 0
	}
	return f
}

// Text returns the value at key with surrounding space trimmed and inner
// whitespace runs collapsed to one space.
func (q *Query) Text(key string, maxLen int, msg string) string {
	v, ok := q.raw(key)
	if !ok {
		return ""
	}
	v = spaceRe.ReplaceAllString(v, " ")
	if !q.check(key, msg, v, validation.RuneLength(0, maxLen)) {
		return ""
	}
	return v
}

// Enum returns the value at key if it spells one of allowed.
func (q *Query) Enum(key string, allowed []interface{}, msg string) string {
	v, ok := q.raw(key)
	if !ok {
		return ""
	}
	names := make([]interface{}, len(allowed))
	for i, a := range allowed {
		names[i] = fmt.Sprint(a)
	}
	if !q.check(key, msg, v, validation.In(names...)) {
		return ""
	}
	return v
}

// ID returns the value at key if it looks like a document id.
func (q *Query) ID(key, msg string) string {
	v, ok := q.raw(key)
	if !ok {
		return ""
	}
	if !q.check(key, msg, v, validation.Match(idRe)) {
		return ""
	}
	return v
}

// Err returns a validation error listing every failed parameter, or nil.
func (q *Query) Err() error {
	if len(q.errs) == 0 {
		return nil
	}
	return apperr.Fields(q.errs...)
}

var idRe = regexp.MustCompile(`^[0-9A-Za-z-]{1,64}$`)

// ValidID reports whether s is shaped like a document id.
func ValidID(s string) bool {
	return idRe.MatchString(s)
}
