package dto

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"regexp"
	"strings"

	"marketplace-engine/internal/core/domain"
	"marketplace-engine/pkg/apperror"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// MaxIdempotencyKeyLen bounds the client-supplied Idempotency-Key header.
const MaxIdempotencyKeyLen = 100

var safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("currency", validateCurrency)
		_ = v.RegisterValidation("safe_id", validateSafeID)
	}
}

// validateCurrency accepts codes on the marketplace allow-list, in any case.
func validateCurrency(fl validator.FieldLevel) bool {
	_, ok := domain.ParseCurrency(fl.Field().String())
	return ok
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// ValidIdempotencyKey reports whether a header value can be used as a key.
// The empty string is valid and means "no key".
func ValidIdempotencyKey(key string) bool {
	if key == "" {
		return true
	}
	return len(key) <= MaxIdempotencyKeyLen && safeStringRe.MatchString(key)
}

// BindError converts a binding failure to an AppError. A failed currency
// check keeps its own code; everything else is a generic validation error.
func BindError(err error) *apperror.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "currency" {
				return apperror.ErrInvalidCurrency(fmt.Sprintf("%v", fe.Value()))
			}
		}
		fe := verrs[0]
		return apperror.Validation(fmt.Sprintf("field %s failed %s validation", fe.Field(), fe.Tag()))
	}
	return apperror.Validation(err.Error())
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string) of a struct pointer.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			if elem := f.Elem(); elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
