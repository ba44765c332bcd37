// Package validation decodes and checks JSON request bodies.
package validation

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"codepad/internal/errors"

	"github.com/go-playground/validator/v10"
)

// maxBodySize bounds request bodies; file contents are small text.
const maxBodySize = 1 << 20

// New returns a validator that reports fields by their json names.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode reads a JSON body into dst and validates it. Failures are returned
// as validation errors whose details list the offending fields.
func Decode[T any](v *validator.Validate, r *http.Request) (*T, error) {
	var dst T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&dst); err != nil {
		return nil, errors.ValidationError("invalid request body", err.Error())
	}

	if err := v.Struct(&dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) {
			details := make(map[string]string, len(fieldErrs))
			for _, fe := range fieldErrs {
				details[fe.Field()] = describe(fe)
			}
			return nil, errors.ValidationError("request validation failed", details)
		}
		return nil, errors.ValidationError(err.Error(), nil)
	}
	return &dst, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	}
	return fmt.Sprintf("failed %s", fe.Tag())
}
