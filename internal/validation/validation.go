// Package validation checks request structs at the service boundary using
// go-playground/validator. Failures come back as apperr InvalidInput
// errors naming the offending field by its JSON name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"cafe-backoffice/internal/apperr"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		// Money fields are decimals; compare them as numbers so gt/gte work.
		validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
			d, ok := v.Interface().(decimal.Decimal)
			if !ok {
				return nil
			}
			f, _ := d.Float64()
			return f
		}, decimal.Decimal{})

		// The custom type func above hands validators a float64, so money
		// reads the decimal back off the parent struct.
		_ = validate.RegisterValidation("money", func(fl validator.FieldLevel) bool {
			parent := reflect.Indirect(fl.Parent())
			if parent.Kind() != reflect.Struct {
				return true
			}
			field := parent.FieldByName(fl.StructFieldName())
			if !field.IsValid() {
				return true
			}
			switch v := field.Interface().(type) {
			case decimal.Decimal:
				return IsMoney(v)
			case *decimal.Decimal:
				return v == nil || IsMoney(*v)
			}
			return true
		})
	})
	return validate
}

// IsMoney reports whether d fits the two decimal places money is stored
// with.
func IsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// Money checks a single amount that is validated outside Struct. A nil
// error means d is positive with at most two decimal places.
func Money(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return apperr.InvalidInput("%s must be greater than 0", field)
	}
	if !IsMoney(d) {
		return apperr.InvalidInput("%s must have at most 2 decimal places", field)
	}
	return nil
}

// Struct validates s. It returns nil or an *apperr.Error of kind
// InvalidInput.
func Struct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.InvalidInput("invalid request: %v", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return apperr.InvalidInput("%s", strings.Join(msgs, "; "))
}

// fieldPath drops the top-level struct name: SubmitOrderRequest.items[0].qty -> items[0].qty
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must contain at least %s element(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "money":
		return fmt.Sprintf("%s must have at most 2 decimal places", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
