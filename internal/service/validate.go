package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"foodshare/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
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

// validateStruct reports the first failing field as a validation *Error.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return invalid(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	default:
		return "invalid value"
	}
}

func validID(field, id string) error {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return invalid(field, "must be a valid UUID")
	}
	return nil
}

// normalizeCoord rounds to the stored scale and range-checks.
func normalizeCoord(field string, v decimal.NullDecimal, limit int64) (decimal.NullDecimal, error) {
	if !v.Valid {
		return v, nil
	}
	r := v.Decimal.Round(model.CoordFractionDigits)
	if r.Abs().GreaterThan(decimal.NewFromInt(limit)) {
		return decimal.NullDecimal{}, invalid(field, fmt.Sprintf("must be between -%d and %d", limit, limit))
	}
	return decimal.NewNullDecimal(r), nil
}

func normalizeCoords(lat, lng decimal.NullDecimal) (decimal.NullDecimal, decimal.NullDecimal, error) {
	lat, err := normalizeCoord("latitude", lat, 90)
	if err != nil {
		return lat, lng, err
	}
	lng, err = normalizeCoord("longitude", lng, 180)
	return lat, lng, err
}
