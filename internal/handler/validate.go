package handler

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// Validate decimals as numbers so gte/lte work on prices.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		return d.InexactFloat64()
	}, decimal.Decimal{})

	v.RegisterStructValidation(validateBookPrices, createBookRequest{}, updateBookRequest{})

	return v
}

// maxPrice bounds prices so every stored amount and order total fits a
// Decimal128.
var maxPrice = decimal.New(1, 9)

func validPrice(d decimal.Decimal) bool {
	return d.Equal(d.Round(2)) && d.Abs().LessThan(maxPrice)
}

func validateBookPrices(sl validator.StructLevel) {
	var oldPrice, newPrice *decimal.Decimal
	switch req := sl.Current().Interface().(type) {
	case createBookRequest:
		oldPrice, newPrice = req.OldPrice, req.NewPrice
	case updateBookRequest:
		oldPrice, newPrice = req.OldPrice, req.NewPrice
	}
	if oldPrice != nil && !validPrice(*oldPrice) {
		sl.ReportError(oldPrice, "oldPrice", "OldPrice", "price", "")
	}
	if newPrice != nil && !validPrice(*newPrice) {
		sl.ReportError(newPrice, "newPrice", "NewPrice", "price", "")
	}
}

// check runs struct validation on dst and converts failures into a 400 with
// a per-field breakdown.
func (h *Handler) check(dst any) error {
	err := h.validate.Struct(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate")
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = describe(fe)
	}
	return &requestError{status: http.StatusBadRequest, message: "validation failed", fields: fields}
}

// fieldPath strips the top-level struct name from the namespace, so
// "orderRequest.items[0].quantity" becomes "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "must be a valid email address"
	case "gte":
		return "must be at least " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "price":
		return "must have at most 2 decimal places and be below " + maxPrice.String()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
