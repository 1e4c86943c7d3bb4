package engine

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Spok95/tienda-pos/internal/apperr"
	"github.com/Spok95/tienda-pos/internal/domain/inventory"
	"github.com/Spok95/tienda-pos/internal/domain/sales"
)

type LineInput struct {
	ProductID int64           `json:"product_id" validate:"gt=0"`
	Quantity  int             `json:"quantity" validate:"gt=0,lte=1000000"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
}

type CreateSaleInput struct {
	CustomerID      *int64          `json:"customer_id" validate:"omitempty,gt=0"`
	PaymentMethodID int64           `json:"payment_method_id" validate:"gt=0"`
	Lines           []LineInput     `json:"lines" validate:"required,min=1,dive"`
	Discount        decimal.Decimal `json:"discount"`
	Tax             decimal.Decimal `json:"tax"`
	Tip             decimal.Decimal `json:"tip"`
	Channel         sales.Channel   `json:"channel" validate:"omitempty,oneof=in-store online"`
}

type AdjustInput struct {
	Kind     inventory.Kind `json:"kind" validate:"required,oneof=entry exit adjustment"`
	Quantity int            `json:"quantity" validate:"gte=0,lte=1000000"`
	Reason   string         `json:"reason" validate:"max=500"`
}

// moneyPlaces matches the NUMERIC(14,2) money columns.
const moneyPlaces = 2

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct validates v's tags and reports failures as a VALIDATION_ERROR keyed by JSON field path.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[trimRoot(fe.Namespace())] = fe.Tag()
	}
	return apperr.ValidationFields("invalid input", fields)
}

func trimRoot(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func (in CreateSaleInput) validate() error {
	if err := Struct(in); err != nil {
		return err
	}
	fields := map[string]string{}
	nonNegative := func(name string, d decimal.Decimal) {
		switch {
		case d.IsNegative():
			fields[name] = "gte=0"
		case !d.Equal(d.Round(moneyPlaces)):
			fields[name] = "decimals=2"
		}
	}
	nonNegative("discount", in.Discount)
	nonNegative("tax", in.Tax)
	nonNegative("tip", in.Tip)
	for i, l := range in.Lines {
		nonNegative(lineField(i, "unit_price"), l.UnitPrice)
		nonNegative(lineField(i, "discount"), l.Discount)
	}
	if len(fields) > 0 {
		return apperr.ValidationFields("invalid input", fields)
	}
	return nil
}

func lineField(i int, name string) string {
	return "lines[" + strconv.Itoa(i) + "]." + name
}

func (in AdjustInput) validate() error {
	if err := Struct(in); err != nil {
		return err
	}
	if in.Kind != inventory.KindAdjustment && in.Quantity <= 0 {
		return apperr.ValidationFields("invalid input", map[string]string{"quantity": "gt=0"})
	}
	return nil
}
