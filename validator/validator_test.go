package validator

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

type quote struct {
	Name   string            `validate:"required"`
	Price  decimal.Decimal   `validate:"gt=0"`
	Prices []decimal.Decimal `validate:"min=1,dive,gte=0,lte=1"`
}

func TestStructDecimal(t *testing.T) {
	ok := quote{
		Name:   "q",
		Price:  decimal.RequireFromString("0.01"),
		Prices: []decimal.Decimal{decimal.Zero, decimal.RequireFromString("0.99")},
	}
	if err := Struct(ok); err != nil {
		t.Fatalf("valid struct rejected: %v", err)
	}

	tests := map[string]func(q *quote){
		"zero price":   func(q *quote) { q.Price = decimal.Zero },
		"above bound":  func(q *quote) { q.Prices[1] = decimal.RequireFromString("1.5") },
		"empty prices": func(q *quote) { q.Prices = nil },
		"missing name": func(q *quote) { q.Name = "" },
	}
	for name, mutate := range tests {
		q := ok
		q.Prices = append([]decimal.Decimal(nil), ok.Prices...)
		mutate(&q)
		if err := Struct(q); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestDefaultIsShared(t *testing.T) {
	if Default() != Default() {
		t.Errorf("Default must return the shared instance")
	}
	if New() == Default() {
		t.Errorf("New must return a fresh instance")
	}
}

func TestNumericHelpers(t *testing.T) {
	if !IsPositive(1e-9) || IsPositive(0) || IsPositive(math.NaN()) {
		t.Errorf("IsPositive wrong")
	}
	if !IsStrictlyIncreasing([]float64{0.25, 0.5, 1}) || IsStrictlyIncreasing([]float64{0.25, 0.25}) {
		t.Errorf("IsStrictlyIncreasing wrong")
	}
	if !IsStrictlyIncreasing(nil) {
		t.Errorf("empty sequence is increasing")
	}
}
