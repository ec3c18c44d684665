package format

import (
	"encoding/json"
	"errors"
	"github.com/langowen/cryptoconvert/internal/entities"
	"github.com/shopspring/decimal"
	"math"
	"testing"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		precision int32
		want      float64
	}{
		{"float unrounded", 1.123456789123, Unrounded, 1.123456789123},
		{"float crypto", 1.123456789123, CryptoPrecision, 1.12345679},
		{"float fiat", 2.71828, FiatPrecision, 2.7183},
		{"int", 42, CryptoPrecision, 42},
		{"string", " 0.5 ", Unrounded, 0.5},
		{"string exponent", "1e3", Unrounded, 1000},
		{"json number", json.Number("12.34567"), FiatPrecision, 12.3457},
		{"decimal", decimal.RequireFromString("3.14159"), 2, 3.14},
		{"negative half", -0.00005, FiatPrecision, -0.0001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Number(tt.value, tt.precision)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Number(%v, %d) = %v, want %v", tt.value, tt.precision, got, tt.want)
			}
		})
	}
}

func TestNumberInvalid(t *testing.T) {
	for _, value := range []any{nil, "", "   ", "abc", "12abc", math.NaN(), math.Inf(1), struct{}{}} {
		if _, err := Number(value, Unrounded); !errors.Is(err, entities.ErrInvalidAmount) {
			t.Errorf("Number(%v) error = %v, want ErrInvalidAmount", value, err)
		}
	}
}

func TestRound(t *testing.T) {
	if got := Round(90000.000000001, CryptoPrecision); got != 90000 {
		t.Errorf("Round = %v, want 90000", got)
	}
	if got := Round(1.23456, Unrounded); got != 1.23456 {
		t.Errorf("Round unrounded = %v", got)
	}
	if got := Round(math.Inf(-1), 2); !math.IsInf(got, -1) {
		t.Errorf("Round(-Inf) = %v", got)
	}
}

func TestIsEmpty(t *testing.T) {
	if !IsEmpty(map[string]float64{}) {
		t.Error("empty map reported as populated")
	}
	if !IsEmpty[string, float64](nil) {
		t.Error("nil map reported as populated")
	}
	if IsEmpty(map[string]float64{"BTCUSD": 1}) {
		t.Error("populated map reported as empty")
	}
}
