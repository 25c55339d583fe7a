package types

import (
	"encoding/json"
	"errors"
	"testing"
)

const maxU128 = "340282366920938463463374607431768211455"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"0", "0", false},
		{"100", "100", false},
		{" 42 ", "42", false},
		{maxU128, maxU128, false},
		{"340282366920938463463374607431768211456", "", true},
		{"", "", true},
		{"-1", "", true},
		{"+1", "", true},
		{"1.5", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("expected ErrInvalidAmount, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAmountArithmetic(t *testing.T) {
	top := MustParseAmount(maxU128)

	tests := []struct {
		name    string
		op      func() (Amount, error)
		want    string
		wantErr error
	}{
		{"Add", func() (Amount, error) { return NewAmount(100).Add(NewAmount(250)) }, "350", nil},
		{"Add to max", func() (Amount, error) { return top.Add(ZeroAmount) }, maxU128, nil},
		{"Add overflow", func() (Amount, error) { return top.Add(NewAmount(1)) }, "", ErrOverflow},
		{"Mul64", func() (Amount, error) { return NewAmount(2160).Mul64(10_000_000_000_000_000_000) }, "21600000000000000000000", nil},
		{"Mul64 crosses 64 bits", func() (Amount, error) { return NewAmount(1 << 63).Mul64(4) }, "36893488147419103232", nil},
		{"Mul64 by zero", func() (Amount, error) { return top.Mul64(0) }, "0", nil},
		{"Mul64 overflow", func() (Amount, error) { return top.Mul64(2) }, "", ErrOverflow},
		{"Sum", func() (Amount, error) { return Sum(NewAmount(1), NewAmount(2), NewAmount(3)) }, "6", nil},
		{"Sum empty", func() (Amount, error) { return Sum() }, "0", nil},
		{"Sum overflow", func() (Amount, error) { return Sum(top, NewAmount(1)) }, "", ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAmountDiv64(t *testing.T) {
	if got := NewAmount(237_600).Div64(10); got.String() != "23760" {
		t.Errorf("got %s, want 23760", got)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for division by zero")
		}
	}()
	_ = NewAmount(1).Div64(0)
}

func TestAmountComparison(t *testing.T) {
	a, b := NewAmount(5), NewAmount(7)
	if a.Cmp(b) != -1 || b.Cmp(a) != 1 || a.Cmp(a) != 0 {
		t.Error("Cmp ordering is wrong")
	}
	if !a.Equal(NewAmount(5)) {
		t.Error("expected equal amounts")
	}
	if !ZeroAmount.IsZero() || a.IsZero() {
		t.Error("IsZero is wrong")
	}
}

func TestAmountFormat(t *testing.T) {
	tests := []struct {
		amount   Amount
		decimals int32
		want     string
	}{
		{MustParseAmount("1500000000000000000000000"), NativeDecimals, "1.5"},
		{MustParseAmount("1000000000000000000000000"), NativeDecimals, "1"},
		{NewAmount(1), NativeDecimals, "0.000000000000000000000001"},
		{NewAmount(123456), 6, "0.123456"},
		{ZeroAmount, 6, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.amount.Format(tt.decimals); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAmountJSON(t *testing.T) {
	data, err := json.Marshal(MustParseAmount(maxU128))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"`+maxU128+`"` {
		t.Errorf("got %s", data)
	}

	var fromString, fromNumber Amount
	if err := json.Unmarshal([]byte(`"250"`), &fromString); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if err := json.Unmarshal([]byte(`250`), &fromNumber); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if !fromString.Equal(NewAmount(250)) || !fromNumber.Equal(NewAmount(250)) {
		t.Errorf("got %s and %s, want 250", fromString, fromNumber)
	}

	var bad Amount
	if err := json.Unmarshal([]byte(`"-5"`), &bad); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestAmountValueScan(t *testing.T) {
	original := MustParseAmount("23760000000000000000000")
	v, err := original.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var scanned Amount
	if err := scanned.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !scanned.Equal(original) {
		t.Errorf("got %s, want %s", scanned, original)
	}

	if err := scanned.Scan([]byte("7")); err != nil || !scanned.Equal(NewAmount(7)) {
		t.Errorf("Scan([]byte): %v, %s", err, scanned)
	}
	if err := scanned.Scan(int64(-1)); err == nil {
		t.Error("expected error scanning a negative integer")
	}
}
