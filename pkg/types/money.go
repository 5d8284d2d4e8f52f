package types

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a unit price as the order service transmits it: a decimal carried
// as a string so no float drift creeps in between services.
type Money struct {
	dec decimal.Decimal
}

func NewMoney(dec decimal.Decimal) Money {
	return Money{dec: dec}
}

// ParseMoney converts a decimal string ("12.50") into Money.
func ParseMoney(value string) (Money, error) {
	dec, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, fmt.Errorf("parsing money %q: %w", value, err)
	}
	return Money{dec: dec}, nil
}

// MustParseMoney is ParseMoney for literals; it panics on a bad value.
func MustParseMoney(value string) Money {
	money, err := ParseMoney(value)
	if err != nil {
		panic(err)
	}
	return money
}

func (m Money) Decimal() decimal.Decimal {
	return m.dec
}

func (m Money) Add(other Money) Money {
	return Money{dec: m.dec.Add(other.dec)}
}

// MulInt scales a unit price by a quantity.
func (m Money) MulInt(qty int) Money {
	return Money{dec: m.dec.Mul(decimal.NewFromInt(int64(qty)))}
}

func (m Money) IsZero() bool {
	return m.dec.IsZero()
}

func (m Money) Equal(other Money) bool {
	return m.dec.Equal(other.dec)
}

// String renders with two decimal places, matching the wire format.
func (m Money) String() string {
	return m.dec.StringFixed(2)
}

// MarshalJSON emits the price as a string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both a quoted decimal string and a bare JSON number;
// the order service sends strings but older rows carry numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		parsed, perr := ParseMoney(asString)
		if perr != nil {
			return perr
		}
		*m = parsed
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return fmt.Errorf("money must be a string or number: %w", err)
	}
	parsed, err := ParseMoney(asNumber.String())
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
