package types

import (
	"encoding/json"
	"testing"
)

func TestParseMoney(t *testing.T) {
	m, err := ParseMoney("12.50")
	if err != nil {
		t.Fatalf("ParseMoney: %v", err)
	}
	if m.String() != "12.50" {
		t.Fatalf("unexpected rendering: %s", m.String())
	}
	if _, err := ParseMoney("twelve"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a, _ := ParseMoney("3.10")
	b, _ := ParseMoney("0.20")
	if got := a.Add(b).String(); got != "3.30" {
		t.Fatalf("unexpected sum: %s", got)
	}
	if got := a.MulInt(3).String(); got != "9.30" {
		t.Fatalf("unexpected product: %s", got)
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	var m Money
	if err := json.Unmarshal([]byte(`"7.25"`), &m); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"7.25"` {
		t.Fatalf("unexpected json: %s", out)
	}

	if err := json.Unmarshal([]byte(`7.25`), &m); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if m.String() != "7.25" {
		t.Fatalf("unexpected value: %s", m.String())
	}
}
