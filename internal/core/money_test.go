package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.005", true}, // kept exact, no rounding
		{" 2.50 ", "2.5", true},
		{"-5", "", false},
		{"-1", "", false},
		{"0", "", false},
		{"0.00", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err != ErrInvalidAmount {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestNumberIsJSONNumber(t *testing.T) {
	b, err := json.Marshal(map[string]json.Number{"v": Number(decimal.RequireFromString("40.50"))})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"v":40.5}` {
		t.Fatalf("unexpected json: %s", b)
	}
}
