package services

import (
	"errors"
	"testing"

	"github.com/jobledger/backend/internal/models"
)

func newTestRulesValidator(t *testing.T) *RulesValidator {
	t.Helper()
	v, err := NewRulesValidator()
	if err != nil {
		t.Fatalf("NewRulesValidator: %v", err)
	}
	return v
}

func TestRulesParse_DefaultDocument(t *testing.T) {
	v := newTestRulesValidator(t)
	raw := []byte(`{
		"currency_default": "USD",
		"connect_cost_per_unit": 0.15,
		"platform_fee": {"enabled": false, "mode": "percent", "value": 0.10, "apply_on": "net"},
		"rounding": {"mode": "2dp"},
		"require_percent_allocations_sum_to_1": true
	}`)
	rules, err := v.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	assertMoney(t, "connect_cost_per_unit", rules.ConnectCostPerUnit, "0.15")
	if rules.PlatformFee.Enabled {
		t.Error("platform fee should be disabled")
	}
	if !rules.RequirePercentAllocationsSumTo1 {
		t.Error("require_percent_allocations_sum_to_1 should be true")
	}
}

func TestRulesParse_AcceptsDecimalStringsAndFillsDefaults(t *testing.T) {
	v := newTestRulesValidator(t)
	rules, err := v.Parse([]byte(`{"connect_cost_per_unit": "0.15", "platform_fee": {"enabled": true, "value": "0.2"}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rules.PlatformFee.Mode != models.FeePercent {
		t.Errorf("mode = %q, want percent", rules.PlatformFee.Mode)
	}
	if rules.PlatformFee.ApplyOn != models.FeeOnNet {
		t.Errorf("apply_on = %q, want net", rules.PlatformFee.ApplyOn)
	}
	assertMoney(t, "fee value", rules.PlatformFee.Value, "0.2")
}

func TestRulesParse_Rejects(t *testing.T) {
	v := newTestRulesValidator(t)
	cases := []struct {
		name string
		raw  string
	}{
		{"malformed JSON", `{"connect_cost_per_unit": `},
		{"missing connect cost", `{"platform_fee": {"enabled": false}}`},
		{"negative connect cost", `{"connect_cost_per_unit": -1}`},
		{"negative connect cost string", `{"connect_cost_per_unit": "-0.5"}`},
		{"unknown fee mode", `{"connect_cost_per_unit": 0, "platform_fee": {"mode": "tiered"}}`},
		{"unknown fee base", `{"connect_cost_per_unit": 0, "platform_fee": {"apply_on": "both"}}`},
		{"non-numeric string", `{"connect_cost_per_unit": "cheap"}`},
		{"not an object", `[1, 2]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Parse([]byte(tc.raw))
			if !errors.Is(err, ErrInvalidRules) {
				t.Fatalf("Parse(%s) err = %v, want ErrInvalidRules", tc.raw, err)
			}
		})
	}
}

func TestEncodeRules_ParsesBack(t *testing.T) {
	v := newTestRulesValidator(t)
	in := plainRules()
	in.ConnectCostPerUnit = d("0.15")
	in.CurrencyDefault = "USD"
	raw, err := EncodeRules(in)
	if err != nil {
		t.Fatalf("EncodeRules: %v", err)
	}
	out, err := v.Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%s): %v", raw, err)
	}
	assertMoney(t, "connect cost", out.ConnectCostPerUnit, "0.15")
	if out.CurrencyDefault != "USD" {
		t.Errorf("currency = %q", out.CurrencyDefault)
	}
}
