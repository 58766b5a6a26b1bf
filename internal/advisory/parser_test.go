package advisory

import (
	"errors"
	"testing"
)

func TestParseAssessment_Standard(t *testing.T) {
	output := `Here is my assessment.

RISK: 7
RATIONALE: A slow leak under the sink will rot the subfloor.
CURRENT_COST: $150
DELAYED_COST: $2,400
`
	a, err := ParseAssessment(output)
	if err != nil {
		t.Fatalf("ParseAssessment: %v", err)
	}
	if a.CascadeRisk == nil || *a.CascadeRisk != 7 {
		t.Errorf("expected risk 7, got %v", a.CascadeRisk)
	}
	if a.Rationale != "A slow leak under the sink will rot the subfloor." {
		t.Errorf("unexpected rationale %q", a.Rationale)
	}
	if a.CurrentCost == nil || *a.CurrentCost != 150 {
		t.Errorf("expected current cost 150, got %v", a.CurrentCost)
	}
	if a.DelayedCost == nil || *a.DelayedCost != 2400 {
		t.Errorf("expected delayed cost 2400, got %v", a.DelayedCost)
	}
}

func TestParseAssessment_LenientFormatting(t *testing.T) {
	output := "**Risk:** 8/10\n- nothing here\ncurrent_cost: 300 USD\n"
	a, err := ParseAssessment(output)
	if err != nil {
		t.Fatalf("ParseAssessment: %v", err)
	}
	if a.CascadeRisk == nil || *a.CascadeRisk != 8 {
		t.Errorf("expected risk 8, got %v", a.CascadeRisk)
	}
	if a.CurrentCost == nil || *a.CurrentCost != 300 {
		t.Errorf("expected current cost 300, got %v", a.CurrentCost)
	}
	if a.DelayedCost != nil {
		t.Errorf("expected no delayed cost, got %v", *a.DelayedCost)
	}
}

func TestParseAssessment_ClampsRisk(t *testing.T) {
	a, err := ParseAssessment("RISK: 14")
	if err != nil {
		t.Fatalf("ParseAssessment: %v", err)
	}
	if *a.CascadeRisk != 10 {
		t.Errorf("expected clamp to 10, got %v", *a.CascadeRisk)
	}
}

func TestParseAssessment_Empty(t *testing.T) {
	if _, err := ParseAssessment("I cannot help with that."); !errors.Is(err, ErrNoAssessment) {
		t.Errorf("expected ErrNoAssessment, got %v", err)
	}
	if _, err := ParseAssessment("RISK: high"); !errors.Is(err, ErrNoAssessment) {
		t.Errorf("expected ErrNoAssessment for non-numeric risk, got %v", err)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{"$1,250.50", 1250.5, true},
		{"6.5/10", 6.5, true},
		{"-3", -3, true},
		{"about 5", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
