package domain

import (
	"encoding/json"
	"testing"
)

func TestParametersClone_Isolation(t *testing.T) {
	p := DefaultParameters()
	p.ActiveShocks = append(p.ActiveShocks, Shock{ID: "S1", Impact: -0.15})

	c := p.Clone()
	c.ActiveShocks[0].Impact = 0.5

	if p.ActiveShocks[0].Impact != -0.15 {
		t.Errorf("clone shares shock slice: original impact = %v", p.ActiveShocks[0].Impact)
	}
}

func TestToggleShock(t *testing.T) {
	crash, ok := LookupShock(ShockMarketCrash)
	if !ok {
		t.Fatal("market crash missing from catalogue")
	}
	hike, _ := LookupShock(ShockRateHike)

	p := DefaultParameters()
	on := p.ToggleShock(crash).ToggleShock(hike)
	if !on.HasShock(ShockMarketCrash) || !on.HasShock(ShockRateHike) {
		t.Fatalf("expected both shocks active, got %+v", on.ActiveShocks)
	}
	if len(p.ActiveShocks) != 0 {
		t.Error("ToggleShock mutated receiver")
	}

	off := on.ToggleShock(crash)
	if off.HasShock(ShockMarketCrash) {
		t.Error("expected market crash to be removed")
	}
	if len(off.ActiveShocks) != 1 || off.ActiveShocks[0].ID != ShockRateHike {
		t.Errorf("unexpected shocks after toggle off: %+v", off.ActiveShocks)
	}
	if len(on.ActiveShocks) != 2 {
		t.Error("toggle off mutated source parameters")
	}
}

func TestShockSum(t *testing.T) {
	p := DefaultParameters()
	if p.ShockSum() != 0 {
		t.Errorf("empty ShockSum = %v, want 0", p.ShockSum())
	}

	for _, s := range ShockCatalogue() {
		p = p.ToggleShock(s)
	}
	a, b, c := -0.15, -0.05, 0.10
	want := a + b + c
	if got := p.ShockSum(); got != want {
		t.Errorf("ShockSum = %v, want %v", got, want)
	}
}

func TestShockCatalogue_ReturnsCopy(t *testing.T) {
	cat := ShockCatalogue()
	cat[0].Impact = 0

	s, _ := LookupShock(ShockMarketCrash)
	if s.Impact != -0.15 {
		t.Errorf("catalogue mutated through returned slice: %v", s.Impact)
	}
	if _, ok := LookupShock("S9"); ok {
		t.Error("unexpected shock S9")
	}
}

func TestChaosShock_Unnamed(t *testing.T) {
	s := ChaosShock()
	if s.ID != "" || s.Name != "" || s.Impact != ChaosShockImpact {
		t.Errorf("ChaosShock = %+v", s)
	}
}

func TestScenarioJSON(t *testing.T) {
	sc := DefaultScenario(1700000000000)
	raw, err := json.Marshal(sc)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for _, k := range []string{"id", "name", "timestamp", "params"} {
		if _, ok := fields[k]; !ok {
			t.Errorf("missing field %q in %s", k, raw)
		}
	}

	var params map[string]json.RawMessage
	_ = json.Unmarshal(fields["params"], &params)
	for _, k := range []string{"seed", "rate", "volatility", "activeShocks", "model", "iterations", "tripwireEnabled", "chaosMode"} {
		if _, ok := params[k]; !ok {
			t.Errorf("missing params field %q", k)
		}
	}
	if string(params["activeShocks"]) != "[]" {
		t.Errorf("activeShocks = %s, want []", params["activeShocks"])
	}
}

func TestDefaultScenario(t *testing.T) {
	sc := DefaultScenario(42)
	if !sc.IsDefault() || sc.Name != "Baseline" || sc.Timestamp != 42 {
		t.Errorf("DefaultScenario = %+v", sc)
	}
	p := sc.Params
	if p.Seed != "Northfield" || p.Model != ModelGrowthV1 || p.Iterations != 120 || !p.TripwireEnabled || p.ChaosMode {
		t.Errorf("unexpected default params %+v", p)
	}
}
