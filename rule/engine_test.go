package rule

import (
	"os"
	"path/filepath"
	"testing"
)

const discountRules = `
rule "MemberDiscount" salience 10 {
    when
        is_member == true && cart_total >= 100.0
    then
        discount = 0.15;
}

rule "RegularDiscount" salience 5 {
    when
        cart_total >= 100.0 && discount == 0.0
    then
        discount = 0.10;
}
`

func TestEngine_SalienceOrdering(t *testing.T) {
	engine := NewEngine()
	if err := engine.AddGRL(discountRules); err != nil {
		t.Fatalf("AddGRL: %v", err)
	}

	result, err := engine.Evaluate(map[string]any{
		"cart_total": 150.0,
		"is_member":  true,
		"discount":   0.0,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	// MemberDiscount fires first and invalidates RegularDiscount's
	// guard, so exactly one rule fires.
	if result.Fired != 1 {
		t.Errorf("Fired = %d, want 1", result.Fired)
	}
	if got := result.Facts["discount"]; got != 0.15 {
		t.Errorf("discount = %v, want 0.15", got)
	}
}

func TestEngine_NonMemberFallsThrough(t *testing.T) {
	engine := NewEngine()
	if err := engine.AddGRL(discountRules); err != nil {
		t.Fatalf("AddGRL: %v", err)
	}

	result, err := engine.Evaluate(map[string]any{
		"cart_total": 150.0,
		"is_member":  false,
		"discount":   0.0,
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Fired != 1 {
		t.Errorf("Fired = %d, want 1", result.Fired)
	}
	if got := result.Facts["discount"]; got != 0.10 {
		t.Errorf("discount = %v, want 0.10", got)
	}
}

func TestEngine_Determinism(t *testing.T) {
	engine := NewEngine()
	if err := engine.AddGRL(discountRules); err != nil {
		t.Fatalf("AddGRL: %v", err)
	}

	facts := map[string]any{"cart_total": 150.0, "is_member": true, "discount": 0.0}
	first, err := engine.Evaluate(facts)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := engine.Evaluate(facts)
		if err != nil {
			t.Fatalf("Evaluate #%d: %v", i, err)
		}
		if again.Fired != first.Fired || again.Facts["discount"] != first.Facts["discount"] {
			t.Fatalf("run %d diverged: %+v vs %+v", i, again, first)
		}
	}
}

func TestEngine_AgeVerification(t *testing.T) {
	engine := NewEngine()
	err := engine.AddGRL(`
rule "AgeVerification" {
    when
        age >= 18
    then
        verified = true;
}
`)
	if err != nil {
		t.Fatalf("AddGRL: %v", err)
	}

	result, err := engine.Evaluate(map[string]any{"age": 25, "verified": false})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Fired != 1 || result.Facts["verified"] != true {
		t.Errorf("result = %+v", result)
	}

	result, err = engine.Evaluate(map[string]any{"age": 16, "verified": false})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Fired != 0 || result.Facts["verified"] != false {
		t.Errorf("underage result = %+v", result)
	}
}

func TestEngine_ChainedFiring(t *testing.T) {
	engine := NewEngine()
	err := engine.AddGRL(`
rule "First" {
    when stage == 1
    then stage = 2;
}
rule "Second" {
    when stage == 2
    then stage = 3; done = true;
}
`)
	if err != nil {
		t.Fatalf("AddGRL: %v", err)
	}

	// Second only matches after First fires; the loop must run a
	// second cycle to pick it up.
	result, err := engine.Evaluate(map[string]any{"stage": 1, "done": false})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Fired != 2 {
		t.Errorf("Fired = %d, want 2", result.Fired)
	}
	if result.Facts["done"] != true {
		t.Errorf("done = %v, want true", result.Facts["done"])
	}
}

func TestEngine_AddGRLParseError(t *testing.T) {
	engine := NewEngine()
	if err := engine.AddGRL(`rule "broken" { when then x = 1; }`); err == nil {
		t.Fatal("AddGRL accepted a malformed rule")
	}
}

func TestIncrementalEngine_CycleBound(t *testing.T) {
	engine := NewIncrementalEngine()
	engine.MaxCycles = 10
	// The rule's condition still holds after every firing; the fired
	// set stops it after one firing, then Reset lets it fire again.
	engine.AddRule(Rule{Name: "bump", When: mustExpr(t, "n >= 0"), Actions: mustActions(t, "n = n + 1;")})
	engine.Insert(map[string]any{"n": int64(0)})

	if fired := engine.FireAll(); fired != 1 {
		t.Errorf("first FireAll = %d, want 1", fired)
	}
	// Without Reset the rule stays consumed.
	if fired := engine.FireAll(); fired != 0 {
		t.Errorf("second FireAll = %d, want 0", fired)
	}
	engine.Reset()
	if fired := engine.FireAll(); fired != 1 {
		t.Errorf("FireAll after Reset = %d, want 1", fired)
	}
}

func TestIncrementalEngine_Templates(t *testing.T) {
	engine := NewIncrementalEngine()
	engine.Templates().Register(NewTemplate("PurchasingData").
		FloatField("avg_daily_demand").
		StringField("trend").
		FloatField("available_qty").
		FloatField("reserved_qty").
		FloatField("moq").
		IntField("lead_time").
		FloatField("unit_price").
		Build())

	err := LoadGRLInto(`
rule "ReorderLowStock" salience 10 {
    when
        available_qty - reserved_qty < avg_daily_demand * 7.0
    then
        should_order = true;
}
`, engine)
	if err != nil {
		t.Fatalf("LoadGRLInto: %v", err)
	}

	h, err := engine.InsertWithTemplate("PurchasingData", map[string]any{
		"avg_daily_demand": 12.0,
		"trend":            "increasing",
		"available_qty":    50.0,
		"reserved_qty":     20.0,
		"moq":              100.0,
		"lead_time":        14,
		"unit_price":       3.25,
	})
	if err != nil {
		t.Fatalf("InsertWithTemplate: %v", err)
	}

	engine.Reset()
	if fired := engine.FireAll(); fired != 1 {
		t.Errorf("FireAll = %d, want 1", fired)
	}
	facts, ok := engine.Fact(h)
	if !ok {
		t.Fatal("fact handle lost")
	}
	if facts["should_order"] != true {
		t.Errorf("should_order = %v, want true", facts["should_order"])
	}
	if facts["lead_time"] != int64(14) {
		t.Errorf("lead_time normalized to %v (%T), want int64", facts["lead_time"], facts["lead_time"])
	}
}

func TestIncrementalEngine_TemplateValidation(t *testing.T) {
	engine := NewIncrementalEngine()
	engine.Templates().Register(NewTemplate("T").FloatField("qty").Build())

	if _, err := engine.InsertWithTemplate("Missing", map[string]any{"qty": 1.0}); err == nil {
		t.Error("unknown template accepted")
	}
	if _, err := engine.InsertWithTemplate("T", map[string]any{}); err == nil {
		t.Error("missing field accepted")
	}
	if _, err := engine.InsertWithTemplate("T", map[string]any{"qty": "a lot"}); err == nil {
		t.Error("mistyped field accepted")
	}
	if _, err := engine.InsertWithTemplate("T", map[string]any{"qty": 1.0, "extra": 1}); err == nil {
		t.Error("undeclared field accepted")
	}
}

func TestIncrementalEngine_Retract(t *testing.T) {
	engine := NewIncrementalEngine()
	engine.AddRule(Rule{Name: "present", When: mustExpr(t, "flag == true"), Actions: mustActions(t, "seen = true;")})

	h := engine.Insert(map[string]any{"flag": true})
	engine.Retract(h)
	if fired := engine.FireAll(); fired != 0 {
		t.Errorf("FireAll over retracted fact = %d, want 0", fired)
	}
}

func TestLoadGRLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.grl")
	if err := os.WriteFile(path, []byte(discountRules), 0o644); err != nil {
		t.Fatal(err)
	}
	rules, err := LoadGRLFile(path)
	if err != nil {
		t.Fatalf("LoadGRLFile: %v", err)
	}
	if len(rules) != 2 || rules[0].Name != "MemberDiscount" {
		t.Errorf("rules = %+v", rules)
	}
}
