package plan

import (
	"strings"
	"testing"
)

func validPlan() Plan {
	return Plan{
		Activity: Activity{Title: "Two weeks in Spain", Category: "travel"},
		Tasks: []Task{
			{Title: "Book flights", Priority: PriorityHigh, Order: 1, TimeEstimate: "1 hour"},
			{Title: "Reserve hotels", Priority: PriorityMedium, Order: 2, TimeEstimate: "2 hours"},
			{Title: "Draft day plans", Priority: PriorityLow, Order: 3, TimeEstimate: "an evening"},
		},
	}
}

func TestValidateAccepts(t *testing.T) {
	p := validPlan()
	if err := p.Validate(); err != nil {
		t.Fatalf("expected valid plan: %v", err)
	}
}

func TestValidateRejectsNonContiguousOrder(t *testing.T) {
	p := validPlan()
	p.Tasks[2].Order = 4 // 1,2,4
	if err := p.Validate(); err == nil {
		t.Fatalf("expected order error")
	}
}

func TestValidateRejectsBadPriority(t *testing.T) {
	p := validPlan()
	p.Tasks[1].Priority = "urgent"
	if err := p.Validate(); err == nil {
		t.Fatalf("expected priority error")
	}
}

func TestValidateRejectsEmpty(t *testing.T) {
	p := Plan{Activity: Activity{Title: "x"}}
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error for plan without tasks")
	}
	p = validPlan()
	p.Activity.Title = " "
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error for untitled activity")
	}
}

func TestDecodePlainJSON(t *testing.T) {
	raw := `{"activity":{"title":"Dinner for eight","category":"dining"},"tasks":[{"title":"Pick restaurant","priority":"high","order":1},{"title":"Book table","priority":"medium","order":2}]}`
	p, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Activity.Title != "Dinner for eight" || len(p.Tasks) != 2 {
		t.Fatalf("unexpected plan: %+v", p)
	}
}

func TestDecodeFencedJSON(t *testing.T) {
	raw := "```json\n{\"activity\":{\"title\":\"Game night\",\"category\":\"social\"},\"tasks\":[{\"title\":\"Invite friends\",\"priority\":\"high\",\"order\":1}]}\n```"
	p, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode fenced: %v", err)
	}
	if p.Activity.Title != "Game night" {
		t.Fatalf("unexpected activity: %+v", p.Activity)
	}
}

func TestDecodeRepairsTrailingComma(t *testing.T) {
	raw := `{"activity":{"title":"Learn SQL","category":"learning"},"tasks":[{"title":"Install sqlite","priority":"high","order":1},]}`
	p, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode repaired: %v", err)
	}
	if len(p.Tasks) != 1 {
		t.Fatalf("expected one task, got %d", len(p.Tasks))
	}
}

func TestDecodeRejectsInvalidSchema(t *testing.T) {
	raw := `{"activity":{"title":"Bad"},"tasks":[{"title":"a","priority":"high","order":1},{"title":"b","priority":"high","order":3}]}`
	if _, err := Decode(raw); err == nil || !strings.Contains(err.Error(), "invalid plan") {
		t.Fatalf("expected schema rejection, got %v", err)
	}
}

func TestDecodeRejectsEmpty(t *testing.T) {
	if _, err := Decode("   "); err == nil {
		t.Fatalf("expected error for empty response")
	}
}
