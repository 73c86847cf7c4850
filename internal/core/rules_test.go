package core

import (
	"context"
	"testing"

	"agrocore/pkg/domain"
)

type fakeView struct {
	harvests []domain.Harvest
	current  string
}

func (v fakeView) ListHarvests() []domain.Harvest { return v.harvests }
func (v fakeView) CurrentHarvestID() string       { return v.current }
func (v fakeView) FindHarvest(id string) (domain.Harvest, bool) {
	for _, h := range v.harvests {
		if h.ID == id {
			return h, true
		}
	}
	return domain.Harvest{}, false
}
func (v fakeView) ListServices(string) []domain.Service { return nil }

func TestHarvestCurrencyRuleAcceptsValidState(t *testing.T) {
	rule := NewHarvestCurrencyRule()
	view := fakeView{
		harvests: []domain.Harvest{
			{Base: domain.Base{ID: "h1"}, Name: "A", Active: true},
			{Base: domain.Base{ID: "h2"}, Name: "B"},
		},
		current: "h1",
	}
	res, err := rule.Evaluate(context.Background(), view, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("valid state must not violate: %+v", res.Violations)
	}
}

func TestHarvestCurrencyRuleIgnoresEmptyRegistry(t *testing.T) {
	res, err := NewHarvestCurrencyRule().Evaluate(context.Background(), fakeView{}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("empty registry must not violate: %+v", res.Violations)
	}
}

func TestHarvestCurrencyRuleBlocksInvalidStates(t *testing.T) {
	cases := []struct {
		name string
		view fakeView
	}{
		{
			"dangling current pointer",
			fakeView{harvests: []domain.Harvest{{Base: domain.Base{ID: "h1"}, Active: true}}, current: "gone"},
		},
		{
			"no active harvest",
			fakeView{harvests: []domain.Harvest{{Base: domain.Base{ID: "h1"}}}, current: "h1"},
		},
		{
			"two active harvests",
			fakeView{harvests: []domain.Harvest{
				{Base: domain.Base{ID: "h1"}, Active: true},
				{Base: domain.Base{ID: "h2"}, Active: true},
			}, current: "h1"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := NewHarvestCurrencyRule().Evaluate(context.Background(), tc.view, nil)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if !res.HasBlocking() {
				t.Fatalf("expected blocking violation, got %+v", res.Violations)
			}
		})
	}
}

func TestHourMeterRuleWarnsOnBackwardsReadings(t *testing.T) {
	rule := NewHourMeterRule()
	changes := []domain.Change{
		{Entity: domain.EntityService, Action: domain.ActionCreate, After: domain.Service{Base: domain.Base{ID: "s1"}, HourMeterStart: 10, HourMeterEnd: 8}},
		{Entity: domain.EntityService, Action: domain.ActionCreate, After: domain.Service{Base: domain.Base{ID: "s2"}, HourMeterStart: 8, HourMeterEnd: 10}},
		{Entity: domain.EntityService, Action: domain.ActionDelete, Before: domain.Service{Base: domain.Base{ID: "s3"}, HourMeterStart: 10, HourMeterEnd: 8}},
		{Entity: domain.EntityClient, Action: domain.ActionCreate, After: domain.Client{}},
	}
	res, err := rule.Evaluate(context.Background(), fakeView{}, changes)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.HasBlocking() {
		t.Fatalf("hour meter rule must never block")
	}
	warnings := res.Warnings()
	if len(warnings) != 1 || warnings[0].EntityID != "s1" {
		t.Fatalf("expected one warning for s1, got %+v", warnings)
	}
}
