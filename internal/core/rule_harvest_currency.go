package core

import (
	"context"
	"fmt"

	"agrocore/pkg/domain"
)

// NewHarvestCurrencyRule returns the in-transaction rule enforcing that
// exactly one harvest is current whenever any harvest exists, and that the
// current pointer resolves to a registered harvest.
func NewHarvestCurrencyRule() domain.Rule {
	return harvestCurrencyRule{}
}

type harvestCurrencyRule struct{}

func (harvestCurrencyRule) Name() string { return "harvest_currency" }

func (harvestCurrencyRule) Evaluate(_ context.Context, view domain.TransactionView, _ []domain.Change) (domain.Result, error) {
	harvests := view.ListHarvests()
	if len(harvests) == 0 {
		return domain.Result{}, nil
	}

	res := domain.Result{}
	currentID := view.CurrentHarvestID()
	if _, ok := view.FindHarvest(currentID); !ok {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "harvest_currency",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("current harvest %q is not registered", currentID),
			Entity:   domain.EntityHarvest,
			EntityID: currentID,
		})
	}

	active := 0
	for _, h := range harvests {
		if h.Active {
			active++
			if h.ID != currentID {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "harvest_currency",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("harvest %s (%s) is active but not current", h.Name, h.ID),
					Entity:   domain.EntityHarvest,
					EntityID: h.ID,
				})
			}
		}
	}
	if active != 1 {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "harvest_currency",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("expected exactly one active harvest, found %d", active),
			Entity:   domain.EntityHarvest,
		})
	}
	return res, nil
}
