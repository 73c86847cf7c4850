package core

import (
	"context"
	"fmt"

	"agrocore/pkg/domain"
)

// NewHourMeterRule returns the rule flagging services whose hour meter ran
// backwards. The violation is a warning, not a block: operators sometimes
// key readings in the wrong order and fix them later, and analytics already
// clamps negative intervals to zero flight hours.
func NewHourMeterRule() domain.Rule {
	return hourMeterRule{}
}

type hourMeterRule struct{}

func (hourMeterRule) Name() string { return "hour_meter_order" }

func (hourMeterRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityService {
			continue
		}
		if change.Action != domain.ActionCreate && change.Action != domain.ActionUpdate {
			continue
		}
		svc, ok := change.After.(domain.Service)
		if !ok {
			continue
		}
		if svc.HourMeterEnd < svc.HourMeterStart {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "hour_meter_order",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("service %s hour meter runs backwards: %.1f -> %.1f", svc.ID, svc.HourMeterStart, svc.HourMeterEnd),
				Entity:   domain.EntityService,
				EntityID: svc.ID,
			})
		}
	}
	return res, nil
}
