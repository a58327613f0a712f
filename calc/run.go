package calc

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// COMPANY RUN - every active employee of a month
// =============================================================================

// Input is everything Calculate needs for one employee.
type Input struct {
	Snapshot payroll.Snapshot
	Absences payroll.AbsenceTotals
	Overtime payroll.OvertimeTotals
}

// Totals sums a company run.
type Totals struct {
	GrossPay        decimal.Decimal `json:"gross_pay"`
	SocialSecurity  decimal.Decimal `json:"social_security"`
	Tax             decimal.Decimal `json:"tax"`
	InKindDeduction decimal.Decimal `json:"in_kind_deduction"`
	NetPay          decimal.Decimal `json:"net_pay"`
}

// Report is the payroll of a company for one month.
type Report struct {
	CompanyID string         `json:"company_id"`
	Period    payroll.Period `json:"period"`
	Results   []Result       `json:"results"`
	Totals    Totals         `json:"totals"`
}

// SnapshotSource lists the employees to pay.
type SnapshotSource interface {
	ListActive(ctx context.Context, scope payroll.Scope, period payroll.Period) ([]payroll.Snapshot, error)
}

// LedgerSource sums an employee's absences and overtime.
type LedgerSource interface {
	Aggregate(ctx context.Context, scope payroll.Scope, employee string, period payroll.Period) (payroll.AbsenceTotals, payroll.OvertimeTotals, error)
}

// Collect resolves every active employee and their ledger totals.
func Collect(ctx context.Context, snapshots SnapshotSource, ledger LedgerSource, scope payroll.Scope, period payroll.Period) ([]Input, error) {
	active, err := snapshots.ListActive(ctx, scope, period)
	if err != nil {
		return nil, err
	}
	inputs := make([]Input, 0, len(active))
	for _, snap := range active {
		a, o, err := ledger.Aggregate(ctx, scope, snap.Employee, period)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", snap.Employee, err)
		}
		inputs = append(inputs, Input{Snapshot: snap, Absences: a, Overtime: o})
	}
	return inputs, nil
}

// RunPayroll calculates every input with the same configuration and options.
// One malformed input fails the whole run.
func RunPayroll(period payroll.Period, inputs []Input, cfg PeriodConfig, opts Options) (Report, error) {
	report := Report{
		CompanyID: cfg.CompanyID,
		Period:    period,
		Results:   make([]Result, 0, len(inputs)),
	}
	for _, in := range inputs {
		r, err := Calculate(in.Snapshot, in.Absences, in.Overtime, cfg, opts)
		if err != nil {
			return Report{}, fmt.Errorf("calculate %s: %w", in.Snapshot.Employee, err)
		}
		report.Results = append(report.Results, r)
		report.Totals.GrossPay = report.Totals.GrossPay.Add(r.GrossPay)
		report.Totals.SocialSecurity = report.Totals.SocialSecurity.Add(r.SocialSecurity)
		report.Totals.Tax = report.Totals.Tax.Add(r.Tax)
		report.Totals.InKindDeduction = report.Totals.InKindDeduction.Add(r.InKindDeduction)
		report.Totals.NetPay = report.Totals.NetPay.Add(r.NetPay)
	}
	return report, nil
}
