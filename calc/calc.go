/*
calc.go - Monthly payroll calculation

PURPOSE:
  Pure function from a resolved snapshot, the month's ledger totals and the
  company configuration to a payroll breakdown. No I/O, no clock: identical
  inputs give identical results.

FORMULAS:
  proratedPay      = base/30 * max(30 - leaveDays - sickDays, 0)
  mealAllowance    = dailyMeal * max(workingDays - leaveDays - sickDays, 0)
  nightPremium     = nightHours * hourlyRate * 0.25
  sundayPay        = sundayHours * hourlyRate
  holidayPay       = holidayHours * hourlyRate * 2
  subsidy          = lump: base | prorated: base/12 | suppressed: 0
  overtimeBankPay  = extraHours * hourlyRate
  gross            = sum of the above + other earnings
  ssBase = taxBase = gross - mealAllowance
  socialSecurity   = ssBase * 11%
  tax              = taxBase * rate (flat percent, or bracket table)
  inKind           = mealAllowance when paid by meal card
  net              = gross - socialSecurity - tax - inKind

ROUNDING:
  Every reported amount is rounded to cents, half away from zero. Totals are
  sums of rounded components, so a payslip always adds up.

SEE ALSO:
  - brackets.go: BracketTable
  - payroll/wage.go: BaseWage / HourlyRate
*/
package calc

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

// OvertimePolicy says whether a company tracks overtime categories.
type OvertimePolicy string

const (
	OvertimeTracked   OvertimePolicy = "tracked"
	OvertimeUntracked OvertimePolicy = "untracked"
)

// PeriodConfig is the company configuration in force for the month.
type PeriodConfig struct {
	CompanyID string
	MinWage   decimal.Decimal
	Calendar  payroll.HolidayCalendar
	Overtime  OvertimePolicy
	Brackets  BracketTable // zero value means DefaultBrackets
}

// Options are operator toggles for one calculation. Nil leaves the
// snapshot's own setting.
type Options struct {
	MealCard         *bool
	VacationSubsidy  *payroll.SubsidyMode
	ChristmasSubsidy *payroll.SubsidyMode
}

// Result is the payroll breakdown of one employee and month.
type Result struct {
	Employee string         `json:"employee"`
	Period   payroll.Period `json:"period"`

	BaseWage    decimal.Decimal `json:"base_wage"`
	HourlyRate  decimal.Decimal `json:"hourly_rate"`
	PaidDays    int             `json:"paid_days"`
	WorkingDays int             `json:"working_days"`
	DaysPresent int             `json:"days_present"`

	ProratedPay      decimal.Decimal `json:"prorated_pay"`
	MealAllowance    decimal.Decimal `json:"meal_allowance"`
	NightPremium     decimal.Decimal `json:"night_premium"`
	SundayPay        decimal.Decimal `json:"sunday_pay"`
	HolidayPay       decimal.Decimal `json:"holiday_pay"`
	VacationSubsidy  decimal.Decimal `json:"vacation_subsidy"`
	ChristmasSubsidy decimal.Decimal `json:"christmas_subsidy"`
	OvertimeBankPay  decimal.Decimal `json:"overtime_bank_pay"`
	OtherEarnings    decimal.Decimal `json:"other_earnings"`
	GrossPay         decimal.Decimal `json:"gross_pay"`

	SocialSecurityBase decimal.Decimal `json:"social_security_base"`
	SocialSecurity     decimal.Decimal `json:"social_security"`
	TaxBase            decimal.Decimal `json:"tax_base"`
	TaxRate            decimal.Decimal `json:"tax_rate"` // percent
	Tax                decimal.Decimal `json:"tax"`
	InKindDeduction    decimal.Decimal `json:"in_kind_deduction"`
	TotalDeductions    decimal.Decimal `json:"total_deductions"`
	NetPay             decimal.Decimal `json:"net_pay"`

	MealCard             bool                `json:"meal_card"`
	VacationSubsidyMode  payroll.SubsidyMode `json:"vacation_subsidy_mode"`
	ChristmasSubsidyMode payroll.SubsidyMode `json:"christmas_subsidy_mode"`
}

var (
	thirty         = decimal.NewFromInt(30)
	twelve         = decimal.NewFromInt(12)
	hundred        = decimal.NewFromInt(100)
	nightFactor    = decimal.RequireFromString("0.25")
	holidayFactor  = decimal.NewFromInt(2)
	socialSecurity = decimal.RequireFromString("0.11")
)

// Calculate computes the payroll of one employee for the snapshot's month.
// Only malformed inputs (negative amounts) fail; financial edge cases clamp.
func Calculate(snap payroll.Snapshot, absences payroll.AbsenceTotals, overtime payroll.OvertimeTotals, cfg PeriodConfig, opts Options) (Result, error) {
	if err := validate(snap, absences, overtime, cfg); err != nil {
		return Result{}, err
	}

	base := snap.BaseWage
	if base.IsZero() && snap.WeeklyHours.IsPositive() && cfg.MinWage.IsPositive() {
		base = payroll.BaseWage(snap.WeeklyHours, cfg.MinWage)
	}
	rate := snap.HourlyRate
	if rate.IsZero() {
		rate = payroll.HourlyRate(base, snap.WeeklyHours)
	}

	if cfg.Overtime == OvertimeUntracked {
		overtime = payroll.OvertimeTotals{OtherEarnings: overtime.OtherEarnings}
	}

	absent := absences.LeaveDays + absences.SickDays
	r := Result{
		Employee:    snap.Employee,
		Period:      snap.Period,
		BaseWage:    cents(base),
		HourlyRate:  cents(rate),
		PaidDays:    max(30-absent, 0),
		WorkingDays: payroll.WorkingDays(cfg.Calendar, cfg.CompanyID, snap.Period),
	}
	r.DaysPresent = max(r.WorkingDays-absent, 0)

	r.ProratedPay = cents(base.Div(thirty).Mul(decimal.NewFromInt(int64(r.PaidDays))))
	r.MealAllowance = cents(snap.DailyMealAllowance.Mul(decimal.NewFromInt(int64(r.DaysPresent))))
	r.NightPremium = cents(overtime.NightHours.Mul(rate).Mul(nightFactor))
	r.SundayPay = cents(overtime.SundayHours.Mul(rate))
	r.HolidayPay = cents(overtime.HolidayHours.Mul(rate).Mul(holidayFactor))
	r.OvertimeBankPay = cents(overtime.ExtraHours.Mul(rate))
	r.OtherEarnings = cents(overtime.OtherEarnings)

	r.VacationSubsidyMode = subsidyMode(snap.VacationSubsidy, opts.VacationSubsidy)
	r.ChristmasSubsidyMode = subsidyMode(snap.ChristmasSubsidy, opts.ChristmasSubsidy)
	r.VacationSubsidy = subsidy(base, r.VacationSubsidyMode)
	r.ChristmasSubsidy = subsidy(base, r.ChristmasSubsidyMode)

	r.GrossPay = sum(r.ProratedPay, r.MealAllowance, r.NightPremium, r.SundayPay, r.HolidayPay,
		r.VacationSubsidy, r.ChristmasSubsidy, r.OvertimeBankPay, r.OtherEarnings)

	r.SocialSecurityBase = r.GrossPay.Sub(r.MealAllowance)
	r.SocialSecurity = cents(r.SocialSecurityBase.Mul(socialSecurity))

	r.TaxBase = r.SocialSecurityBase
	r.TaxRate = taxRate(snap, r.TaxBase, cfg.Brackets)
	r.Tax = cents(r.TaxBase.Mul(r.TaxRate).Div(hundred))

	r.MealCard = snap.MealCard
	if opts.MealCard != nil {
		r.MealCard = *opts.MealCard
	}
	r.InKindDeduction = decimal.Zero
	if r.MealCard {
		r.InKindDeduction = r.MealAllowance
	}

	r.TotalDeductions = sum(r.SocialSecurity, r.Tax, r.InKindDeduction)
	r.NetPay = r.GrossPay.Sub(r.TotalDeductions)
	return r, nil
}

func taxRate(snap payroll.Snapshot, base decimal.Decimal, table BracketTable) decimal.Decimal {
	if snap.TaxMode == payroll.TaxFlatRate {
		return snap.FlatRatePercent
	}
	if table.IsZero() {
		table = DefaultBrackets()
	}
	return table.EffectiveRate(base, snap.Dependents, snap.MaritalStatus)
}

// subsidyMode: a mode fixed on the snapshot wins, then the operator's
// choice, then prorated.
func subsidyMode(fixed payroll.SubsidyMode, chosen *payroll.SubsidyMode) payroll.SubsidyMode {
	if fixed != payroll.SubsidyUnset {
		return fixed
	}
	if chosen != nil && *chosen != payroll.SubsidyUnset {
		return *chosen
	}
	return payroll.SubsidyProrated
}

func subsidy(base decimal.Decimal, mode payroll.SubsidyMode) decimal.Decimal {
	switch mode {
	case payroll.SubsidyLump:
		return cents(base)
	case payroll.SubsidyProrated:
		return cents(base.Div(twelve))
	default:
		return decimal.Zero
	}
}

func validate(snap payroll.Snapshot, a payroll.AbsenceTotals, o payroll.OvertimeTotals, cfg PeriodConfig) error {
	var errs []error
	nonNegative := func(field string, v decimal.Decimal) {
		if v.IsNegative() {
			errs = append(errs, &payroll.FieldError{Field: field, Value: v.String()})
		}
	}
	nonNegativeInt := func(field string, v int) {
		if v < 0 {
			errs = append(errs, &payroll.FieldError{Field: field, Value: decimal.NewFromInt(int64(v)).String()})
		}
	}

	if err := snap.Period.Validate(); err != nil {
		errs = append(errs, err)
	}
	nonNegative("weekly_hours", snap.WeeklyHours)
	nonNegative("base_wage", snap.BaseWage)
	nonNegative("hourly_rate", snap.HourlyRate)
	nonNegative("daily_meal_allowance", snap.DailyMealAllowance)
	nonNegative("flat_rate_percent", snap.FlatRatePercent)
	nonNegative("min_wage", cfg.MinWage)
	nonNegativeInt("dependents", snap.Dependents)
	nonNegativeInt("leave_days", a.LeaveDays)
	nonNegativeInt("sick_days", a.SickDays)
	nonNegative("night_hours", o.NightHours)
	nonNegative("sunday_hours", o.SundayHours)
	nonNegative("holiday_hours", o.HolidayHours)
	nonNegative("extra_hours", o.ExtraHours)
	nonNegative("other_earnings", o.OtherEarnings)
	if !cfg.Brackets.IsZero() {
		if err := cfg.Brackets.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func sum(parts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range parts {
		total = total.Add(p)
	}
	return total
}
