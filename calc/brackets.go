package calc

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

// Bracket is one income band: bases up to and including UpTo pay Rate percent.
type Bracket struct {
	UpTo decimal.Decimal `json:"up_to"`
	Rate decimal.Decimal `json:"rate"`
}

// BracketTable is a progressive withholding table keyed by tax base.
// Bands must be ascending; bases above the last band pay TopRate.
type BracketTable struct {
	Bands   []Bracket       `json:"bands"`
	TopRate decimal.Decimal `json:"top_rate"`
}

// DefaultBrackets is a placeholder approximation of the official withholding
// tables. Companies can replace it through configuration.
func DefaultBrackets() BracketTable {
	return BracketTable{
		Bands: []Bracket{
			{UpTo: decimal.NewFromInt(820), Rate: decimal.RequireFromString("13.5")},
			{UpTo: decimal.NewFromInt(1200), Rate: decimal.NewFromInt(18)},
			{UpTo: decimal.NewFromInt(1700), Rate: decimal.NewFromInt(23)},
			{UpTo: decimal.NewFromInt(2500), Rate: decimal.RequireFromString("26.5")},
		},
		TopRate: decimal.NewFromInt(32),
	}
}

// IsZero reports an unset table.
func (b BracketTable) IsZero() bool {
	return len(b.Bands) == 0 && b.TopRate.IsZero()
}

// Validate checks bands are ascending and rates lie in [0, 100].
func (b BracketTable) Validate() error {
	hundred := decimal.NewFromInt(100)
	check := func(r decimal.Decimal) error {
		if r.IsNegative() || r.GreaterThan(hundred) {
			return &payroll.FieldError{Field: "brackets.rate", Value: r.String()}
		}
		return nil
	}
	for i, band := range b.Bands {
		if i > 0 && !band.UpTo.GreaterThan(b.Bands[i-1].UpTo) {
			return &payroll.FieldError{Field: "brackets.up_to", Value: band.UpTo.String(),
				Err: fmt.Errorf("band %d is not above band %d", i, i-1)}
		}
		if err := check(band.Rate); err != nil {
			return err
		}
	}
	return check(b.TopRate)
}

// BandRate returns the band percentage for a tax base.
func (b BracketTable) BandRate(base decimal.Decimal) decimal.Decimal {
	for _, band := range b.Bands {
		if base.LessThanOrEqual(band.UpTo) {
			return band.Rate
		}
	}
	return b.TopRate
}

var (
	minBracketRate   = decimal.NewFromInt(5)
	soleFilerFactor  = decimal.RequireFromString("0.85")
	perDependentRate = decimal.NewFromInt(1)
)

// EffectiveRate applies the household adjustments to the band rate:
// minus 1 point per dependent, floored at 5%, then 15% off for a married
// sole filer.
func (b BracketTable) EffectiveRate(base decimal.Decimal, dependents int, status payroll.MaritalStatus) decimal.Decimal {
	rate := b.BandRate(base).Sub(perDependentRate.Mul(decimal.NewFromInt(int64(dependents))))
	rate = decimal.Max(rate, minBracketRate)
	if status == payroll.MarriedSoleFiler {
		rate = rate.Mul(soleFilerFactor)
	}
	return rate
}
