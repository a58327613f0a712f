package payroll

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// WAGE FORMULAS - shared by snapshot bootstrap and the calculation engine
// =============================================================================

var (
	forty  = decimal.NewFromInt(40)
	twenty = decimal.NewFromInt(20)
	sixt   = decimal.NewFromInt(16)
	twelve = decimal.NewFromInt(12)
	weeks  = decimal.NewFromInt(52)
)

// BaseWage is the monthly base for a weekly schedule:
// 40h -> minWage, 20h -> minWage/2, 16h -> minWage*0.4, otherwise minWage*hours/40.
func BaseWage(hoursPerWeek, minWage decimal.Decimal) decimal.Decimal {
	switch {
	case hoursPerWeek.Equal(forty):
		return minWage
	case hoursPerWeek.Equal(twenty):
		return minWage.Div(decimal.NewFromInt(2))
	case hoursPerWeek.Equal(sixt):
		return minWage.Mul(decimal.RequireFromString("0.4"))
	default:
		return minWage.Mul(hoursPerWeek).Div(forty)
	}
}

// HourlyRate = base*12 / (52*hours); zero hours yields zero.
func HourlyRate(baseWage, hoursPerWeek decimal.Decimal) decimal.Decimal {
	if hoursPerWeek.IsZero() {
		return decimal.Zero
	}
	return baseWage.Mul(twelve).Div(weeks.Mul(hoursPerWeek))
}

// =============================================================================
// WAGE TABLE - national minimum wage per year
// =============================================================================

// WageTable maps a year to the monthly minimum wage in force.
type WageTable map[int]decimal.Decimal

// For returns the minimum wage for the year, falling back to the latest
// earlier year on file.
func (w WageTable) For(year int) (decimal.Decimal, error) {
	if v, ok := w[year]; ok {
		return v, nil
	}
	years := make([]int, 0, len(w))
	for y := range w {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	for _, y := range years {
		if y < year {
			return w[y], nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %d", ErrNoMinimumWage, year)
}
