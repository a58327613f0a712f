package payroll_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

func TestParseMaritalStatus_HistoricalSpellings(t *testing.T) {
	cases := map[string]payroll.MaritalStatus{
		"Casado 1":           payroll.MarriedSoleFiler,
		"CASADO 2":           payroll.MarriedJointFilers,
		"Não Casado":         payroll.Single,
		"single":             payroll.Single,
		"married_sole_filer": payroll.MarriedSoleFiler,
	}
	for raw, want := range cases {
		got, err := payroll.ParseMaritalStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := payroll.ParseMaritalStatus("divorced")
	assert.ErrorIs(t, err, payroll.ErrInvalidValue)
	_, err = payroll.ParseMaritalStatus("")
	assert.ErrorIs(t, err, payroll.ErrInvalidValue, "blank never defaults")
}

func TestParseTaxAndSubsidyModes(t *testing.T) {
	mode, err := payroll.ParseTaxMode("Taxa Fixa")
	require.NoError(t, err)
	assert.Equal(t, payroll.TaxFlatRate, mode)

	mode, err = payroll.ParseTaxMode("Tabela")
	require.NoError(t, err)
	assert.Equal(t, payroll.TaxBracket, mode)

	sub, err := payroll.ParseSubsidyMode("Duodécimos")
	require.NoError(t, err)
	assert.Equal(t, payroll.SubsidyProrated, sub)

	sub, err = payroll.ParseSubsidyMode("")
	require.NoError(t, err)
	assert.Equal(t, payroll.SubsidyUnset, sub)

	kind, err := payroll.ParseAbsenceKind("Baixa Médica")
	require.NoError(t, err)
	assert.Equal(t, payroll.AbsenceSickLeave, kind)
}

func TestBusinessDays_WeekendsAndRecurringHolidays(t *testing.T) {
	// GIVEN: April 2025 with the recurring 25 April holiday (a Friday)
	// WHEN: Counting working days in the month
	// THEN: 22 weekdays minus 1 holiday

	cal := payroll.NewStaticCalendar(payroll.PortugueseHolidays()...)
	p := payroll.NewPeriod(2025, time.April)

	assert.Equal(t, 21, payroll.WorkingDays(cal, "acme", p))
	assert.Equal(t, 22, payroll.WorkingDays(nil, "acme", p))
	assert.False(t, payroll.IsWorkday(cal, "acme", day(2026, time.April, 25)))
}

func TestCalendarDays_Inclusive(t *testing.T) {
	assert.Equal(t, 1, payroll.CalendarDays(day(2025, 3, 3), day(2025, 3, 3)))
	assert.Equal(t, 31, payroll.CalendarDays(day(2025, 3, 1), day(2025, 3, 31)))
	assert.Equal(t, 3, payroll.CalendarDays(day(2024, 2, 28), day(2024, 3, 1)), "leap year")
}

func TestBaseWage_Schedules(t *testing.T) {
	minWage := dec("870")
	cases := map[string]string{
		"40": "870",
		"20": "435",
		"16": "348",
		"30": "652.5",
		"0":  "0",
	}
	for hours, want := range cases {
		got := payroll.BaseWage(dec(hours), minWage)
		assert.True(t, got.Equal(dec(want)), "%sh: got %s want %s", hours, got, want)
	}
	assert.True(t, payroll.HourlyRate(dec("870"), dec("0")).IsZero())
}

func TestWageTable_FallsBackToEarlierYear(t *testing.T) {
	w := payroll.WageTable{2024: dec("820"), 2025: dec("870")}

	v, err := w.For(2026)
	require.NoError(t, err)
	assert.True(t, v.Equal(dec("870")))

	v, err = w.For(2024)
	require.NoError(t, err)
	assert.True(t, v.Equal(dec("820")))

	_, err = w.For(2020)
	assert.ErrorIs(t, err, payroll.ErrNoMinimumWage)
}
