package config_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/calc"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/payroll"
)

const sampleCompanies = `
version: 1
minimum_wages:
  2024: "820"
  2025: "870"
include_national_holidays: true
holidays:
  - date: "2025-04-18"
    name: "Good Friday"
companies:
  - id: "acme"
    name: "Acme"
    document_id: "acme.xlsx"
    overtime_tracking: true
    holidays:
      - date: "06-13"
        name: "Santo António"
        recurring: true
  - id: "globex"
    name: "Globex"
    document_id: "globex.xlsx"
    brackets:
      bands:
        - up_to: "1000"
          rate: "10"
      top_rate: "20"
`

func TestParseCompanies_Sample(t *testing.T) {
	companies, err := config.ParseCompanies([]byte(sampleCompanies))
	require.NoError(t, err)

	list := companies.List()
	require.Len(t, list, 2)
	assert.Equal(t, "acme", list[0].ID)
	assert.Equal(t, payroll.Scope{CompanyID: "acme", DocumentID: "acme.xlsx"}, list[0].Scope())

	wage, err := companies.Wages().For(2025)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(870).Equal(wage))

	// national (10) + global (1) + acme (1)
	assert.Len(t, companies.Holidays(), 12)
}

func TestParseCompanies_HolidaysFeedCalendar(t *testing.T) {
	// GIVEN: A national calendar plus a recurring company holiday
	// WHEN: Building a static calendar from the parsed file
	// THEN: The company holiday applies every year, to that company only

	companies, err := config.ParseCompanies([]byte(sampleCompanies))
	require.NoError(t, err)
	cal := payroll.NewStaticCalendar(companies.Holidays()...)

	assert.True(t, cal.IsHoliday("acme", time.Date(2027, time.June, 13, 0, 0, 0, 0, time.UTC)))
	assert.False(t, cal.IsHoliday("globex", time.Date(2027, time.June, 13, 0, 0, 0, 0, time.UTC)))
	assert.True(t, cal.IsHoliday("globex", time.Date(2025, time.April, 18, 0, 0, 0, 0, time.UTC)))
}

func TestPeriodConfig(t *testing.T) {
	companies, err := config.ParseCompanies([]byte(sampleCompanies))
	require.NoError(t, err)
	cal := payroll.NewStaticCalendar()

	acme, err := companies.PeriodConfig("acme", 2025, cal)
	require.NoError(t, err)
	assert.Equal(t, calc.OvertimeTracked, acme.Overtime)
	assert.True(t, decimal.NewFromInt(870).Equal(acme.MinWage))
	assert.Equal(t, calc.DefaultBrackets(), acme.Brackets)

	globex, err := companies.PeriodConfig("globex", 2026, cal)
	require.NoError(t, err)
	assert.Equal(t, calc.OvertimeUntracked, globex.Overtime)
	assert.True(t, decimal.NewFromInt(870).Equal(globex.MinWage), "latest earlier year applies")
	require.Len(t, globex.Brackets.Bands, 1)
	assert.True(t, decimal.NewFromInt(20).Equal(globex.Brackets.TopRate))

	_, err = companies.PeriodConfig("initech", 2025, cal)
	assert.ErrorIs(t, err, config.ErrUnknownCompany)

	_, err = companies.PeriodConfig("acme", 2020, cal)
	assert.ErrorIs(t, err, payroll.ErrNoMinimumWage)
}

func TestParseCompanies_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unsupported version", `
version: 2
minimum_wages: {2025: "870"}
companies: [{id: a, document_id: a.xlsx}]
`},
		{"no companies", `
version: 1
minimum_wages: {2025: "870"}
`},
		{"no minimum wages", `
version: 1
companies: [{id: a, document_id: a.xlsx}]
`},
		{"bad minimum wage", `
version: 1
minimum_wages: {2025: "abc"}
companies: [{id: a, document_id: a.xlsx}]
`},
		{"missing document", `
version: 1
minimum_wages: {2025: "870"}
companies: [{id: a}]
`},
		{"duplicate company", `
version: 1
minimum_wages: {2025: "870"}
companies: [{id: a, document_id: a.xlsx}, {id: a, document_id: b.xlsx}]
`},
		{"bad holiday date", `
version: 1
minimum_wages: {2025: "870"}
holidays: [{date: "13-40", name: x}]
companies: [{id: a, document_id: a.xlsx}]
`},
		{"month-day without recurring", `
version: 1
minimum_wages: {2025: "870"}
holidays: [{date: "06-13", name: x}]
companies: [{id: a, document_id: a.xlsx}]
`},
		{"descending brackets", `
version: 1
minimum_wages: {2025: "870"}
brackets:
  bands: [{up_to: "1000", rate: "10"}, {up_to: "1000", rate: "12"}]
  top_rate: "20"
companies: [{id: a, document_id: a.xlsx}]
`},
		{"rate above 100", `
version: 1
minimum_wages: {2025: "870"}
companies:
  - id: a
    document_id: a.xlsx
    brackets: {bands: [], top_rate: "120"}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.ParseCompanies([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadCompanies_RepositoryFile(t *testing.T) {
	companies, err := config.LoadCompanies("companies.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, companies.List())
}
