package payroll

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - a payroll month
// =============================================================================

// Period is one payroll month.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

func NewPeriod(year int, month time.Month) Period { return Period{Year: year, Month: month} }

// Validate rejects months outside 1..12 and non-positive years.
func (p Period) Validate() error {
	if p.Year <= 0 || p.Month < time.January || p.Month > time.December {
		return &FieldError{Field: "period", Value: p.String()}
	}
	return nil
}

func (p Period) Before(o Period) bool {
	return p.Year < o.Year || (p.Year == o.Year && p.Month < o.Month)
}

// Start is the first day of the month (UTC).
func (p Period) Start() time.Time { return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC) }

// End is the last day of the month (UTC).
func (p Period) End() time.Time { return p.Start().AddDate(0, 1, -1) }

func (p Period) String() string { return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month)) }

// =============================================================================
// HOLIDAY CALENDAR - weekends and configured holidays are not working days
// =============================================================================

// Holiday is a non-working date for one company, or for all when CompanyID is empty.
type Holiday struct {
	ID        string
	CompanyID string
	Date      time.Time
	Name      string
	Recurring bool // same month/day every year
}

// HolidayCalendar answers whether a date is a holiday for a company.
type HolidayCalendar interface {
	IsHoliday(companyID string, date time.Time) bool
}

// StaticCalendar is an in-memory HolidayCalendar built from configuration.
type StaticCalendar struct {
	fixed     map[string]map[string]bool // company -> YYYY-MM-DD
	recurring map[string]map[string]bool // company -> MM-DD
}

func NewStaticCalendar(holidays ...Holiday) *StaticCalendar {
	c := &StaticCalendar{
		fixed:     make(map[string]map[string]bool),
		recurring: make(map[string]map[string]bool),
	}
	for _, h := range holidays {
		c.Add(h)
	}
	return c
}

func (c *StaticCalendar) Add(h Holiday) {
	set, key := c.fixed, h.Date.Format(time.DateOnly)
	if h.Recurring {
		set, key = c.recurring, h.Date.Format("01-02")
	}
	if set[h.CompanyID] == nil {
		set[h.CompanyID] = make(map[string]bool)
	}
	set[h.CompanyID][key] = true
}

func (c *StaticCalendar) IsHoliday(companyID string, date time.Time) bool {
	day, md := date.Format(time.DateOnly), date.Format("01-02")
	for _, id := range []string{companyID, ""} {
		if c.fixed[id][day] || c.recurring[id][md] {
			return true
		}
	}
	return false
}

// IsWorkday reports whether date is a weekday that is not a holiday.
// A nil calendar only excludes weekends.
func IsWorkday(calendar HolidayCalendar, companyID string, date time.Time) bool {
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return calendar == nil || !calendar.IsHoliday(companyID, date)
}

// BusinessDays counts working days in [start, end], both inclusive.
func BusinessDays(calendar HolidayCalendar, companyID string, start, end time.Time) int {
	n := 0
	for d := DateOnly(start); !d.After(DateOnly(end)); d = d.AddDate(0, 0, 1) {
		if IsWorkday(calendar, companyID, d) {
			n++
		}
	}
	return n
}

// CalendarDays counts days in [start, end], both inclusive.
func CalendarDays(start, end time.Time) int {
	return int(DateOnly(end).Sub(DateOnly(start)).Hours()/24) + 1
}

// WorkingDays counts working days in the period's month.
func WorkingDays(calendar HolidayCalendar, companyID string, p Period) int {
	return BusinessDays(calendar, companyID, p.Start(), p.End())
}

// DateOnly truncates to midnight UTC of the same calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PortugueseHolidays returns the fixed national holidays observed every year.
// Movable feasts (Good Friday, Easter, Corpus Christi) must be configured per year.
func PortugueseHolidays() []Holiday {
	fixed := []struct {
		month time.Month
		day   int
		name  string
	}{
		{time.January, 1, "Ano Novo"},
		{time.April, 25, "Dia da Liberdade"},
		{time.May, 1, "Dia do Trabalhador"},
		{time.June, 10, "Dia de Portugal"},
		{time.August, 15, "Assunção de Nossa Senhora"},
		{time.October, 5, "Implantação da República"},
		{time.November, 1, "Dia de Todos os Santos"},
		{time.December, 1, "Restauração da Independência"},
		{time.December, 8, "Imaculada Conceição"},
		{time.December, 25, "Natal"},
	}
	out := make([]Holiday, len(fixed))
	for i, f := range fixed {
		out[i] = Holiday{
			ID:        fmt.Sprintf("pt-%02d-%02d", int(f.month), f.day),
			Date:      time.Date(2000, f.month, f.day, 0, 0, 0, 0, time.UTC),
			Name:      f.name,
			Recurring: true,
		}
	}
	return out
}
