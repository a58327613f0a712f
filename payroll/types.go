/*
Package payroll implements the versioned employee-state store, the
absence/overtime ledger and the integrity guard that protects every write.

PURPOSE:
  All state lives in one tabular document per company. The master table is
  the directly-edited source of employee identity. Everything else is
  append-only per-month tables:

    state_<year>_<month>     employee state snapshots (SnapshotStore)
    absences_<year>_<month>  leave / sick-leave periods (Ledger)
    overtime_<year>_<month>  extra-hours entries (Ledger)

KEY CONCEPTS IN THIS FILE (types.go):
  - Scope:    which company document an operation targets (no globals)
  - Snapshot: immutable full employee state as of one month
  - Field:    the updatable snapshot columns
  - AbsenceRecord / OvertimeRecord: ledger rows

INVARIANTS:
  1. A snapshot row, once appended, is never mutated or deleted.
  2. The current state for (employee, month) is the LAST row for that
     employee in the month table.
  3. Every write goes through Guard.Mutate.

SEE ALSO:
  - snapshot_store.go: Resolve / UpdateField / SetTerminated / ListActive
  - ledger.go: RecordAbsence / RecordOvertime / DeleteAt / Aggregate
  - guard.go: validate-then-commit protocol
  - calc/: the payroll calculation engine consuming these types
*/
package payroll

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/document"
)

// Scope identifies the company document an operation reads and writes.
// It replaces any process-wide "current company" selection.
type Scope struct {
	CompanyID  string
	DocumentID string
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is one employee's full payroll-relevant state as of a month.
type Snapshot struct {
	Employee           string
	Period             Period
	WeeklyHours        decimal.Decimal
	BaseWage           decimal.Decimal
	HourlyRate         decimal.Decimal
	DailyMealAllowance decimal.Decimal
	MealCard           bool
	MaritalStatus      MaritalStatus
	Titleholders       int
	Dependents         int
	Disability         bool
	TaxMode            TaxMode
	FlatRatePercent    decimal.Decimal
	VacationSubsidy    SubsidyMode
	ChristmasSubsidy   SubsidyMode
	Status             EmploymentStatus
	TerminationDate    time.Time // zero when active
	TerminationReason  string
	CreatedAt          time.Time
}

// IsActive reports whether the employee is still employed in this snapshot.
func (s Snapshot) IsActive() bool { return s.Status == StatusActive }

// Field names an updatable snapshot column.
type Field string

const (
	FieldWeeklyHours        Field = "weekly_hours"
	FieldBaseWage           Field = "base_wage"
	FieldHourlyRate         Field = "hourly_rate"
	FieldDailyMealAllowance Field = "daily_meal_allowance"
	FieldMealCard           Field = "meal_card"
	FieldMaritalStatus      Field = "marital_status"
	FieldTitleholders       Field = "titleholders"
	FieldDependents         Field = "dependents"
	FieldDisability         Field = "disability"
	FieldTaxMode            Field = "tax_mode"
	FieldFlatRatePercent    Field = "flat_rate_percent"
	FieldVacationSubsidy    Field = "vacation_subsidy"
	FieldChristmasSubsidy   Field = "christmas_subsidy"
	FieldStatus             Field = "status"
	FieldTerminationDate    Field = "termination_date"
	FieldTerminationReason  Field = "termination_reason"
)

// UpdatableFields lists every Field accepted by UpdateField, in column order.
var UpdatableFields = []Field{
	FieldWeeklyHours, FieldBaseWage, FieldHourlyRate, FieldDailyMealAllowance,
	FieldMealCard, FieldMaritalStatus, FieldTitleholders, FieldDependents,
	FieldDisability, FieldTaxMode, FieldFlatRatePercent, FieldVacationSubsidy,
	FieldChristmasSubsidy, FieldStatus, FieldTerminationDate, FieldTerminationReason,
}

// SnapshotColumns is the fixed header of every state_<year>_<month> table.
var SnapshotColumns = []string{
	"employee", "year", "month",
	string(FieldWeeklyHours), string(FieldBaseWage), string(FieldHourlyRate),
	string(FieldDailyMealAllowance), string(FieldMealCard), string(FieldMaritalStatus),
	string(FieldTitleholders), string(FieldDependents), string(FieldDisability),
	string(FieldTaxMode), string(FieldFlatRatePercent), string(FieldVacationSubsidy),
	string(FieldChristmasSubsidy), string(FieldStatus), string(FieldTerminationDate),
	string(FieldTerminationReason), "created_at",
}

// Get returns the stored cell value of a field.
func (s Snapshot) Get(f Field) string {
	return s.record()[string(f)]
}

func (s Snapshot) record() document.Record {
	return document.Record{
		"employee":                      s.Employee,
		"year":                          strconv.Itoa(s.Period.Year),
		"month":                         strconv.Itoa(int(s.Period.Month)),
		string(FieldWeeklyHours):        s.WeeklyHours.String(),
		string(FieldBaseWage):           s.BaseWage.String(),
		string(FieldHourlyRate):         s.HourlyRate.String(),
		string(FieldDailyMealAllowance): s.DailyMealAllowance.String(),
		string(FieldMealCard):           strconv.FormatBool(s.MealCard),
		string(FieldMaritalStatus):      string(s.MaritalStatus),
		string(FieldTitleholders):       strconv.Itoa(s.Titleholders),
		string(FieldDependents):         strconv.Itoa(s.Dependents),
		string(FieldDisability):         strconv.FormatBool(s.Disability),
		string(FieldTaxMode):            string(s.TaxMode),
		string(FieldFlatRatePercent):    s.FlatRatePercent.String(),
		string(FieldVacationSubsidy):    string(s.VacationSubsidy),
		string(FieldChristmasSubsidy):   string(s.ChristmasSubsidy),
		string(FieldStatus):             string(s.Status),
		string(FieldTerminationDate):    formatDate(s.TerminationDate),
		string(FieldTerminationReason):  s.TerminationReason,
		"created_at":                    formatTimestamp(s.CreatedAt),
	}
}

func (s Snapshot) row() []string {
	return recordRow(SnapshotColumns, s.record())
}

// set parses value into field f on a copy of s. It does not recompute
// dependent fields; SnapshotStore does that with the wage table at hand.
func (s Snapshot) set(f Field, value string) (Snapshot, error) {
	var err error
	switch f {
	case FieldWeeklyHours:
		s.WeeklyHours, err = parseNonNegative(string(f), value)
	case FieldBaseWage:
		s.BaseWage, err = parseNonNegative(string(f), value)
	case FieldHourlyRate:
		s.HourlyRate, err = parseNonNegative(string(f), value)
	case FieldDailyMealAllowance:
		s.DailyMealAllowance, err = parseNonNegative(string(f), value)
	case FieldMealCard:
		s.MealCard, err = parseBool(string(f), value)
	case FieldMaritalStatus:
		s.MaritalStatus, err = ParseMaritalStatus(value)
	case FieldTitleholders:
		s.Titleholders, err = parseCount(string(f), value)
	case FieldDependents:
		s.Dependents, err = parseCount(string(f), value)
	case FieldDisability:
		s.Disability, err = parseBool(string(f), value)
	case FieldTaxMode:
		s.TaxMode, err = ParseTaxMode(value)
	case FieldFlatRatePercent:
		s.FlatRatePercent, err = parseNonNegative(string(f), value)
	case FieldVacationSubsidy:
		s.VacationSubsidy, err = ParseSubsidyMode(value)
	case FieldChristmasSubsidy:
		s.ChristmasSubsidy, err = ParseSubsidyMode(value)
	case FieldStatus:
		var next EmploymentStatus
		next, err = ParseEmploymentStatus(value)
		if err == nil && s.Status == StatusTerminated && next != StatusTerminated {
			err = fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, next)
		}
		s.Status = next
	case FieldTerminationDate:
		s.TerminationDate, err = parseDate(string(f), value)
	case FieldTerminationReason:
		s.TerminationReason = value
	default:
		err = &FieldError{Field: string(f), Value: value, Err: fmt.Errorf("field is not updatable")}
	}
	return s, err
}

func parseSnapshot(rec document.Record) (Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	s.Employee = rec["employee"]
	year, err := parseCount("year", rec["year"])
	if err != nil {
		return s, err
	}
	month, err := parseCount("month", rec["month"])
	if err != nil {
		return s, err
	}
	s.Period = NewPeriod(year, time.Month(month))
	// Status parsed directly so a terminated row can be read back.
	if s.Status, err = ParseEmploymentStatus(rec[string(FieldStatus)]); err != nil {
		return s, err
	}
	for _, f := range UpdatableFields {
		if f == FieldStatus {
			continue
		}
		if s, err = s.set(f, rec[string(f)]); err != nil {
			return s, err
		}
	}
	s.CreatedAt, err = parseTimestamp("created_at", rec["created_at"])
	return s, err
}

// =============================================================================
// LEDGER RECORDS
// =============================================================================

// AbsenceRecord is one leave or sick-leave period.
type AbsenceRecord struct {
	Employee     string
	Period       Period
	Kind         AbsenceKind
	Start        time.Time
	End          time.Time
	BusinessDays int
	CalendarDays int
	Notes        string
	Attachment   string // reference to an uploaded supporting document
	CreatedAt    time.Time
}

// AbsenceColumns is the fixed header of every absences_<year>_<month> table.
var AbsenceColumns = []string{
	"employee", "year", "month", "kind", "start", "end",
	"business_days", "calendar_days", "notes", "attachment", "created_at",
}

func (a AbsenceRecord) row() []string {
	return recordRow(AbsenceColumns, document.Record{
		"employee":      a.Employee,
		"year":          strconv.Itoa(a.Period.Year),
		"month":         strconv.Itoa(int(a.Period.Month)),
		"kind":          string(a.Kind),
		"start":         formatDate(a.Start),
		"end":           formatDate(a.End),
		"business_days": strconv.Itoa(a.BusinessDays),
		"calendar_days": strconv.Itoa(a.CalendarDays),
		"notes":         a.Notes,
		"attachment":    a.Attachment,
		"created_at":    formatTimestamp(a.CreatedAt),
	})
}

func parseAbsence(rec document.Record) (AbsenceRecord, error) {
	a := AbsenceRecord{Employee: rec["employee"], Notes: rec["notes"], Attachment: rec["attachment"]}
	var err error
	if a.Period, err = parsePeriod(rec); err != nil {
		return a, err
	}
	if a.Kind, err = ParseAbsenceKind(rec["kind"]); err != nil {
		return a, err
	}
	if a.Start, err = parseDate("start", rec["start"]); err != nil {
		return a, err
	}
	if a.End, err = parseDate("end", rec["end"]); err != nil {
		return a, err
	}
	if a.BusinessDays, err = parseCount("business_days", rec["business_days"]); err != nil {
		return a, err
	}
	if a.CalendarDays, err = parseCount("calendar_days", rec["calendar_days"]); err != nil {
		return a, err
	}
	a.CreatedAt, err = parseTimestamp("created_at", rec["created_at"])
	return a, err
}

// OvertimeRecord is one extra-hours entry.
type OvertimeRecord struct {
	Employee      string
	Period        Period
	NightHours    decimal.Decimal
	SundayHours   decimal.Decimal
	HolidayHours  decimal.Decimal
	ExtraHours    decimal.Decimal
	OtherEarnings decimal.Decimal
	Notes         string
	CreatedAt     time.Time
}

// IsZero reports whether the entry carries no hours and no earnings.
func (o OvertimeRecord) IsZero() bool {
	return o.NightHours.IsZero() && o.SundayHours.IsZero() && o.HolidayHours.IsZero() &&
		o.ExtraHours.IsZero() && o.OtherEarnings.IsZero()
}

// OvertimeColumns is the fixed header of every overtime_<year>_<month> table.
var OvertimeColumns = []string{
	"employee", "year", "month", "night_hours", "sunday_hours", "holiday_hours",
	"extra_hours", "other_earnings", "notes", "created_at",
}

func (o OvertimeRecord) row() []string {
	return recordRow(OvertimeColumns, document.Record{
		"employee":       o.Employee,
		"year":           strconv.Itoa(o.Period.Year),
		"month":          strconv.Itoa(int(o.Period.Month)),
		"night_hours":    o.NightHours.String(),
		"sunday_hours":   o.SundayHours.String(),
		"holiday_hours":  o.HolidayHours.String(),
		"extra_hours":    o.ExtraHours.String(),
		"other_earnings": o.OtherEarnings.String(),
		"notes":          o.Notes,
		"created_at":     formatTimestamp(o.CreatedAt),
	})
}

func parseOvertime(rec document.Record) (OvertimeRecord, error) {
	o := OvertimeRecord{Employee: rec["employee"], Notes: rec["notes"]}
	var err error
	if o.Period, err = parsePeriod(rec); err != nil {
		return o, err
	}
	for _, c := range []struct {
		col string
		dst *decimal.Decimal
	}{
		{"night_hours", &o.NightHours},
		{"sunday_hours", &o.SundayHours},
		{"holiday_hours", &o.HolidayHours},
		{"extra_hours", &o.ExtraHours},
		{"other_earnings", &o.OtherEarnings},
	} {
		if *c.dst, err = parseDecimal(c.col, rec[c.col]); err != nil {
			return o, err
		}
	}
	o.CreatedAt, err = parseTimestamp("created_at", rec["created_at"])
	return o, err
}

// =============================================================================
// CELL ENCODING
// =============================================================================

func recordRow(columns []string, rec document.Record) []string {
	row := make([]string, len(columns))
	for i, c := range columns {
		row[i] = rec[c]
	}
	return row
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parsePeriod(rec document.Record) (Period, error) {
	year, err := parseCount("year", rec["year"])
	if err != nil {
		return Period{}, err
	}
	month, err := parseCount("month", rec["month"])
	if err != nil {
		return Period{}, err
	}
	return NewPeriod(year, time.Month(month)), nil
}

// parseDate accepts ISO dates and the dd/mm/yyyy form used by older documents.
// Blank yields the zero time.
func parseDate(field, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.DateOnly, "02/01/2006", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return DateOnly(t), nil
		}
	}
	return time.Time{}, &FieldError{Field: field, Value: v}
}

func parseTimestamp(field, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "02/01/2006 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &FieldError{Field: field, Value: v}
}

// parseDecimal accepts "1234.5" and the comma decimal separator "1234,5".
// Blank yields zero.
func parseDecimal(field, v string) (decimal.Decimal, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
	if err != nil {
		return decimal.Zero, &FieldError{Field: field, Value: v, Err: err}
	}
	return d, nil
}

func parseNonNegative(field, v string) (decimal.Decimal, error) {
	d, err := parseDecimal(field, v)
	if err == nil && d.IsNegative() {
		err = &FieldError{Field: field, Value: v, Err: fmt.Errorf("must not be negative")}
	}
	return d, err
}

func parseCount(field, v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// whole numbers written by spreadsheet tools come back as "2.0"
		d, derr := decimal.NewFromString(v)
		if derr != nil || !d.Equal(d.Truncate(0)) {
			return 0, &FieldError{Field: field, Value: v, Err: err}
		}
		n = int(d.IntPart())
	}
	if n < 0 {
		return 0, &FieldError{Field: field, Value: v, Err: fmt.Errorf("must not be negative")}
	}
	return n, nil
}

func parseBool(field, v string) (bool, error) {
	switch normalizeSpelling(v) {
	case "", "false", "0", "nao", "no":
		return false, nil
	case "true", "1", "sim", "yes":
		return true, nil
	}
	return false, &FieldError{Field: field, Value: v}
}
