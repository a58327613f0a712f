package payroll

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/document"
)

// =============================================================================
// LEDGER - absences and overtime per employee and month
// =============================================================================

// LedgerKind selects one of the two ledger tables of a month.
type LedgerKind string

const (
	LedgerAbsences LedgerKind = "absences"
	LedgerOvertime LedgerKind = "overtime"
)

// ParseLedgerKind accepts "absences" and "overtime".
func ParseLedgerKind(s string) (LedgerKind, error) {
	switch k := LedgerKind(strings.ToLower(strings.TrimSpace(s))); k {
	case LedgerAbsences, LedgerOvertime:
		return k, nil
	}
	return "", &FieldError{Field: "ledger", Value: s}
}

// Table returns the ledger table name of the month.
func (k LedgerKind) Table(p Period) string {
	return fmt.Sprintf("%s_%d_%d", k, p.Year, int(p.Month))
}

func (k LedgerKind) columns() []string {
	if k == LedgerOvertime {
		return OvertimeColumns
	}
	return AbsenceColumns
}

// AbsenceInput is what an operator submits for one absence period.
type AbsenceInput struct {
	Employee   string
	Period     Period
	Kind       AbsenceKind
	Start      time.Time
	End        time.Time
	Notes      string
	Attachment string
}

// OvertimeInput is what an operator submits for one overtime entry.
type OvertimeInput struct {
	Employee      string
	Period        Period
	NightHours    decimal.Decimal
	SundayHours   decimal.Decimal
	HolidayHours  decimal.Decimal
	ExtraHours    decimal.Decimal
	OtherEarnings decimal.Decimal
	Notes         string
}

// AbsenceTotals sums absence days of one employee and month, per kind.
type AbsenceTotals struct {
	LeaveDays         int // business days
	SickDays          int // business days
	LeaveCalendarDays int
	SickCalendarDays  int
}

// OvertimeTotals sums overtime categories of one employee and month.
type OvertimeTotals struct {
	NightHours    decimal.Decimal
	SundayHours   decimal.Decimal
	HolidayHours  decimal.Decimal
	ExtraHours    decimal.Decimal
	OtherEarnings decimal.Decimal
}

// Ledger appends and deletes absence and overtime rows.
type Ledger struct {
	guard *Guard
	now   func() time.Time
}

func NewLedger(guard *Guard) *Ledger {
	return &Ledger{guard: guard, now: time.Now}
}

// =============================================================================
// WRITES
// =============================================================================

// RecordAbsence appends one absence. Start and end are stored as given, but
// business and calendar days only count the part inside the ledger month, so
// an absence crossing a month boundary is recorded once under each month.
// Business days skip weekends and the holidays of calendar for the scope's
// company. A range that misses the month entirely is ErrInvalidRange.
func (l *Ledger) RecordAbsence(ctx context.Context, scope Scope, in AbsenceInput, calendar HolidayCalendar) (AbsenceRecord, error) {
	if err := in.Period.Validate(); err != nil {
		return AbsenceRecord{}, err
	}
	if in.Kind != AbsenceLeave && in.Kind != AbsenceSickLeave {
		return AbsenceRecord{}, &FieldError{Field: "kind", Value: string(in.Kind)}
	}
	if in.Start.IsZero() || in.End.IsZero() {
		return AbsenceRecord{}, &FieldError{Field: "start/end", Value: ""}
	}
	start, end := DateOnly(in.Start), DateOnly(in.End)
	if start.After(end) {
		return AbsenceRecord{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange, formatDate(start), formatDate(end))
	}
	from, to := latest(start, in.Period.Start()), earliest(end, in.Period.End())
	if from.After(to) {
		return AbsenceRecord{}, fmt.Errorf("%w: %s..%s is outside %s", ErrInvalidRange, formatDate(start), formatDate(end), in.Period)
	}
	if err := checkNotes(in.Notes); err != nil {
		return AbsenceRecord{}, err
	}

	rec := AbsenceRecord{
		Employee:     strings.TrimSpace(in.Employee),
		Period:       in.Period,
		Kind:         in.Kind,
		Start:        start,
		End:          end,
		BusinessDays: BusinessDays(calendar, scope.CompanyID, from, to),
		CalendarDays: CalendarDays(from, to),
		Notes:        strings.TrimSpace(in.Notes),
		Attachment:   in.Attachment,
		CreatedAt:    l.now().UTC(),
	}
	if err := l.append(ctx, scope, LedgerAbsences, rec.Employee, rec.Period, rec.row()); err != nil {
		return AbsenceRecord{}, err
	}
	return rec, nil
}

// RecordOvertime appends one overtime entry. An all-zero entry is accepted;
// negative values are not.
func (l *Ledger) RecordOvertime(ctx context.Context, scope Scope, in OvertimeInput) (OvertimeRecord, error) {
	if err := in.Period.Validate(); err != nil {
		return OvertimeRecord{}, err
	}
	for _, c := range []struct {
		field string
		v     decimal.Decimal
	}{
		{"night_hours", in.NightHours},
		{"sunday_hours", in.SundayHours},
		{"holiday_hours", in.HolidayHours},
		{"extra_hours", in.ExtraHours},
		{"other_earnings", in.OtherEarnings},
	} {
		if c.v.IsNegative() {
			return OvertimeRecord{}, &FieldError{Field: c.field, Value: c.v.String(), Err: errors.New("must not be negative")}
		}
	}
	if err := checkNotes(in.Notes); err != nil {
		return OvertimeRecord{}, err
	}

	rec := OvertimeRecord{
		Employee:      strings.TrimSpace(in.Employee),
		Period:        in.Period,
		NightHours:    in.NightHours,
		SundayHours:   in.SundayHours,
		HolidayHours:  in.HolidayHours,
		ExtraHours:    in.ExtraHours,
		OtherEarnings: in.OtherEarnings,
		Notes:         strings.TrimSpace(in.Notes),
		CreatedAt:     l.now().UTC(),
	}
	if err := l.append(ctx, scope, LedgerOvertime, rec.Employee, rec.Period, rec.row()); err != nil {
		return OvertimeRecord{}, err
	}
	return rec, nil
}

// DeleteAt removes the index-th row (zero based) of the employee's rows in
// the month's kind table.
func (l *Ledger) DeleteAt(ctx context.Context, scope Scope, kind LedgerKind, employee string, period Period, index int) error {
	if err := period.Validate(); err != nil {
		return err
	}
	table := kind.Table(period)
	employee = strings.TrimSpace(employee)

	_, err := l.guard.Mutate(ctx, scope.DocumentID, Mutation{
		Table: table,
		Delta: -1,
		Apply: func(doc *document.Document) error {
			positions, err := employeePositions(doc, table, employee)
			if err != nil {
				return err
			}
			if index < 0 || index >= len(positions) {
				return fmt.Errorf("%w: %d of %d rows for %s in %s", ErrIndexOutOfRange, index, len(positions), employee, table)
			}
			return doc.DeleteRow(table, positions[index])
		},
	})
	return err
}

func (l *Ledger) append(ctx context.Context, scope Scope, kind LedgerKind, employee string, period Period, row []string) error {
	table := kind.Table(period)
	_, err := l.guard.Mutate(ctx, scope.DocumentID, Mutation{
		Table: table,
		Delta: 1,
		Apply: func(doc *document.Document) error {
			if err := requireEmployee(doc, employee); err != nil {
				return err
			}
			doc.EnsureTable(table, kind.columns())
			return doc.AppendRow(table, row)
		},
	})
	return err
}

// =============================================================================
// READS
// =============================================================================

// Absences lists the employee's absences of the month in table order.
func (l *Ledger) Absences(ctx context.Context, scope Scope, employee string, period Period) ([]AbsenceRecord, error) {
	recs, err := l.view(ctx, scope, LedgerAbsences, employee, period)
	if err != nil {
		return nil, err
	}
	out := make([]AbsenceRecord, 0, len(recs))
	for _, rec := range recs {
		a, err := parseAbsence(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Overtime lists the employee's overtime entries of the month in table order.
func (l *Ledger) Overtime(ctx context.Context, scope Scope, employee string, period Period) ([]OvertimeRecord, error) {
	recs, err := l.view(ctx, scope, LedgerOvertime, employee, period)
	if err != nil {
		return nil, err
	}
	out := make([]OvertimeRecord, 0, len(recs))
	for _, rec := range recs {
		o, err := parseOvertime(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// Aggregate sums both ledgers for the employee and month. Months without
// ledger tables yield zero totals.
func (l *Ledger) Aggregate(ctx context.Context, scope Scope, employee string, period Period) (AbsenceTotals, OvertimeTotals, error) {
	absences, err := l.Absences(ctx, scope, employee, period)
	if err != nil {
		return AbsenceTotals{}, OvertimeTotals{}, err
	}
	overtime, err := l.Overtime(ctx, scope, employee, period)
	if err != nil {
		return AbsenceTotals{}, OvertimeTotals{}, err
	}
	return SumAbsences(absences), SumOvertime(overtime), nil
}

// SumAbsences totals absence records per kind.
func SumAbsences(records []AbsenceRecord) AbsenceTotals {
	var t AbsenceTotals
	for _, a := range records {
		switch a.Kind {
		case AbsenceLeave:
			t.LeaveDays += a.BusinessDays
			t.LeaveCalendarDays += a.CalendarDays
		case AbsenceSickLeave:
			t.SickDays += a.BusinessDays
			t.SickCalendarDays += a.CalendarDays
		}
	}
	return t
}

// SumOvertime totals overtime records per category.
func SumOvertime(records []OvertimeRecord) OvertimeTotals {
	var t OvertimeTotals
	for _, o := range records {
		t.NightHours = t.NightHours.Add(o.NightHours)
		t.SundayHours = t.SundayHours.Add(o.SundayHours)
		t.HolidayHours = t.HolidayHours.Add(o.HolidayHours)
		t.ExtraHours = t.ExtraHours.Add(o.ExtraHours)
		t.OtherEarnings = t.OtherEarnings.Add(o.OtherEarnings)
	}
	return t
}

func (l *Ledger) view(ctx context.Context, scope Scope, kind LedgerKind, employee string, period Period) ([]document.Record, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	doc, err := l.guard.Load(ctx, scope.DocumentID)
	if err != nil {
		return nil, err
	}
	t, err := doc.ReadTable(kind.Table(period))
	if errors.Is(err, document.ErrTableNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	employee = strings.TrimSpace(employee)
	var out []document.Record
	for _, rec := range t.Records() {
		if strings.TrimSpace(rec["employee"]) == employee {
			out = append(out, rec)
		}
	}
	return out, nil
}

// checkNotes rejects notes a workbook cell cannot hold without truncation.
func checkNotes(notes string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(notes)); n > document.MaxCellChars {
		return &FieldError{Field: "notes", Value: fmt.Sprintf("%d characters", n), Err: fmt.Errorf("at most %d allowed", document.MaxCellChars)}
	}
	return nil
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// employeePositions maps the employee's filtered view to physical row indexes.
// A missing table is an empty view.
func employeePositions(doc *document.Document, table, employee string) ([]int, error) {
	t, err := doc.ReadTable(table)
	if errors.Is(err, document.ErrTableNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	idx := t.ColumnIndex("employee")
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s has no employee column", ErrCorruptDocument, table)
	}
	var positions []int
	for i, row := range t.Rows {
		if strings.TrimSpace(row[idx]) == employee {
			positions = append(positions, i)
		}
	}
	return positions, nil
}

// AttachmentRef names an uploaded supporting document so two uploads of the
// same file never collide.
func AttachmentRef(employee, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	slug := strings.Join(strings.Fields(strings.ToLower(employee)), "-")
	return fmt.Sprintf("attachments/%s/%s-%s", slug, uuid.NewString()[:8], base)
}
