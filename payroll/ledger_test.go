package payroll_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/document"
	"github.com/warp/payroll-engine/payroll"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// ABSENCES
// =============================================================================

func TestRecordAbsence_CountsBusinessAndCalendarDays(t *testing.T) {
	// GIVEN: A Monday-to-Sunday absence (3-9 March 2025)
	// WHEN: Recording it with no holidays configured
	// THEN: 5 business days, 7 calendar days

	f := newFixture(t, "Ana")

	rec, err := f.ledger.RecordAbsence(f.ctx, f.scope, payroll.AbsenceInput{
		Employee: "Ana",
		Period:   period(2025, time.March),
		Kind:     payroll.AbsenceLeave,
		Start:    day(2025, time.March, 3),
		End:      day(2025, time.March, 9),
		Notes:    "family trip",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, rec.BusinessDays)
	assert.Equal(t, 7, rec.CalendarDays)

	stored, err := f.ledger.Absences(f.ctx, f.scope, "Ana", period(2025, time.March))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "family trip", stored[0].Notes)
	assert.Equal(t, day(2025, time.March, 3), stored[0].Start)
}

func TestRecordAbsence_SkipsCompanyHolidays(t *testing.T) {
	f := newFixture(t, "Ana")
	calendar := payroll.NewStaticCalendar(
		payroll.Holiday{CompanyID: "acme", Date: day(2025, time.March, 4), Name: "Carnaval"},
		payroll.Holiday{CompanyID: "other", Date: day(2025, time.March, 5), Name: "Not ours"},
	)

	rec, err := f.ledger.RecordAbsence(f.ctx, f.scope, payroll.AbsenceInput{
		Employee: "Ana",
		Period:   period(2025, time.March),
		Kind:     payroll.AbsenceSickLeave,
		Start:    day(2025, time.March, 3),
		End:      day(2025, time.March, 7),
	}, calendar)
	require.NoError(t, err)

	assert.Equal(t, 4, rec.BusinessDays)
	assert.Equal(t, 5, rec.CalendarDays)
}

func TestRecordAbsence_StartAfterEnd(t *testing.T) {
	f := newFixture(t, "Ana")
	puts := f.blobs.Puts()

	_, err := f.ledger.RecordAbsence(f.ctx, f.scope, payroll.AbsenceInput{
		Employee: "Ana",
		Period:   period(2025, time.March),
		Kind:     payroll.AbsenceLeave,
		Start:    day(2025, time.March, 10),
		End:      day(2025, time.March, 9),
	}, nil)

	assert.ErrorIs(t, err, payroll.ErrInvalidRange)
	assert.Equal(t, puts, f.blobs.Puts())
}

func TestRecordAbsence_CountsOnlyDaysInsideTheMonth(t *testing.T) {
	// GIVEN: A leave from Thu 27 February to Wed 5 March 2025
	// WHEN: Recording it under March and under February
	// THEN: Each month counts only its own days; the dates are kept as given

	f := newFixture(t, "Ana")
	in := payroll.AbsenceInput{
		Employee: "Ana",
		Kind:     payroll.AbsenceLeave,
		Start:    day(2025, time.February, 27),
		End:      day(2025, time.March, 5),
	}

	in.Period = period(2025, time.March)
	march, err := f.ledger.RecordAbsence(f.ctx, f.scope, in, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, march.BusinessDays, "Mon 3 to Wed 5")
	assert.Equal(t, 5, march.CalendarDays)
	assert.Equal(t, day(2025, time.February, 27), march.Start)

	in.Period = period(2025, time.February)
	feb, err := f.ledger.RecordAbsence(f.ctx, f.scope, in, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, feb.BusinessDays, "Thu 27 and Fri 28")
	assert.Equal(t, 2, feb.CalendarDays)

	totals, _, err := f.ledger.Aggregate(f.ctx, f.scope, "Ana", period(2025, time.March))
	require.NoError(t, err)
	assert.Equal(t, 3, totals.LeaveDays)
}

func TestRecordAbsence_OutsideTheMonth(t *testing.T) {
	// GIVEN: A March leave submitted under January
	// WHEN: Recording it
	// THEN: ErrInvalidRange and nothing is written

	f := newFixture(t, "Ana")
	puts := f.blobs.Puts()

	_, err := f.ledger.RecordAbsence(f.ctx, f.scope, payroll.AbsenceInput{
		Employee: "Ana",
		Period:   period(2025, time.January),
		Kind:     payroll.AbsenceLeave,
		Start:    day(2025, time.March, 3),
		End:      day(2025, time.March, 28),
	}, nil)

	assert.ErrorIs(t, err, payroll.ErrInvalidRange)
	assert.Equal(t, puts, f.blobs.Puts())
	assert.False(t, f.load(t).HasTable(payroll.LedgerAbsences.Table(period(2025, time.January))))
}

func TestRecordAbsence_RejectsOverlongNotes(t *testing.T) {
	f := newFixture(t, "Ana")
	puts := f.blobs.Puts()

	_, err := f.ledger.RecordAbsence(f.ctx, f.scope, payroll.AbsenceInput{
		Employee: "Ana",
		Period:   period(2025, time.March),
		Kind:     payroll.AbsenceLeave,
		Start:    day(2025, time.March, 3),
		End:      day(2025, time.March, 3),
		Notes:    strings.Repeat("x", document.MaxCellChars+1),
	}, nil)

	assert.ErrorIs(t, err, payroll.ErrInvalidValue)
	assert.Equal(t, puts, f.blobs.Puts())
}

func TestRecordAbsence_EmptyMasterIsCorrupt(t *testing.T) {
	// GIVEN: A document whose master table has no rows
	// WHEN: Recording an absence
	// THEN: ErrCorruptDocument and the document is not uploaded

	f := newFixture(t)
	puts := f.blobs.Puts()

	_, err := f.ledger.RecordAbsence(f.ctx, f.scope, payroll.AbsenceInput{
		Employee: "Ana",
		Period:   period(2025, time.March),
		Kind:     payroll.AbsenceLeave,
		Start:    day(2025, time.March, 3),
		End:      day(2025, time.March, 3),
	}, nil)

	assert.ErrorIs(t, err, payroll.ErrCorruptDocument)
	assert.Equal(t, puts, f.blobs.Puts())
}

func TestRecordAbsence_UnknownEmployee(t *testing.T) {
	f := newFixture(t, "Ana")
	puts := f.blobs.Puts()

	_, err := f.ledger.RecordAbsence(f.ctx, f.scope, payroll.AbsenceInput{
		Employee: "Rui",
		Period:   period(2025, time.March),
		Kind:     payroll.AbsenceLeave,
		Start:    day(2025, time.March, 3),
		End:      day(2025, time.March, 3),
	}, nil)

	assert.ErrorIs(t, err, payroll.ErrEmployeeNotFound)
	assert.Equal(t, puts, f.blobs.Puts())
}

// =============================================================================
// OVERTIME
// =============================================================================

func TestRecordOvertime_AcceptsAllZero(t *testing.T) {
	f := newFixture(t, "Ana")

	rec, err := f.ledger.RecordOvertime(f.ctx, f.scope, payroll.OvertimeInput{
		Employee: "Ana", Period: period(2025, time.March),
	})
	require.NoError(t, err)
	assert.True(t, rec.IsZero())
	assert.Equal(t, 1, f.load(t).RowCount(payroll.LedgerOvertime.Table(period(2025, time.March))))
}

func TestRecordOvertime_RejectsNegative(t *testing.T) {
	f := newFixture(t, "Ana")
	puts := f.blobs.Puts()

	_, err := f.ledger.RecordOvertime(f.ctx, f.scope, payroll.OvertimeInput{
		Employee: "Ana", Period: period(2025, time.March), NightHours: dec("-1"),
	})

	assert.ErrorIs(t, err, payroll.ErrInvalidValue)
	assert.Equal(t, puts, f.blobs.Puts())
}

func TestRecordOvertime_RejectsOverlongNotes(t *testing.T) {
	f := newFixture(t, "Ana")
	puts := f.blobs.Puts()

	_, err := f.ledger.RecordOvertime(f.ctx, f.scope, payroll.OvertimeInput{
		Employee: "Ana", Period: period(2025, time.March), Notes: strings.Repeat("é", document.MaxCellChars+1),
	})

	assert.ErrorIs(t, err, payroll.ErrInvalidValue)
	assert.Equal(t, puts, f.blobs.Puts())
}

func TestRecordOvertime_EmptyMasterIsCorrupt(t *testing.T) {
	f := newFixture(t)
	puts := f.blobs.Puts()

	_, err := f.ledger.RecordOvertime(f.ctx, f.scope, payroll.OvertimeInput{
		Employee: "Ana", Period: period(2025, time.March), NightHours: dec("2"),
	})

	assert.ErrorIs(t, err, payroll.ErrCorruptDocument)
	assert.Equal(t, puts, f.blobs.Puts())
}

// =============================================================================
// AGGREGATE
// =============================================================================

func TestAggregate_SumsPerKindAndCategory(t *testing.T) {
	// GIVEN: Two leave periods, one sick period and two overtime entries for Ana,
	//        plus entries for Rui in the same tables
	// WHEN: Aggregating Ana's March
	// THEN: Only Ana's rows are summed

	f := newFixture(t, "Ana", "Rui")
	p := period(2025, time.March)

	for _, in := range []payroll.AbsenceInput{
		{Employee: "Ana", Period: p, Kind: payroll.AbsenceLeave, Start: day(2025, 3, 3), End: day(2025, 3, 4)},
		{Employee: "Rui", Period: p, Kind: payroll.AbsenceLeave, Start: day(2025, 3, 3), End: day(2025, 3, 7)},
		{Employee: "Ana", Period: p, Kind: payroll.AbsenceLeave, Start: day(2025, 3, 10), End: day(2025, 3, 10)},
		{Employee: "Ana", Period: p, Kind: payroll.AbsenceSickLeave, Start: day(2025, 3, 14), End: day(2025, 3, 17)},
	} {
		_, err := f.ledger.RecordAbsence(f.ctx, f.scope, in, nil)
		require.NoError(t, err)
	}
	for _, in := range []payroll.OvertimeInput{
		{Employee: "Ana", Period: p, NightHours: dec("4"), ExtraHours: dec("1.5")},
		{Employee: "Rui", Period: p, NightHours: dec("8")},
		{Employee: "Ana", Period: p, SundayHours: dec("8"), HolidayHours: dec("2"), OtherEarnings: dec("50")},
	} {
		_, err := f.ledger.RecordOvertime(f.ctx, f.scope, in)
		require.NoError(t, err)
	}

	absences, overtime, err := f.ledger.Aggregate(f.ctx, f.scope, "Ana", p)
	require.NoError(t, err)

	assert.Equal(t, 3, absences.LeaveDays)
	assert.Equal(t, 3, absences.LeaveCalendarDays)
	assert.Equal(t, 2, absences.SickDays, "Fri 14 and Mon 17")
	assert.Equal(t, 4, absences.SickCalendarDays)

	assert.True(t, overtime.NightHours.Equal(dec("4")))
	assert.True(t, overtime.SundayHours.Equal(dec("8")))
	assert.True(t, overtime.HolidayHours.Equal(dec("2")))
	assert.True(t, overtime.ExtraHours.Equal(dec("1.5")))
	assert.True(t, overtime.OtherEarnings.Equal(dec("50")))
}

func TestAggregate_NoTablesYieldsZero(t *testing.T) {
	f := newFixture(t, "Ana")

	absences, overtime, err := f.ledger.Aggregate(f.ctx, f.scope, "Ana", period(2025, time.July))
	require.NoError(t, err)
	assert.Equal(t, payroll.AbsenceTotals{}, absences)
	assert.True(t, overtime.NightHours.IsZero())
	assert.True(t, overtime.OtherEarnings.IsZero())
}

// =============================================================================
// DELETE AT
// =============================================================================

func TestDeleteAt_UsesEmployeeView(t *testing.T) {
	// GIVEN: Rows Ana#0, Rui#0, Ana#1 in the overtime table
	// WHEN: Deleting Ana's index 1
	// THEN: The third physical row is removed, Rui is untouched

	f := newFixture(t, "Ana", "Rui")
	p := period(2025, time.March)
	for _, in := range []payroll.OvertimeInput{
		{Employee: "Ana", Period: p, Notes: "first"},
		{Employee: "Rui", Period: p, Notes: "rui"},
		{Employee: "Ana", Period: p, Notes: "second"},
	} {
		_, err := f.ledger.RecordOvertime(f.ctx, f.scope, in)
		require.NoError(t, err)
	}

	require.NoError(t, f.ledger.DeleteAt(f.ctx, f.scope, payroll.LedgerOvertime, "Ana", p, 1))

	ana, err := f.ledger.Overtime(f.ctx, f.scope, "Ana", p)
	require.NoError(t, err)
	require.Len(t, ana, 1)
	assert.Equal(t, "first", ana[0].Notes)

	rui, err := f.ledger.Overtime(f.ctx, f.scope, "Rui", p)
	require.NoError(t, err)
	assert.Len(t, rui, 1)
}

func TestDeleteAt_IndexOutOfRange(t *testing.T) {
	f := newFixture(t, "Ana")
	p := period(2025, time.March)
	_, err := f.ledger.RecordAbsence(f.ctx, f.scope, payroll.AbsenceInput{
		Employee: "Ana", Period: p, Kind: payroll.AbsenceLeave, Start: day(2025, 3, 3), End: day(2025, 3, 3),
	}, nil)
	require.NoError(t, err)
	puts := f.blobs.Puts()

	for _, idx := range []int{-1, 1, 5} {
		err := f.ledger.DeleteAt(f.ctx, f.scope, payroll.LedgerAbsences, "Ana", p, idx)
		assert.ErrorIs(t, err, payroll.ErrIndexOutOfRange, "index %d", idx)
	}
	err = f.ledger.DeleteAt(f.ctx, f.scope, payroll.LedgerAbsences, "Ana", period(2025, time.April), 0)
	assert.ErrorIs(t, err, payroll.ErrIndexOutOfRange, "missing table is an empty view")

	assert.Equal(t, puts, f.blobs.Puts())
}

func TestAttachmentRef_Unique(t *testing.T) {
	a := payroll.AttachmentRef("Ana Silva", `C:\scans\atestado.pdf`)
	b := payroll.AttachmentRef("Ana Silva", "atestado.pdf")

	assert.Regexp(t, `^attachments/ana-silva/[0-9a-f]{8}-atestado\.pdf$`, a)
	assert.NotEqual(t, a, b)
}
