/*
snapshot_store.go - Per-employee, per-month append-only state ledger

PURPOSE:
  Resolves the payroll-relevant state of an employee for a month and
  records changes as new snapshot rows. Nothing is ever edited in place:
  a change copies the current snapshot, changes the field(s) and the
  timestamp, and appends the result.

RESOLUTION:
  1. Last row for the employee in state_<year>_<month>       -> return it
  2. Else the last row of the most recent EARLIER month       -> re-stamp,
     append as the month's first row, return it
  3. Else bootstrap from the master record (base wage and hourly rate from
     the minimum wage of the year)                              -> append, return
  The employee must be in the master table, else ErrEmployeeNotFound.

  The inherited or bootstrapped row is persisted on the first resolution
  of (employee, month). Later resolutions hit step 1, so reads never grow
  the table after that.

DEPENDENT FIELDS:
  weekly_hours -> base_wage and hourly_rate are recomputed
  base_wage    -> hourly_rate is recomputed

SEE ALSO:
  - guard.go: every append goes through Guard.Mutate
  - wage.go: BaseWage / HourlyRate
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/warp/payroll-engine/document"
)

// StateTable names the snapshot table of a month.
func StateTable(p Period) string {
	return fmt.Sprintf("state_%d_%d", p.Year, int(p.Month))
}

var stateTablePattern = regexp.MustCompile(`^state_(\d{4})_(\d{1,2})$`)

// SnapshotStore resolves and appends employee snapshots.
type SnapshotStore struct {
	guard *Guard
	wages WageTable
	now   func() time.Time
}

func NewSnapshotStore(guard *Guard, wages WageTable) *SnapshotStore {
	return &SnapshotStore{guard: guard, wages: wages, now: time.Now}
}

// =============================================================================
// READS
// =============================================================================

// Resolve returns the current snapshot of employee for period, creating the
// month's first row by inheritance or bootstrap when needed.
func (s *SnapshotStore) Resolve(ctx context.Context, scope Scope, employee string, period Period) (Snapshot, error) {
	if err := period.Validate(); err != nil {
		return Snapshot{}, err
	}
	employee = strings.TrimSpace(employee)

	doc, err := s.guard.Load(ctx, scope.DocumentID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := requireEmployee(doc, employee); err != nil {
		return Snapshot{}, err
	}

	snap, found, err := lastInMonth(doc, employee, period)
	if err != nil || found {
		return snap, err
	}

	seed, err := s.seed(doc, employee, period)
	if err != nil {
		return Snapshot{}, err
	}
	return s.append(ctx, scope, seed)
}

// History returns every snapshot row of employee in period, oldest first.
// It never appends.
func (s *SnapshotStore) History(ctx context.Context, scope Scope, employee string, period Period) ([]Snapshot, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	doc, err := s.guard.Load(ctx, scope.DocumentID)
	if err != nil {
		return nil, err
	}
	if err := requireEmployee(doc, employee); err != nil {
		return nil, err
	}
	rows, err := employeeRows(doc, strings.TrimSpace(employee), period)
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(rows))
	for _, rec := range rows {
		snap, err := parseSnapshot(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// ListActive resolves every master employee for period and keeps the active ones.
func (s *SnapshotStore) ListActive(ctx context.Context, scope Scope, period Period) ([]Snapshot, error) {
	doc, err := s.guard.Load(ctx, scope.DocumentID)
	if err != nil {
		return nil, err
	}
	names, err := ReadMaster(doc)
	if err != nil {
		return nil, err
	}

	var active []Snapshot
	for _, name := range names {
		snap, err := s.Resolve(ctx, scope, name, period)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", name, err)
		}
		if snap.IsActive() {
			active = append(active, snap)
		}
	}
	return active, nil
}

// =============================================================================
// WRITES
// =============================================================================

// UpdateField appends a copy of the current snapshot with field set to value.
func (s *SnapshotStore) UpdateField(ctx context.Context, scope Scope, employee string, period Period, field Field, value string) (Snapshot, error) {
	current, err := s.Resolve(ctx, scope, employee, period)
	if err != nil {
		return Snapshot{}, err
	}

	next, err := current.set(field, value)
	if err != nil {
		return Snapshot{}, err
	}

	switch field {
	case FieldWeeklyHours:
		minWage, err := s.wages.For(period.Year)
		if err != nil {
			return Snapshot{}, err
		}
		next.BaseWage = BaseWage(next.WeeklyHours, minWage)
		next.HourlyRate = HourlyRate(next.BaseWage, next.WeeklyHours)
	case FieldBaseWage:
		next.HourlyRate = HourlyRate(next.BaseWage, next.WeeklyHours)
	}

	next.CreatedAt = s.now().UTC()
	return s.append(ctx, scope, next)
}

// SetTerminated flips the employee to terminated with a date and reason.
// Terminating an already terminated employee rewrites date and reason.
func (s *SnapshotStore) SetTerminated(ctx context.Context, scope Scope, employee string, period Period, date time.Time, reason string) (Snapshot, error) {
	if date.IsZero() {
		return Snapshot{}, &FieldError{Field: string(FieldTerminationDate), Value: ""}
	}
	current, err := s.Resolve(ctx, scope, employee, period)
	if err != nil {
		return Snapshot{}, err
	}

	next := current
	next.Status = StatusTerminated
	next.TerminationDate = DateOnly(date)
	next.TerminationReason = strings.TrimSpace(reason)
	next.CreatedAt = s.now().UTC()
	return s.append(ctx, scope, next)
}

func (s *SnapshotStore) append(ctx context.Context, scope Scope, snap Snapshot) (Snapshot, error) {
	table := StateTable(snap.Period)
	_, err := s.guard.Mutate(ctx, scope.DocumentID, Mutation{
		Table: table,
		Delta: 1,
		Apply: func(doc *document.Document) error {
			doc.EnsureTable(table, SnapshotColumns)
			return doc.AppendRow(table, snap.row())
		},
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// =============================================================================
// INHERITANCE / BOOTSTRAP
// =============================================================================

// seed builds the first snapshot of a month: inherited from the most recent
// earlier month, or bootstrapped from the master record.
func (s *SnapshotStore) seed(doc *document.Document, employee string, period Period) (Snapshot, error) {
	for _, earlier := range earlierPeriods(doc, period) {
		prev, found, err := lastInMonth(doc, employee, earlier)
		if err != nil {
			return Snapshot{}, err
		}
		if found {
			prev.Period = period
			prev.CreatedAt = s.now().UTC()
			return prev, nil
		}
	}
	return s.bootstrap(doc, employee, period)
}

func (s *SnapshotStore) bootstrap(doc *document.Document, employee string, period Period) (Snapshot, error) {
	m, err := FindMaster(doc, employee)
	if err != nil {
		return Snapshot{}, err
	}
	minWage, err := s.wages.For(period.Year)
	if err != nil {
		return Snapshot{}, err
	}
	base := BaseWage(m.WeeklyHours, minWage)
	return Snapshot{
		Employee:           m.Name,
		Period:             period,
		WeeklyHours:        m.WeeklyHours,
		BaseWage:           base,
		HourlyRate:         HourlyRate(base, m.WeeklyHours),
		DailyMealAllowance: m.DailyMealAllowance,
		MaritalStatus:      m.MaritalStatus,
		Titleholders:       m.Titleholders,
		Dependents:         m.Dependents,
		TaxMode:            m.TaxMode,
		FlatRatePercent:    m.FlatRatePercent,
		Status:             StatusActive,
		CreatedAt:          s.now().UTC(),
	}, nil
}

// earlierPeriods lists months with a state table strictly before p, most
// recent first.
func earlierPeriods(doc *document.Document, p Period) []Period {
	var out []Period
	for _, name := range doc.Tables() {
		m := stateTablePattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		candidate := NewPeriod(year, time.Month(month))
		if candidate.Validate() == nil && candidate.Before(p) {
			out = append(out, candidate)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Before(out[i]) })
	return out
}

func lastInMonth(doc *document.Document, employee string, period Period) (Snapshot, bool, error) {
	rows, err := employeeRows(doc, employee, period)
	if err != nil || len(rows) == 0 {
		return Snapshot{}, false, err
	}
	snap, err := parseSnapshot(rows[len(rows)-1])
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("%s row for %s: %w", StateTable(period), employee, err)
	}
	return snap, true, nil
}

// employeeRows returns the employee's rows of a month table in table order.
// A missing table means no data yet.
func employeeRows(doc *document.Document, employee string, period Period) ([]document.Record, error) {
	t, err := doc.ReadTable(StateTable(period))
	if errors.Is(err, document.ErrTableNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []document.Record
	for _, rec := range t.Records() {
		if strings.TrimSpace(rec["employee"]) == employee {
			out = append(out, rec)
		}
	}
	return out, nil
}

// requireEmployee checks master membership. An empty master table is a
// corrupt document, not a missing employee.
func requireEmployee(doc *document.Document, employee string) error {
	names, err := ReadMaster(doc)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return &IntegrityError{Phase: "pre", Table: MasterTable, Reason: "master table has no data rows"}
	}
	for _, n := range names {
		if n == strings.TrimSpace(employee) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrEmployeeNotFound, employee)
}
