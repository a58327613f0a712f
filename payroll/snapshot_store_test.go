package payroll_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/document"
	"github.com/warp/payroll-engine/document/store"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type fixture struct {
	ctx       context.Context
	blobs     *store.Memory
	storage   *document.BlobStorage
	guard     *payroll.Guard
	snapshots *payroll.SnapshotStore
	ledger    *payroll.Ledger
	registry  *payroll.Registry
	scope     payroll.Scope
}

func newFixture(t *testing.T, employees ...string) *fixture {
	t.Helper()
	blobs := store.NewMemory()
	storage := document.NewBlobStorage(blobs)
	guard := payroll.NewGuard(storage, nil)
	f := &fixture{
		ctx:       context.Background(),
		blobs:     blobs,
		storage:   storage,
		guard:     guard,
		snapshots: payroll.NewSnapshotStore(guard, payroll.WageTable{2025: dec("870")}),
		ledger:    payroll.NewLedger(guard),
		registry:  payroll.NewRegistry(guard),
		scope:     payroll.Scope{CompanyID: "acme", DocumentID: "acme.xlsx"},
	}
	_, err := guard.Initialize(f.ctx, f.scope.DocumentID)
	require.NoError(t, err)
	for _, name := range employees {
		_, err := f.registry.Register(f.ctx, f.scope, validRecord(name))
		require.NoError(t, err)
	}
	return f
}

func validRecord(name string) payroll.MasterRecord {
	return payroll.MasterRecord{
		Name:               name,
		Department:         "Operations",
		WeeklyHours:        dec("40"),
		Email:              "staff@example.pt",
		NISS:               "12345678901",
		NIF:                "123456789",
		IDDocument:         "CC 1234567",
		MaritalStatus:      payroll.Single,
		Titleholders:       1,
		Address:            "Rua Direita 1, Lisboa",
		IBAN:               "PT50000201231234567890154",
		Nationality:        "PT",
		Phone:              "912345678",
		DailyMealAllowance: dec("6"),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func period(year int, month time.Month) payroll.Period {
	return payroll.NewPeriod(year, month)
}

func (f *fixture) load(t *testing.T) *document.Document {
	t.Helper()
	doc, err := f.guard.Load(f.ctx, f.scope.DocumentID)
	require.NoError(t, err)
	return doc
}

// =============================================================================
// RESOLVE
// =============================================================================

func TestResolve_BootstrapsFromMaster(t *testing.T) {
	// GIVEN: Ana registered with 40h/week and no snapshots anywhere
	// WHEN: Resolving March 2025
	// THEN: Base wage is the 2025 minimum wage, the row is persisted

	f := newFixture(t, "Ana")

	snap, err := f.snapshots.Resolve(f.ctx, f.scope, "Ana", period(2025, time.March))
	require.NoError(t, err)

	assert.Equal(t, "Ana", snap.Employee)
	assert.True(t, snap.BaseWage.Equal(dec("870")))
	assert.True(t, snap.HourlyRate.Equal(dec("10440").Div(dec("2080"))))
	assert.True(t, snap.DailyMealAllowance.Equal(dec("6")))
	assert.Equal(t, payroll.StatusActive, snap.Status)
	assert.Equal(t, payroll.SubsidyUnset, snap.VacationSubsidy)

	history, err := f.snapshots.History(f.ctx, f.scope, "Ana", period(2025, time.March))
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestResolve_PersistsOnlyOnFirstResolution(t *testing.T) {
	// GIVEN: A month already resolved once
	// WHEN: Resolving it again
	// THEN: Nothing is written

	f := newFixture(t, "Ana")
	p := period(2025, time.March)

	_, err := f.snapshots.Resolve(f.ctx, f.scope, "Ana", p)
	require.NoError(t, err)
	puts := f.blobs.Puts()

	_, err = f.snapshots.Resolve(f.ctx, f.scope, "Ana", p)
	require.NoError(t, err)
	assert.Equal(t, puts, f.blobs.Puts())
	assert.Equal(t, 1, f.load(t).RowCount(payroll.StateTable(p)))
}

func TestResolve_UnknownEmployee(t *testing.T) {
	f := newFixture(t, "Ana")
	puts := f.blobs.Puts()

	_, err := f.snapshots.Resolve(f.ctx, f.scope, "Rui", period(2025, time.March))
	assert.ErrorIs(t, err, payroll.ErrEmployeeNotFound)
	assert.True(t, payroll.IsNotFound(err))
	assert.Equal(t, puts, f.blobs.Puts())
}

func TestResolve_InheritsFromMostRecentEarlierMonth(t *testing.T) {
	// GIVEN: Dependents updated to 2 in March 2025, nothing in April or May
	// WHEN: Resolving June 2025
	// THEN: June starts from March's last row, April and May stay empty

	f := newFixture(t, "Ana")
	march, june := period(2025, time.March), period(2025, time.June)

	_, err := f.snapshots.UpdateField(f.ctx, f.scope, "Ana", march, payroll.FieldDependents, "2")
	require.NoError(t, err)
	prior, err := f.snapshots.Resolve(f.ctx, f.scope, "Ana", march)
	require.NoError(t, err)

	snap, err := f.snapshots.Resolve(f.ctx, f.scope, "Ana", june)
	require.NoError(t, err)

	assert.Equal(t, june, snap.Period)
	assert.Equal(t, 2, snap.Dependents)
	for _, field := range payroll.UpdatableFields {
		assert.Equal(t, prior.Get(field), snap.Get(field), "field %s", field)
	}

	doc := f.load(t)
	assert.False(t, doc.HasTable(payroll.StateTable(period(2025, time.April))))
	assert.False(t, doc.HasTable(payroll.StateTable(period(2025, time.May))))
	assert.Equal(t, 1, doc.RowCount(payroll.StateTable(june)))
}

func TestResolve_IgnoresLaterMonths(t *testing.T) {
	// GIVEN: Only an August snapshot with 3 dependents
	// WHEN: Resolving June
	// THEN: June bootstraps from the master record

	f := newFixture(t, "Ana")

	_, err := f.snapshots.UpdateField(f.ctx, f.scope, "Ana", period(2025, time.August), payroll.FieldDependents, "3")
	require.NoError(t, err)

	snap, err := f.snapshots.Resolve(f.ctx, f.scope, "Ana", period(2025, time.June))
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Dependents)
}

func TestResolve_InheritsAcrossYears(t *testing.T) {
	f := newFixture(t, "Ana")

	_, err := f.snapshots.UpdateField(f.ctx, f.scope, "Ana", period(2025, time.November), payroll.FieldMealCard, "true")
	require.NoError(t, err)

	snap, err := f.snapshots.Resolve(f.ctx, f.scope, "Ana", period(2026, time.February))
	require.NoError(t, err)
	assert.True(t, snap.MealCard)
}

func TestResolve_NoMinimumWageForYear(t *testing.T) {
	f := newFixture(t, "Ana")

	_, err := f.snapshots.Resolve(f.ctx, f.scope, "Ana", period(2024, time.December))
	assert.ErrorIs(t, err, payroll.ErrNoMinimumWage)
}

func TestResolve_InvalidPeriod(t *testing.T) {
	f := newFixture(t, "Ana")

	_, err := f.snapshots.Resolve(f.ctx, f.scope, "Ana", period(2025, 13))
	assert.ErrorIs(t, err, payroll.ErrInvalidValue)
}

// =============================================================================
// UPDATE FIELD
// =============================================================================

func TestUpdateField_SetsOnlyThatField(t *testing.T) {
	cases := []struct {
		field payroll.Field
		value string
	}{
		{payroll.FieldDailyMealAllowance, "7.5"},
		{payroll.FieldMealCard, "true"},
		{payroll.FieldMaritalStatus, "married_sole_filer"},
		{payroll.FieldTitleholders, "2"},
		{payroll.FieldDependents, "3"},
		{payroll.FieldDisability, "true"},
		{payroll.FieldTaxMode, "flat_rate"},
		{payroll.FieldFlatRatePercent, "12.5"},
		{payroll.FieldVacationSubsidy, "lump"},
		{payroll.FieldChristmasSubsidy, "suppressed"},
		{payroll.FieldHourlyRate, "6.25"},
		{payroll.FieldTerminationReason, "end of contract"},
	}

	for _, tc := range cases {
		t.Run(string(tc.field), func(t *testing.T) {
			f := newFixture(t, "Ana")
			p := period(2025, time.March)

			before, err := f.snapshots.Resolve(f.ctx, f.scope, "Ana", p)
			require.NoError(t, err)

			_, err = f.snapshots.UpdateField(f.ctx, f.scope, "Ana", p, tc.field, tc.value)
			require.NoError(t, err)

			after, err := f.snapshots.Resolve(f.ctx, f.scope, "Ana", p)
			require.NoError(t, err)

			assert.Equal(t, tc.value, after.Get(tc.field))
			for _, other := range payroll.UpdatableFields {
				if other != tc.field {
					assert.Equal(t, before.Get(other), after.Get(other), "field %s changed", other)
				}
			}
		})
	}
}

func TestUpdateField_AppendsOneRow(t *testing.T) {
	// GIVEN: A resolved month
	// WHEN: Updating three times
	// THEN: Three more rows, earlier rows untouched

	f := newFixture(t, "Ana")
	p := period(2025, time.March)
	_, err := f.snapshots.Resolve(f.ctx, f.scope, "Ana", p)
	require.NoError(t, err)
	first, err := f.load(t).ReadTable(payroll.StateTable(p))
	require.NoError(t, err)

	for _, v := range []string{"1", "2", "3"} {
		_, err := f.snapshots.UpdateField(f.ctx, f.scope, "Ana", p, payroll.FieldDependents, v)
		require.NoError(t, err)
	}

	table, err := f.load(t).ReadTable(payroll.StateTable(p))
	require.NoError(t, err)
	require.Equal(t, 4, table.Len())
	assert.Equal(t, first.Rows[0], table.Rows[0])
	assert.Equal(t, "3", table.Record(3)["dependents"])
}

func TestUpdateField_WeeklyHoursRecomputesWage(t *testing.T) {
	f := newFixture(t, "Ana")
	p := period(2025, time.March)

	snap, err := f.snapshots.UpdateField(f.ctx, f.scope, "Ana", p, payroll.FieldWeeklyHours, "20")
	require.NoError(t, err)

	assert.True(t, snap.BaseWage.Equal(dec("435")), "got %s", snap.BaseWage)
	assert.True(t, snap.HourlyRate.Equal(dec("5220").Div(dec("1040"))), "got %s", snap.HourlyRate)
}

func TestUpdateField_BaseWageRecomputesHourlyRate(t *testing.T) {
	f := newFixture(t, "Ana")

	snap, err := f.snapshots.UpdateField(f.ctx, f.scope, "Ana", period(2025, time.March), payroll.FieldBaseWage, "1040")
	require.NoError(t, err)

	assert.True(t, snap.HourlyRate.Equal(dec("6")), "got %s", snap.HourlyRate)
	assert.True(t, snap.WeeklyHours.Equal(dec("40")))
}

func TestUpdateField_RejectsBadValues(t *testing.T) {
	f := newFixture(t, "Ana")
	p := period(2025, time.March)
	_, err := f.snapshots.Resolve(f.ctx, f.scope, "Ana", p)
	require.NoError(t, err)
	puts := f.blobs.Puts()

	_, err = f.snapshots.UpdateField(f.ctx, f.scope, "Ana", p, payroll.FieldMaritalStatus, "widowed")
	assert.ErrorIs(t, err, payroll.ErrInvalidValue)

	_, err = f.snapshots.UpdateField(f.ctx, f.scope, "Ana", p, payroll.FieldWeeklyHours, "-4")
	assert.ErrorIs(t, err, payroll.ErrInvalidValue)

	_, err = f.snapshots.UpdateField(f.ctx, f.scope, "Ana", p, payroll.Field("employee"), "Rui")
	assert.ErrorIs(t, err, payroll.ErrInvalidValue)

	assert.Equal(t, puts, f.blobs.Puts())
}

// =============================================================================
// TERMINATION / LIST ACTIVE
// =============================================================================

func TestSetTerminated_IsOneWay(t *testing.T) {
	// GIVEN: Ana terminated on 31 March
	// WHEN: Setting her status back to active
	// THEN: ErrInvalidTransition, and later months inherit the termination

	f := newFixture(t, "Ana")
	p := period(2025, time.March)
	date := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)

	snap, err := f.snapshots.SetTerminated(f.ctx, f.scope, "Ana", p, date, "resignation")
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusTerminated, snap.Status)
	assert.Equal(t, "2025-03-31", snap.Get(payroll.FieldTerminationDate))
	assert.Equal(t, "resignation", snap.TerminationReason)

	_, err = f.snapshots.UpdateField(f.ctx, f.scope, "Ana", p, payroll.FieldStatus, "active")
	assert.ErrorIs(t, err, payroll.ErrInvalidTransition)
	assert.True(t, payroll.IsClientError(err))

	april, err := f.snapshots.Resolve(f.ctx, f.scope, "Ana", period(2025, time.April))
	require.NoError(t, err)
	assert.False(t, april.IsActive())
}

func TestSetTerminated_RequiresDate(t *testing.T) {
	f := newFixture(t, "Ana")

	_, err := f.snapshots.SetTerminated(f.ctx, f.scope, "Ana", period(2025, time.March), time.Time{}, "x")
	assert.ErrorIs(t, err, payroll.ErrInvalidValue)
}

func TestListActive_SkipsTerminated(t *testing.T) {
	f := newFixture(t, "Ana", "Rui", "Marta")
	p := period(2025, time.March)

	_, err := f.snapshots.SetTerminated(f.ctx, f.scope, "Rui", p, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), "dismissal")
	require.NoError(t, err)

	active, err := f.snapshots.ListActive(f.ctx, f.scope, p)
	require.NoError(t, err)

	names := make([]string, 0, len(active))
	for _, s := range active {
		names = append(names, s.Employee)
	}
	assert.Equal(t, []string{"Ana", "Marta"}, names)
}

// =============================================================================
// INTEGRITY GUARD
// =============================================================================

func TestGuard_PostValidationAbortsUpload(t *testing.T) {
	// GIVEN: A mutation that drops master rows while appending
	// WHEN: Running it through the guard
	// THEN: ErrIntegrityViolation and nothing uploaded

	f := newFixture(t, "Ana", "Rui")
	puts := f.blobs.Puts()

	_, err := f.guard.Mutate(f.ctx, f.scope.DocumentID, payroll.Mutation{
		Table: "state_2025_3",
		Delta: 1,
		Apply: func(doc *document.Document) error {
			doc.EnsureTable("state_2025_3", payroll.SnapshotColumns)
			if err := doc.AppendRow("state_2025_3", []string{"Ana"}); err != nil {
				return err
			}
			return doc.DeleteRow(payroll.MasterTable, 0)
		},
	})

	assert.ErrorIs(t, err, payroll.ErrIntegrityViolation)
	var ie *payroll.IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "post", ie.Phase)
	assert.Equal(t, 2, ie.Before)
	assert.Equal(t, 1, ie.After)
	assert.Equal(t, puts, f.blobs.Puts())
}

func TestGuard_WrongDeltaAborts(t *testing.T) {
	f := newFixture(t, "Ana")
	puts := f.blobs.Puts()

	_, err := f.guard.Mutate(f.ctx, f.scope.DocumentID, payroll.Mutation{
		Table: "state_2025_3",
		Delta: 1,
		Apply: func(doc *document.Document) error {
			doc.EnsureTable("state_2025_3", payroll.SnapshotColumns)
			_ = doc.AppendRow("state_2025_3", []string{"Ana"})
			return doc.AppendRow("state_2025_3", []string{"Ana"})
		},
	})

	assert.ErrorIs(t, err, payroll.ErrIntegrityViolation)
	assert.Equal(t, puts, f.blobs.Puts())
}

func TestGuard_PreValidationRejectsDocumentWithoutMaster(t *testing.T) {
	// GIVEN: A stored document that lost its master table
	// WHEN: Recording overtime
	// THEN: ErrCorruptDocument before anything is applied or uploaded

	f := newFixture(t)
	broken := document.New()
	broken.EnsureTable("state_2025_3", payroll.SnapshotColumns)
	require.NoError(t, f.storage.UploadDocument(f.ctx, f.scope.DocumentID, broken))
	puts := f.blobs.Puts()

	_, err := f.ledger.RecordOvertime(f.ctx, f.scope, payroll.OvertimeInput{
		Employee: "Ana", Period: period(2025, time.March), ExtraHours: dec("2"),
	})

	assert.ErrorIs(t, err, payroll.ErrCorruptDocument)
	assert.True(t, payroll.IsIntegrity(err))
	assert.Equal(t, puts, f.blobs.Puts())
	assert.Equal(t, 0, f.blobs.Copies())
}

func TestGuard_PreValidationRejectsEmptyMaster(t *testing.T) {
	f := newFixture(t)
	puts := f.blobs.Puts()

	_, err := f.ledger.RecordOvertime(f.ctx, f.scope, payroll.OvertimeInput{
		Employee: "Ana", Period: period(2025, time.March),
	})

	assert.ErrorIs(t, err, payroll.ErrCorruptDocument)
	assert.Equal(t, puts, f.blobs.Puts())
}

func TestUpdateField_EmptyMasterIsCorrupt(t *testing.T) {
	f := newFixture(t)
	puts := f.blobs.Puts()

	_, err := f.snapshots.UpdateField(f.ctx, f.scope, "Ana", period(2025, time.March), payroll.FieldDependents, "1")

	assert.ErrorIs(t, err, payroll.ErrCorruptDocument)
	assert.Equal(t, puts, f.blobs.Puts())
}

func TestGuard_BackupBeforeEveryCommit(t *testing.T) {
	f := newFixture(t, "Ana")
	copies := f.blobs.Copies()

	_, err := f.snapshots.Resolve(f.ctx, f.scope, "Ana", period(2025, time.March))
	require.NoError(t, err)

	assert.Equal(t, copies+1, f.blobs.Copies())
	var backups int
	for _, id := range f.blobs.IDs() {
		if id != f.scope.DocumentID {
			assert.Contains(t, id, f.scope.DocumentID+".backup-")
			backups++
		}
	}
	assert.Equal(t, f.blobs.Copies(), backups)
}

func TestGuard_BackupFailureDoesNotBlockWrite(t *testing.T) {
	f := newFixture(t, "Ana")
	f.blobs.FailCopy = errors.New("quota exceeded")
	puts := f.blobs.Puts()

	_, err := f.snapshots.Resolve(f.ctx, f.scope, "Ana", period(2025, time.March))
	require.NoError(t, err)
	assert.Equal(t, puts+1, f.blobs.Puts())
}

func TestGuard_StorageFailureSurfaces(t *testing.T) {
	f := newFixture(t, "Ana")
	f.blobs.FailPut = errors.New("connection reset")

	_, err := f.snapshots.Resolve(f.ctx, f.scope, "Ana", period(2025, time.March))
	assert.ErrorIs(t, err, payroll.ErrStorageUnavailable)
}

func TestGuard_InitializeLeavesExistingDocument(t *testing.T) {
	f := newFixture(t, "Ana")
	puts := f.blobs.Puts()

	created, err := f.guard.Initialize(f.ctx, f.scope.DocumentID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, puts, f.blobs.Puts())
}

func TestBackupID_Format(t *testing.T) {
	at := time.Date(2025, time.March, 4, 10, 30, 0, 0, time.UTC)

	a := payroll.BackupID("acme.xlsx", at)
	b := payroll.BackupID("acme.xlsx", at)

	assert.Regexp(t, `^acme\.xlsx\.backup-20250304T103000Z-[0-9a-f]{8}$`, a)
	assert.NotEqual(t, a, b)
}
