/*
scenarios.go - Demo data loaders for testing and demonstrations

PURPOSE:

	Populates a company document with realistic employees, snapshot edits
	and ledger entries for one month, so the payroll pages have something
	to show. Everything goes through the same guarded write paths as the
	regular endpoints.

AVAILABLE SCENARIOS:

	full-month:   One full-time employee, no absences
	sick-leave:   Sick leave plus night and Sunday hours
	family:       Married sole filer with dependents and a meal card
	termination:  Hours cut mid-year, then terminated at month end

USAGE VIA API:

	POST /api/companies/{company}/scenarios
	{"scenario_id": "sick-leave", "period": "2025-03"}

NOTE:

	Scenarios never reset a document. Loading the same scenario twice into
	one company fails with 409 because the demo employee already exists.

SEE ALSO:
  - handlers.go: Registry, SnapshotStore and Ledger wiring
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "full-month",
		Name:        "Full Month",
		Description: "Full-time employee paid for the whole month",
	},
	{
		ID:          "sick-leave",
		Name:        "Sick Leave",
		Description: "Three days of sick leave with night and Sunday hours",
	},
	{
		ID:          "family",
		Name:        "Family Household",
		Description: "Married sole filer, two dependents, meal card",
	},
	{
		ID:          "termination",
		Name:        "Termination",
		Description: "Weekly hours reduced, then terminated at month end",
	},
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads a predefined scenario into the company document.
// POST /api/companies/{company}/scenarios
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}
	period, err := parsePeriod(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period (use YYYY-MM)", err)
		return
	}

	loaders := map[string]func(context.Context, config.Company, payroll.Period) (string, error){
		"full-month":  h.loadFullMonthScenario,
		"sick-leave":  h.loadSickLeaveScenario,
		"family":      h.loadFamilyScenario,
		"termination": h.loadTerminationScenario,
	}
	load, ok := loaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	co := companyFrom(r)
	if _, err := h.Guard.Initialize(ctx, co.DocumentID); err != nil {
		h.fail(w, r, "Failed to initialize document", err)
		return
	}
	employee, err := load(ctx, co, period)
	if err != nil {
		h.fail(w, r, fmt.Sprintf("Failed to load scenario %s", req.ScenarioID), err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
		"employee": employee,
		"period":   period.String(),
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadFullMonthScenario(ctx context.Context, co config.Company, p payroll.Period) (string, error) {
	rec := demoEmployee("Ana Ferreira", "Kitchen", 40, payroll.Single, 0)
	if _, err := h.Registry.Register(ctx, co.Scope(), rec); err != nil {
		return "", err
	}
	_, err := h.Snapshots.Resolve(ctx, co.Scope(), rec.Name, p)
	return rec.Name, err
}

func (h *Handler) loadSickLeaveScenario(ctx context.Context, co config.Company, p payroll.Period) (string, error) {
	rec := demoEmployee("Bruno Matos", "Floor", 40, payroll.Single, 1)
	if _, err := h.Registry.Register(ctx, co.Scope(), rec); err != nil {
		return "", err
	}
	calendar, err := h.Store.Calendar(ctx, co.ID, p.Start(), p.End())
	if err != nil {
		return "", err
	}
	// Sick from the second Monday for three business days.
	start := nthWeekday(p, time.Monday, 2)
	if _, err := h.Ledger.RecordAbsence(ctx, co.Scope(), payroll.AbsenceInput{
		Employee: rec.Name,
		Period:   p,
		Kind:     payroll.AbsenceSickLeave,
		Start:    start,
		End:      start.AddDate(0, 0, 2),
		Notes:    "flu",
	}, calendar); err != nil {
		return "", err
	}
	_, err = h.Ledger.RecordOvertime(ctx, co.Scope(), payroll.OvertimeInput{
		Employee:    rec.Name,
		Period:      p,
		NightHours:  decimal.NewFromInt(12),
		SundayHours: decimal.NewFromInt(8),
		Notes:       "weekend events",
	})
	return rec.Name, err
}

func (h *Handler) loadFamilyScenario(ctx context.Context, co config.Company, p payroll.Period) (string, error) {
	rec := demoEmployee("Carla Sousa", "Office", 40, payroll.MarriedSoleFiler, 2)
	if _, err := h.Registry.Register(ctx, co.Scope(), rec); err != nil {
		return "", err
	}
	_, err := h.Snapshots.UpdateField(ctx, co.Scope(), rec.Name, p, payroll.FieldMealCard, "true")
	return rec.Name, err
}

func (h *Handler) loadTerminationScenario(ctx context.Context, co config.Company, p payroll.Period) (string, error) {
	rec := demoEmployee("Duarte Lima", "Bar", 40, payroll.Single, 0)
	if _, err := h.Registry.Register(ctx, co.Scope(), rec); err != nil {
		return "", err
	}
	if _, err := h.Snapshots.UpdateField(ctx, co.Scope(), rec.Name, p, payroll.FieldWeeklyHours, "20"); err != nil {
		return "", err
	}
	_, err := h.Snapshots.SetTerminated(ctx, co.Scope(), rec.Name, p, p.End(), "end of contract")
	return rec.Name, err
}

// =============================================================================
// HELPERS
// =============================================================================

func demoEmployee(name, department string, hours int64, status payroll.MaritalStatus, dependents int) payroll.MasterRecord {
	return payroll.MasterRecord{
		Name:               name,
		Department:         department,
		WeeklyHours:        decimal.NewFromInt(hours),
		Email:              fmt.Sprintf("%s@example.com", department),
		BirthDate:          time.Date(1990, time.May, 4, 0, 0, 0, 0, time.UTC),
		NISS:               "12345678901",
		NIF:                "123456789",
		IDDocument:         "CC 12345678",
		TaxOffice:          "Lisboa 3",
		MaritalStatus:      status,
		Titleholders:       1,
		Dependents:         dependents,
		Address:            "Rua Augusta 1, Lisboa",
		IBAN:               "PT50000201231234567890154",
		AdmissionDate:      time.Date(2023, time.January, 2, 0, 0, 0, 0, time.UTC),
		Nationality:        "PT",
		Phone:              "912345678",
		DailyMealAllowance: decimal.NewFromInt(6),
		TaxMode:            payroll.TaxBracket,
	}
}

// nthWeekday returns the n-th given weekday of the period.
func nthWeekday(p payroll.Period, day time.Weekday, n int) time.Time {
	d := p.Start()
	for d.Weekday() != day {
		d = d.AddDate(0, 0, 1)
	}
	return d.AddDate(0, 0, 7*(n-1))
}
