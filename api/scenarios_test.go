package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

func TestScenarios_LoadAll(t *testing.T) {
	// GIVEN: An empty company document
	// WHEN: Loading every scenario for March 2025
	// THEN: The company run pays the three employees still active

	s := newTestServer(t)

	var list []ScenarioDTO
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/scenarios", nil, &list))
	require.Len(t, list, 4)

	for _, sc := range list {
		var resp map[string]string
		require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/companies/acme/scenarios",
			LoadScenarioRequest{ScenarioID: sc.ID, Period: "2025-03"}, &resp), sc.ID)
		assert.Equal(t, "loaded", resp["status"])
	}

	var report struct {
		Results []map[string]any `json:"results"`
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/companies/acme/periods/2025-03/payroll", nil, &report))
	assert.Len(t, report.Results, 3)
}

func TestScenario_SickLeave(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	co, _ := s.handler.Companies.Company("acme")
	p := payroll.NewPeriod(2025, time.March)

	name, err := s.handler.loadSickLeaveScenario(ctx, co, p)
	require.NoError(t, err)

	a, o, err := s.handler.Ledger.Aggregate(ctx, co.Scope(), name, p)
	require.NoError(t, err)
	assert.Equal(t, 3, a.SickDays, "10-12 March 2025")
	assert.Equal(t, "12", o.NightHours.String())
	assert.Equal(t, "8", o.SundayHours.String())
}

func TestScenario_Termination(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	co, _ := s.handler.Companies.Company("acme")
	p := payroll.NewPeriod(2025, time.March)

	name, err := s.handler.loadTerminationScenario(ctx, co, p)
	require.NoError(t, err)

	snap, err := s.handler.Snapshots.Resolve(ctx, co.Scope(), name, p)
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusTerminated, snap.Status)
	assert.Equal(t, "20", snap.WeeklyHours.String())
	assert.Equal(t, "435", snap.BaseWage.String())
	assert.Equal(t, p.End(), snap.TerminationDate)
}

func TestScenario_Rejects(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/companies/acme/scenarios",
		LoadScenarioRequest{ScenarioID: "lottery", Period: "2025-03"}, nil))
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/companies/acme/scenarios",
		LoadScenarioRequest{ScenarioID: "family", Period: "March"}, nil))

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/companies/acme/scenarios",
		LoadScenarioRequest{ScenarioID: "family", Period: "2025-03"}, nil))
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/companies/acme/scenarios",
		LoadScenarioRequest{ScenarioID: "family", Period: "2025-03"}, nil))
}
