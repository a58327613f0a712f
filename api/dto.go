/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types in
  payroll/ carry no JSON tags; these types are the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags. Handlers call
  Handler.decode, which rejects malformed bodies with 400 before any
  document is downloaded. Domain rules (NIF, IBAN, status transitions)
  are still enforced by the payroll package.

SEE ALSO:
  - handlers.go: Uses these types
  - payroll/types.go: Snapshot, AbsenceRecord, OvertimeRecord
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// COMPANIES
// =============================================================================

// CompanyDTO represents a configured company.
type CompanyDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	DocumentID       string `json:"document_id"`
	OvertimeTracking bool   `json:"overtime_tracking"`
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// RegisterEmployeeRequest is the registration form.
type RegisterEmployeeRequest struct {
	Name               string          `json:"name" validate:"required"`
	Department         string          `json:"department" validate:"required"`
	WeeklyHours        decimal.Decimal `json:"weekly_hours" validate:"-"`
	Email              string          `json:"email" validate:"required,email"`
	BirthDate          string          `json:"birth_date" validate:"required,datetime=2006-01-02"`
	NISS               string          `json:"niss" validate:"required"`
	NIF                string          `json:"nif" validate:"required"`
	IDDocument         string          `json:"id_document" validate:"required"`
	IDDocumentExpiry   string          `json:"id_document_expiry" validate:"omitempty,datetime=2006-01-02"`
	TaxOffice          string          `json:"tax_office"`
	MaritalStatus      string          `json:"marital_status" validate:"required"`
	Titleholders       int             `json:"titleholders" validate:"gte=1,lte=2"`
	Dependents         int             `json:"dependents" validate:"gte=0"`
	Address            string          `json:"address" validate:"required"`
	IBAN               string          `json:"iban" validate:"required"`
	AdmissionDate      string          `json:"admission_date" validate:"required,datetime=2006-01-02"`
	Nationality        string          `json:"nationality" validate:"required"`
	Phone              string          `json:"phone" validate:"required"`
	DailyMealAllowance decimal.Decimal `json:"daily_meal_allowance" validate:"-"`
	TaxMode            string          `json:"tax_mode"`
	FlatRatePercent    decimal.Decimal `json:"flat_rate_percent" validate:"-"`
}

// EmployeeDTO is a registered master record.
type EmployeeDTO struct {
	Name          string          `json:"name"`
	Department    string          `json:"department"`
	Email         string          `json:"email"`
	WeeklyHours   decimal.Decimal `json:"weekly_hours"`
	MaritalStatus string          `json:"marital_status"`
	Dependents    int             `json:"dependents"`
	AdmissionDate string          `json:"admission_date"`
	RegisteredAt  string          `json:"registered_at,omitempty"`
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// SnapshotDTO represents an employee state snapshot.
type SnapshotDTO struct {
	Employee           string          `json:"employee"`
	Period             string          `json:"period"`
	WeeklyHours        decimal.Decimal `json:"weekly_hours"`
	BaseWage           decimal.Decimal `json:"base_wage"`
	HourlyRate         decimal.Decimal `json:"hourly_rate"`
	DailyMealAllowance decimal.Decimal `json:"daily_meal_allowance"`
	MealCard           bool            `json:"meal_card"`
	MaritalStatus      string          `json:"marital_status"`
	Titleholders       int             `json:"titleholders"`
	Dependents         int             `json:"dependents"`
	Disability         bool            `json:"disability"`
	TaxMode            string          `json:"tax_mode"`
	FlatRatePercent    decimal.Decimal `json:"flat_rate_percent"`
	VacationSubsidy    string          `json:"vacation_subsidy,omitempty"`
	ChristmasSubsidy   string          `json:"christmas_subsidy,omitempty"`
	Status             string          `json:"status"`
	TerminationDate    string          `json:"termination_date,omitempty"`
	TerminationReason  string          `json:"termination_reason,omitempty"`
	CreatedAt          string          `json:"created_at,omitempty"`
}

// UpdateFieldRequest sets one snapshot field.
type UpdateFieldRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

// TerminationRequest terminates an employee.
type TerminationRequest struct {
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Reason string `json:"reason"`
}

// =============================================================================
// LEDGER
// =============================================================================

// AbsenceRequest records one leave or sick-leave period.
type AbsenceRequest struct {
	Kind       string `json:"kind" validate:"required"`
	Start      string `json:"start" validate:"required,datetime=2006-01-02"`
	End        string `json:"end" validate:"required,datetime=2006-01-02"`
	Notes      string `json:"notes"`
	Attachment string `json:"attachment"` // original file name, stored as a reference
}

// AbsenceDTO is one absence row. Index is the position DELETE expects.
type AbsenceDTO struct {
	Index        int    `json:"index"`
	Kind         string `json:"kind"`
	Start        string `json:"start"`
	End          string `json:"end"`
	BusinessDays int    `json:"business_days"`
	CalendarDays int    `json:"calendar_days"`
	Notes        string `json:"notes,omitempty"`
	Attachment   string `json:"attachment,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// OvertimeRequest records one overtime entry. Amounts accept JSON numbers or strings.
type OvertimeRequest struct {
	NightHours    decimal.Decimal `json:"night_hours" validate:"-"`
	SundayHours   decimal.Decimal `json:"sunday_hours" validate:"-"`
	HolidayHours  decimal.Decimal `json:"holiday_hours" validate:"-"`
	ExtraHours    decimal.Decimal `json:"extra_hours" validate:"-"`
	OtherEarnings decimal.Decimal `json:"other_earnings" validate:"-"`
	Notes         string          `json:"notes"`
}

// OvertimeDTO is one overtime row.
type OvertimeDTO struct {
	Index         int             `json:"index"`
	NightHours    decimal.Decimal `json:"night_hours"`
	SundayHours   decimal.Decimal `json:"sunday_hours"`
	HolidayHours  decimal.Decimal `json:"holiday_hours"`
	ExtraHours    decimal.Decimal `json:"extra_hours"`
	OtherEarnings decimal.Decimal `json:"other_earnings"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     string          `json:"created_at,omitempty"`
}

// TotalsDTO is the monthly aggregate of an employee's ledger.
type TotalsDTO struct {
	LeaveDays         int             `json:"leave_days"`
	SickDays          int             `json:"sick_days"`
	LeaveCalendarDays int             `json:"leave_calendar_days"`
	SickCalendarDays  int             `json:"sick_calendar_days"`
	NightHours        decimal.Decimal `json:"night_hours"`
	SundayHours       decimal.Decimal `json:"sunday_hours"`
	HolidayHours      decimal.Decimal `json:"holiday_hours"`
	ExtraHours        decimal.Decimal `json:"extra_hours"`
	OtherEarnings     decimal.Decimal `json:"other_earnings"`
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// HolidayDTO represents a holiday.
type HolidayDTO struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

// CreateHolidayRequest adds a company holiday.
type CreateHolidayRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Name      string `json:"name" validate:"required"`
	Recurring bool   `json:"recurring"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a demo data set.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
	Period     string `json:"period" validate:"required,datetime=2006-01"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEmployeeDTO(m payroll.MasterRecord) EmployeeDTO {
	return EmployeeDTO{
		Name:          m.Name,
		Department:    m.Department,
		Email:         m.Email,
		WeeklyHours:   m.WeeklyHours,
		MaritalStatus: string(m.MaritalStatus),
		Dependents:    m.Dependents,
		AdmissionDate: formatDate(m.AdmissionDate),
		RegisteredAt:  formatTimestamp(m.RegisteredAt),
	}
}

func toSnapshotDTO(s payroll.Snapshot) SnapshotDTO {
	return SnapshotDTO{
		Employee:           s.Employee,
		Period:             s.Period.String(),
		WeeklyHours:        s.WeeklyHours,
		BaseWage:           s.BaseWage,
		HourlyRate:         s.HourlyRate,
		DailyMealAllowance: s.DailyMealAllowance,
		MealCard:           s.MealCard,
		MaritalStatus:      string(s.MaritalStatus),
		Titleholders:       s.Titleholders,
		Dependents:         s.Dependents,
		Disability:         s.Disability,
		TaxMode:            string(s.TaxMode),
		FlatRatePercent:    s.FlatRatePercent,
		VacationSubsidy:    string(s.VacationSubsidy),
		ChristmasSubsidy:   string(s.ChristmasSubsidy),
		Status:             string(s.Status),
		TerminationDate:    formatDate(s.TerminationDate),
		TerminationReason:  s.TerminationReason,
		CreatedAt:          formatTimestamp(s.CreatedAt),
	}
}

func toSnapshotDTOs(snaps []payroll.Snapshot) []SnapshotDTO {
	out := make([]SnapshotDTO, len(snaps))
	for i, s := range snaps {
		out[i] = toSnapshotDTO(s)
	}
	return out
}

func toAbsenceDTO(i int, a payroll.AbsenceRecord) AbsenceDTO {
	return AbsenceDTO{
		Index:        i,
		Kind:         string(a.Kind),
		Start:        formatDate(a.Start),
		End:          formatDate(a.End),
		BusinessDays: a.BusinessDays,
		CalendarDays: a.CalendarDays,
		Notes:        a.Notes,
		Attachment:   a.Attachment,
		CreatedAt:    formatTimestamp(a.CreatedAt),
	}
}

func toOvertimeDTO(i int, o payroll.OvertimeRecord) OvertimeDTO {
	return OvertimeDTO{
		Index:         i,
		NightHours:    o.NightHours,
		SundayHours:   o.SundayHours,
		HolidayHours:  o.HolidayHours,
		ExtraHours:    o.ExtraHours,
		OtherEarnings: o.OtherEarnings,
		Notes:         o.Notes,
		CreatedAt:     formatTimestamp(o.CreatedAt),
	}
}

func toTotalsDTO(a payroll.AbsenceTotals, o payroll.OvertimeTotals) TotalsDTO {
	return TotalsDTO{
		LeaveDays:         a.LeaveDays,
		SickDays:          a.SickDays,
		LeaveCalendarDays: a.LeaveCalendarDays,
		SickCalendarDays:  a.SickCalendarDays,
		NightHours:        o.NightHours,
		SundayHours:       o.SundayHours,
		HolidayHours:      o.HolidayHours,
		ExtraHours:        o.ExtraHours,
		OtherEarnings:     o.OtherEarnings,
	}
}

func toHolidayDTO(h payroll.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:        h.ID,
		CompanyID: h.CompanyID,
		Date:      formatDate(h.Date),
		Name:      h.Name,
		Recurring: h.Recurring,
	}
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
	return t.Format(time.RFC3339)
}
