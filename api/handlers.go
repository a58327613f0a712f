/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the snapshot store, the ledger and the calculation engine via
  REST. Handles HTTP request/response and JSON, and delegates to payroll/
  and calc/. Every route below /api/companies/{company} works on that
  company's document; there is no "current company".

ENDPOINTS:
  Companies:
    GET    /api/companies                                  List configured companies
    POST   /api/companies/{company}/document               Create the document if missing
    GET    /api/companies/{company}/backups                List document backups

  Employees:
    GET    /api/companies/{company}/employees              Master records
    POST   /api/companies/{company}/employees              Register employee

  Snapshots (period is YYYY-MM):
    GET    .../employees/{employee}/periods/{period}/snapshot     Resolve
    PATCH  .../employees/{employee}/periods/{period}/snapshot     Update one field
    GET    .../employees/{employee}/periods/{period}/history      Rows of the month
    POST   .../employees/{employee}/periods/{period}/termination  Terminate

  Ledger:
    GET|POST .../employees/{employee}/periods/{period}/absences
    DELETE   .../employees/{employee}/periods/{period}/absences/{index}
    GET|POST .../employees/{employee}/periods/{period}/overtime
    DELETE   .../employees/{employee}/periods/{period}/overtime/{index}
    GET      .../employees/{employee}/periods/{period}/totals

  Payroll:
    GET    .../employees/{employee}/periods/{period}/payroll  One employee
    GET    /api/companies/{company}/periods/{period}/employees Active snapshots
    GET    /api/companies/{company}/periods/{period}/payroll   Company run

  Holidays:
    GET    /api/companies/{company}/holidays?year=YYYY
    POST   /api/companies/{company}/holidays
    DELETE /api/companies/{company}/holidays/{id}

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status (see statusFor):
  - 400: Validation errors, invalid input
  - 404: Unknown company, employee, document or holiday
  - 409: Duplicate employee, reactivating a terminated employee
  - 422: Corrupt document, integrity violation, missing minimum wage
  - 503: Document storage unavailable
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scenarios.go: Demo data loaders
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/warp/payroll-engine/calc"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/document"
	"github.com/warp/payroll-engine/logctx"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Companies *config.Companies
	Store     *sqlite.Store
	Guard     *payroll.Guard
	Registry  *payroll.Registry
	Snapshots *payroll.SnapshotStore
	Ledger    *payroll.Ledger

	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler wires the payroll stores on top of the SQLite blob store.
func NewHandler(companies *config.Companies, store *sqlite.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	guard := payroll.NewGuard(document.NewBlobStorage(store), logger)
	return &Handler{
		Companies: companies,
		Store:     store,
		Guard:     guard,
		Registry:  payroll.NewRegistry(guard),
		Snapshots: payroll.NewSnapshotStore(guard, companies.Wages()),
		Ledger:    payroll.NewLedger(guard),
		validate:  payroll.NewValidator(),
		logger:    logger,
	}
}

// InitializeDocuments creates the document of every company that has none.
func (h *Handler) InitializeDocuments(ctx context.Context) error {
	for _, co := range h.Companies.List() {
		if _, err := h.Guard.Initialize(ctx, co.DocumentID); err != nil {
			return fmt.Errorf("initialize %s: %w", co.ID, err)
		}
	}
	return nil
}

type companyKey struct{}

// companyCtx resolves {company} and rejects unknown IDs.
func (h *Handler) companyCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "company")
		co, ok := h.Companies.Company(id)
		if !ok {
			writeError(w, http.StatusNotFound, "Unknown company", fmt.Errorf("%w: %s", config.ErrUnknownCompany, id))
			return
		}
		ctx := context.WithValue(r.Context(), companyKey{}, co)
		ctx = logctx.WithLogger(ctx, logctx.From(ctx, h.logger).With(zap.String("company", co.ID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func companyFrom(r *http.Request) config.Company {
	co, _ := r.Context().Value(companyKey{}).(config.Company)
	return co
}

// =============================================================================
// COMPANY HANDLERS
// =============================================================================

// ListCompanies returns the configured companies.
// GET /api/companies
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	list := h.Companies.List()
	dtos := make([]CompanyDTO, len(list))
	for i, co := range list {
		dtos[i] = CompanyDTO{
			ID:               co.ID,
			Name:             co.Name,
			DocumentID:       co.DocumentID,
			OvertimeTracking: co.OvertimeTracking,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// InitializeDocument creates the company document when it does not exist.
// POST /api/companies/{company}/document
func (h *Handler) InitializeDocument(w http.ResponseWriter, r *http.Request) {
	co := companyFrom(r)
	created, err := h.Guard.Initialize(r.Context(), co.DocumentID)
	if err != nil {
		h.fail(w, r, "Failed to initialize document", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"document_id": co.DocumentID, "created": created})
}

// ListBackups returns the stored backups of the company document.
// GET /api/companies/{company}/backups
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := h.Store.ListBackups(r.Context(), companyFrom(r).DocumentID)
	if err != nil {
		h.fail(w, r, "Failed to list backups", err)
		return
	}
	if backups == nil {
		backups = []sqlite.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns every master record.
// GET /api/companies/{company}/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Guard.Load(r.Context(), companyFrom(r).DocumentID)
	if err != nil {
		h.fail(w, r, "Failed to load document", err)
		return
	}
	names, err := payroll.ReadMaster(doc)
	if err != nil {
		h.fail(w, r, "Failed to read employees", err)
		return
	}
	dtos := make([]EmployeeDTO, 0, len(names))
	for _, name := range names {
		m, err := payroll.FindMaster(doc, name)
		if err != nil {
			h.fail(w, r, "Failed to read employee", err)
			return
		}
		dtos = append(dtos, toEmployeeDTO(m))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RegisterEmployee appends a new master record.
// POST /api/companies/{company}/employees
func (h *Handler) RegisterEmployee(w http.ResponseWriter, r *http.Request) {
	var req RegisterEmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec := payroll.MasterRecord{
		Name:               req.Name,
		Department:         req.Department,
		WeeklyHours:        req.WeeklyHours,
		Email:              req.Email,
		BirthDate:          mustDate(req.BirthDate),
		NISS:               req.NISS,
		NIF:                req.NIF,
		IDDocument:         req.IDDocument,
		IDDocumentExpiry:   mustDate(req.IDDocumentExpiry),
		TaxOffice:          req.TaxOffice,
		Titleholders:       req.Titleholders,
		Dependents:         req.Dependents,
		Address:            req.Address,
		IBAN:               req.IBAN,
		AdmissionDate:      mustDate(req.AdmissionDate),
		Nationality:        req.Nationality,
		Phone:              req.Phone,
		DailyMealAllowance: req.DailyMealAllowance,
		FlatRatePercent:    req.FlatRatePercent,
	}
	var err error
	if rec.MaritalStatus, err = payroll.ParseMaritalStatus(req.MaritalStatus); err != nil {
		h.fail(w, r, "Invalid marital status", err)
		return
	}
	if req.TaxMode != "" {
		if rec.TaxMode, err = payroll.ParseTaxMode(req.TaxMode); err != nil {
			h.fail(w, r, "Invalid tax mode", err)
			return
		}
	}

	rec, err = h.Registry.Register(r.Context(), companyFrom(r).Scope(), rec)
	if err != nil {
		h.fail(w, r, "Failed to register employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(rec))
}

// =============================================================================
// SNAPSHOT HANDLERS
// =============================================================================

// GetSnapshot resolves the current snapshot for the month.
// GET .../employees/{employee}/periods/{period}/snapshot
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	employee, period, ok := h.employeePeriod(w, r)
	if !ok {
		return
	}
	snap, err := h.Snapshots.Resolve(r.Context(), companyFrom(r).Scope(), employee, period)
	if err != nil {
		h.fail(w, r, "Failed to resolve snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(snap))
}

// GetHistory returns every snapshot row of the month without creating any.
// GET .../employees/{employee}/periods/{period}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	employee, period, ok := h.employeePeriod(w, r)
	if !ok {
		return
	}
	snaps, err := h.Snapshots.History(r.Context(), companyFrom(r).Scope(), employee, period)
	if err != nil {
		h.fail(w, r, "Failed to read history", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTOs(snaps))
}

// UpdateField appends a snapshot with one field changed.
// PATCH .../employees/{employee}/periods/{period}/snapshot
func (h *Handler) UpdateField(w http.ResponseWriter, r *http.Request) {
	employee, period, ok := h.employeePeriod(w, r)
	if !ok {
		return
	}
	var req UpdateFieldRequest
	if !h.decode(w, r, &req) {
		return
	}
	snap, err := h.Snapshots.UpdateField(r.Context(), companyFrom(r).Scope(), employee, period,
		payroll.Field(strings.TrimSpace(req.Field)), req.Value)
	if err != nil {
		h.fail(w, r, "Failed to update field", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(snap))
}

// Terminate marks the employee terminated.
// POST .../employees/{employee}/periods/{period}/termination
func (h *Handler) Terminate(w http.ResponseWriter, r *http.Request) {
	employee, period, ok := h.employeePeriod(w, r)
	if !ok {
		return
	}
	var req TerminationRequest
	if !h.decode(w, r, &req) {
		return
	}
	snap, err := h.Snapshots.SetTerminated(r.Context(), companyFrom(r).Scope(), employee, period,
		mustDate(req.Date), req.Reason)
	if err != nil {
		h.fail(w, r, "Failed to terminate employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(snap))
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// ListAbsences returns the employee's absences of the month.
// GET .../employees/{employee}/periods/{period}/absences
func (h *Handler) ListAbsences(w http.ResponseWriter, r *http.Request) {
	employee, period, ok := h.employeePeriod(w, r)
	if !ok {
		return
	}
	records, err := h.Ledger.Absences(r.Context(), companyFrom(r).Scope(), employee, period)
	if err != nil {
		h.fail(w, r, "Failed to list absences", err)
		return
	}
	dtos := make([]AbsenceDTO, len(records))
	for i, a := range records {
		dtos[i] = toAbsenceDTO(i, a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordAbsence appends a leave or sick-leave period.
// POST .../employees/{employee}/periods/{period}/absences
func (h *Handler) RecordAbsence(w http.ResponseWriter, r *http.Request) {
	employee, period, ok := h.employeePeriod(w, r)
	if !ok {
		return
	}
	var req AbsenceRequest
	if !h.decode(w, r, &req) {
		return
	}
	kind, err := payroll.ParseAbsenceKind(req.Kind)
	if err != nil {
		h.fail(w, r, "Invalid absence kind", err)
		return
	}
	in := payroll.AbsenceInput{
		Employee: employee,
		Period:   period,
		Kind:     kind,
		Start:    mustDate(req.Start),
		End:      mustDate(req.End),
		Notes:    req.Notes,
	}
	if strings.TrimSpace(req.Attachment) != "" {
		in.Attachment = payroll.AttachmentRef(employee, req.Attachment)
	}

	co := companyFrom(r)
	calendar, err := h.Store.Calendar(r.Context(), co.ID, period.Start(), period.End())
	if err != nil {
		h.fail(w, r, "Failed to load holidays", err)
		return
	}
	rec, err := h.Ledger.RecordAbsence(r.Context(), co.Scope(), in, calendar)
	if err != nil {
		h.fail(w, r, "Failed to record absence", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAbsenceDTO(-1, rec))
}

// ListOvertime returns the employee's overtime entries of the month.
// GET .../employees/{employee}/periods/{period}/overtime
func (h *Handler) ListOvertime(w http.ResponseWriter, r *http.Request) {
	employee, period, ok := h.employeePeriod(w, r)
	if !ok {
		return
	}
	records, err := h.Ledger.Overtime(r.Context(), companyFrom(r).Scope(), employee, period)
	if err != nil {
		h.fail(w, r, "Failed to list overtime", err)
		return
	}
	dtos := make([]OvertimeDTO, len(records))
	for i, o := range records {
		dtos[i] = toOvertimeDTO(i, o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordOvertime appends an overtime entry.
// POST .../employees/{employee}/periods/{period}/overtime
func (h *Handler) RecordOvertime(w http.ResponseWriter, r *http.Request) {
	employee, period, ok := h.employeePeriod(w, r)
	if !ok {
		return
	}
	var req OvertimeRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := h.Ledger.RecordOvertime(r.Context(), companyFrom(r).Scope(), payroll.OvertimeInput{
		Employee:      employee,
		Period:        period,
		NightHours:    req.NightHours,
		SundayHours:   req.SundayHours,
		HolidayHours:  req.HolidayHours,
		ExtraHours:    req.ExtraHours,
		OtherEarnings: req.OtherEarnings,
		Notes:         req.Notes,
	})
	if err != nil {
		h.fail(w, r, "Failed to record overtime", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOvertimeDTO(-1, rec))
}

// DeleteEntry removes the index-th row of the employee in a ledger table.
// DELETE .../employees/{employee}/periods/{period}/{absences|overtime}/{index}
func (h *Handler) DeleteEntry(kind payroll.LedgerKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employee, period, ok := h.employeePeriod(w, r)
		if !ok {
			return
		}
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid index", err)
			return
		}
		if err := h.Ledger.DeleteAt(r.Context(), companyFrom(r).Scope(), kind, employee, period, index); err != nil {
			h.fail(w, r, "Failed to delete entry", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
	}
}

// GetTotals returns the month's ledger aggregates.
// GET .../employees/{employee}/periods/{period}/totals
func (h *Handler) GetTotals(w http.ResponseWriter, r *http.Request) {
	employee, period, ok := h.employeePeriod(w, r)
	if !ok {
		return
	}
	a, o, err := h.Ledger.Aggregate(r.Context(), companyFrom(r).Scope(), employee, period)
	if err != nil {
		h.fail(w, r, "Failed to aggregate ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, toTotalsDTO(a, o))
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// GetPayroll calculates one employee's payroll.
// GET .../employees/{employee}/periods/{period}/payroll?meal_card=&vacation_subsidy=&christmas_subsidy=
func (h *Handler) GetPayroll(w http.ResponseWriter, r *http.Request) {
	employee, period, ok := h.employeePeriod(w, r)
	if !ok {
		return
	}
	opts, err := parseOptions(r.URL.Query())
	if err != nil {
		h.fail(w, r, "Invalid options", err)
		return
	}
	co := companyFrom(r)
	calendar, err := h.Store.Calendar(r.Context(), co.ID, period.Start(), period.End())
	if err != nil {
		h.fail(w, r, "Failed to load holidays", err)
		return
	}
	cfg, err := h.Companies.PeriodConfig(co.ID, period.Year, calendar)
	if err != nil {
		h.fail(w, r, "Failed to load company configuration", err)
		return
	}

	ctx := r.Context()
	snap, err := h.Snapshots.Resolve(ctx, co.Scope(), employee, period)
	if err != nil {
		h.fail(w, r, "Failed to resolve snapshot", err)
		return
	}
	a, o, err := h.Ledger.Aggregate(ctx, co.Scope(), employee, period)
	if err != nil {
		h.fail(w, r, "Failed to aggregate ledger", err)
		return
	}
	result, err := calc.Calculate(snap, a, o, cfg, opts)
	if err != nil {
		h.fail(w, r, "Failed to calculate payroll", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListActive returns the resolved snapshots of every active employee.
// GET /api/companies/{company}/periods/{period}/employees
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	period, ok := h.period(w, r)
	if !ok {
		return
	}
	snaps, err := h.Snapshots.ListActive(r.Context(), companyFrom(r).Scope(), period)
	if err != nil {
		h.fail(w, r, "Failed to list active employees", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTOs(snaps))
}

// RunPayroll calculates every active employee of the month.
// GET /api/companies/{company}/periods/{period}/payroll
func (h *Handler) RunPayroll(w http.ResponseWriter, r *http.Request) {
	period, ok := h.period(w, r)
	if !ok {
		return
	}
	opts, err := parseOptions(r.URL.Query())
	if err != nil {
		h.fail(w, r, "Invalid options", err)
		return
	}
	co := companyFrom(r)
	calendar, err := h.Store.Calendar(r.Context(), co.ID, period.Start(), period.End())
	if err != nil {
		h.fail(w, r, "Failed to load holidays", err)
		return
	}
	cfg, err := h.Companies.PeriodConfig(co.ID, period.Year, calendar)
	if err != nil {
		h.fail(w, r, "Failed to load company configuration", err)
		return
	}
	inputs, err := calc.Collect(r.Context(), h.Snapshots, h.Ledger, co.Scope(), period)
	if err != nil {
		h.fail(w, r, "Failed to collect payroll inputs", err)
		return
	}
	report, err := calc.RunPayroll(period, inputs, cfg, opts)
	if err != nil {
		h.fail(w, r, "Failed to run payroll", err)
		return
	}
	logctx.From(r.Context(), h.logger).Info("payroll run",
		zap.Stringer("period", period),
		zap.Int("employees", len(report.Results)),
		zap.Stringer("net_pay", report.Totals.NetPay),
	)
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns the company's holidays, national ones included.
// GET /api/companies/{company}/holidays?year=YYYY
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	companyID := companyFrom(r).ID

	var holidays []payroll.Holiday
	var err error
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, convErr := strconv.Atoi(raw)
		if convErr != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", convErr)
			return
		}
		holidays, err = h.Store.GetHolidays(ctx, companyID, year)
	} else {
		holidays, err = h.Store.GetAllHolidays(ctx, companyID)
	}
	if err != nil {
		h.fail(w, r, "Failed to get holidays", err)
		return
	}

	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, toHolidayDTO(hol))
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday adds a company holiday.
// POST /api/companies/{company}/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if !h.decode(w, r, &req) {
		return
	}
	saved, err := h.Store.SaveHoliday(r.Context(), payroll.Holiday{
		CompanyID: companyFrom(r).ID,
		Date:      mustDate(req.Date),
		Name:      strings.TrimSpace(req.Name),
		Recurring: req.Recurring,
	})
	if err != nil {
		h.fail(w, r, "Failed to create holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(saved))
}

// DeleteHoliday deletes one of the company's own holidays.
// DELETE /api/companies/{company}/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), companyFrom(r).ID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "Failed to delete holiday", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
		var verr *payroll.ValidationError
		if errors.As(err, &verr) {
			resp.Fields = verr.Fields
		}
	}
	writeJSON(w, status, resp)
}

// fail maps err to a status, logs server-side failures and writes the error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	log := logctx.From(r.Context(), h.logger)
	switch {
	case status >= http.StatusInternalServerError:
		log.Error(message, zap.Error(err), zap.Int("status", status))
	case status == http.StatusUnprocessableEntity:
		log.Warn(message, zap.Error(err), zap.Int("status", status))
	default:
		log.Debug(message, zap.Error(err), zap.Int("status", status))
	}
	writeError(w, status, message, err)
}

// statusFor maps the error classes of payroll/ and document/ to HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, payroll.ErrDuplicateEmployee),
		errors.Is(err, payroll.ErrInvalidTransition):
		return http.StatusConflict
	case payroll.IsClientError(err):
		return http.StatusBadRequest
	case payroll.IsNotFound(err),
		errors.Is(err, config.ErrUnknownCompany),
		errors.Is(err, sqlite.ErrHolidayNotFound):
		return http.StatusNotFound
	case payroll.IsIntegrity(err),
		errors.Is(err, payroll.ErrNoMinimumWage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, payroll.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decode reads and validates a JSON body. It writes the 400 itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		resp := ErrorResponse{Error: "Invalid request body", Fields: map[string]string{}}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				resp.Fields[fe.Field()] = fe.Tag()
			}
		} else {
			resp.Details = err.Error()
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

func (h *Handler) period(w http.ResponseWriter, r *http.Request) (payroll.Period, bool) {
	p, err := parsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period (use YYYY-MM)", err)
		return payroll.Period{}, false
	}
	return p, true
}

func (h *Handler) employeePeriod(w http.ResponseWriter, r *http.Request) (string, payroll.Period, bool) {
	employee, err := url.PathUnescape(chi.URLParam(r, "employee"))
	if err != nil || strings.TrimSpace(employee) == "" {
		writeError(w, http.StatusBadRequest, "Invalid employee", err)
		return "", payroll.Period{}, false
	}
	p, ok := h.period(w, r)
	return employee, p, ok
}

func parsePeriod(raw string) (payroll.Period, error) {
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return payroll.Period{}, err
	}
	p := payroll.NewPeriod(t.Year(), t.Month())
	return p, p.Validate()
}

// parseOptions reads the operator toggles of a payroll calculation.
func parseOptions(q url.Values) (calc.Options, error) {
	var opts calc.Options
	if raw := q.Get("meal_card"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, &payroll.FieldError{Field: "meal_card", Value: raw, Err: err}
		}
		opts.MealCard = &v
	}
	subsidy := func(key string) (*payroll.SubsidyMode, error) {
		raw := q.Get(key)
		if raw == "" {
			return nil, nil
		}
		m, err := payroll.ParseSubsidyMode(raw)
		if err != nil {
			return nil, err
		}
		return &m, nil
	}
	var err error
	if opts.VacationSubsidy, err = subsidy("vacation_subsidy"); err != nil {
		return opts, err
	}
	if opts.ChristmasSubsidy, err = subsidy("christmas_subsidy"); err != nil {
		return opts, err
	}
	return opts, nil
}

// mustDate parses a date the validator has already accepted. Empty gives zero.
func mustDate(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}
