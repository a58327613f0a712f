package payroll

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/document"
)

// =============================================================================
// MASTER RECORD - authoritative employee identity and baseline values
// =============================================================================

// MasterTable is the name of the master table in every company document.
const MasterTable = "employees"

// MasterColumns is the master table header, in the order the registration
// form writes it.
var MasterColumns = []string{
	"name", "department", "weekly_hours", "email", "birth_date", "niss", "nif",
	"id_document", "id_document_expiry", "tax_office", "marital_status",
	"titleholders", "dependents", "address", "iban", "admission_date",
	"nationality", "phone", "daily_meal_allowance", "tax_mode",
	"flat_rate_percent", "registered_at",
}

// MasterRecord is one row of the master table. The name is the natural key
// used by every other table.
type MasterRecord struct {
	Name               string          `validate:"required"`
	Department         string          `validate:"required"`
	WeeklyHours        decimal.Decimal `validate:"-"`
	Email              string          `validate:"required,email"`
	BirthDate          time.Time       `validate:"-"`
	NISS               string          `validate:"niss"`
	NIF                string          `validate:"nif"`
	IDDocument         string          `validate:"required"`
	IDDocumentExpiry   time.Time       `validate:"-"`
	TaxOffice          string
	MaritalStatus      MaritalStatus   `validate:"required,oneof=single married_sole_filer married_joint_filers"`
	Titleholders       int             `validate:"gte=1,lte=2"`
	Dependents         int             `validate:"gte=0"`
	Address            string          `validate:"required"`
	IBAN               string          `validate:"iban_pt"`
	AdmissionDate      time.Time       `validate:"-"`
	Nationality        string          `validate:"required"`
	Phone              string          `validate:"phone_pt"`
	DailyMealAllowance decimal.Decimal `validate:"-"`
	TaxMode            TaxMode         `validate:"omitempty,oneof=bracket flat_rate"`
	FlatRatePercent    decimal.Decimal `validate:"-"`
	RegisteredAt       time.Time       `validate:"-"`
}

func (m MasterRecord) row() []string {
	return recordRow(MasterColumns, document.Record{
		"name":                 m.Name,
		"department":           m.Department,
		"weekly_hours":         m.WeeklyHours.String(),
		"email":                m.Email,
		"birth_date":           formatDate(m.BirthDate),
		"niss":                 m.NISS,
		"nif":                  m.NIF,
		"id_document":          m.IDDocument,
		"id_document_expiry":   formatDate(m.IDDocumentExpiry),
		"tax_office":           m.TaxOffice,
		"marital_status":       string(m.MaritalStatus),
		"titleholders":         fmt.Sprint(m.Titleholders),
		"dependents":           fmt.Sprint(m.Dependents),
		"address":              m.Address,
		"iban":                 m.IBAN,
		"admission_date":       formatDate(m.AdmissionDate),
		"nationality":          m.Nationality,
		"phone":                m.Phone,
		"daily_meal_allowance": m.DailyMealAllowance.String(),
		"tax_mode":             string(m.TaxMode),
		"flat_rate_percent":    m.FlatRatePercent.String(),
		"registered_at":        formatTimestamp(m.RegisteredAt),
	})
}

// parseMaster reads the columns the core needs. Identity columns are kept
// verbatim; baseline columns must parse or the row is rejected, so a
// misspelled marital status never silently becomes Single.
func parseMaster(rec document.Record) (MasterRecord, error) {
	m := MasterRecord{
		Name:        strings.TrimSpace(rec["name"]),
		Department:  rec["department"],
		Email:       rec["email"],
		NISS:        rec["niss"],
		NIF:         rec["nif"],
		IDDocument:  rec["id_document"],
		TaxOffice:   rec["tax_office"],
		Address:     rec["address"],
		IBAN:        rec["iban"],
		Nationality: rec["nationality"],
		Phone:       rec["phone"],
	}
	var err error
	if m.WeeklyHours, err = parseNonNegative("weekly_hours", rec["weekly_hours"]); err != nil {
		return m, err
	}
	if m.BirthDate, err = parseDate("birth_date", rec["birth_date"]); err != nil {
		return m, err
	}
	if m.IDDocumentExpiry, err = parseDate("id_document_expiry", rec["id_document_expiry"]); err != nil {
		return m, err
	}
	if m.MaritalStatus, err = ParseMaritalStatus(rec["marital_status"]); err != nil {
		return m, err
	}
	if m.Titleholders, err = parseCount("titleholders", rec["titleholders"]); err != nil {
		return m, err
	}
	if m.Dependents, err = parseCount("dependents", rec["dependents"]); err != nil {
		return m, err
	}
	if m.AdmissionDate, err = parseDate("admission_date", rec["admission_date"]); err != nil {
		return m, err
	}
	if m.DailyMealAllowance, err = parseNonNegative("daily_meal_allowance", rec["daily_meal_allowance"]); err != nil {
		return m, err
	}
	m.TaxMode = TaxBracket
	if strings.TrimSpace(rec["tax_mode"]) != "" {
		if m.TaxMode, err = ParseTaxMode(rec["tax_mode"]); err != nil {
			return m, err
		}
	}
	if m.FlatRatePercent, err = parseNonNegative("flat_rate_percent", rec["flat_rate_percent"]); err != nil {
		return m, err
	}
	m.RegisteredAt, err = parseTimestamp("registered_at", rec["registered_at"])
	return m, err
}

// MasterRecordError wraps a parse failure with the offending employee.
type MasterRecordError struct {
	Row  int
	Name string
	Err  error
}

func (e *MasterRecordError) Error() string {
	return fmt.Sprintf("master row %d (%s): %v", e.Row, e.Name, e.Err)
}

func (e *MasterRecordError) Unwrap() error { return e.Err }

// ReadMaster returns the names in the master table, in table order.
// A missing table yields ErrCorruptDocument: the master is never optional.
func ReadMaster(doc *document.Document) ([]string, error) {
	t, err := doc.ReadTable(MasterTable)
	if err != nil {
		return nil, &IntegrityError{Phase: "pre", Table: MasterTable, Reason: "master table missing"}
	}
	idx := t.ColumnIndex("name")
	if idx < 0 {
		return nil, &IntegrityError{Phase: "pre", Table: MasterTable, Reason: "master table has no name column"}
	}
	names := make([]string, 0, t.Len())
	for _, row := range t.Rows {
		if name := strings.TrimSpace(row[idx]); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// FindMaster returns the master record for name. Names compare exactly after
// trimming surrounding whitespace.
func FindMaster(doc *document.Document, name string) (MasterRecord, error) {
	t, err := doc.ReadTable(MasterTable)
	if err != nil {
		return MasterRecord{}, &IntegrityError{Phase: "pre", Table: MasterTable, Reason: "master table missing"}
	}
	name = strings.TrimSpace(name)
	for i, rec := range t.Records() {
		if strings.TrimSpace(rec["name"]) != name {
			continue
		}
		m, err := parseMaster(rec)
		if err != nil {
			return m, &MasterRecordError{Row: i, Name: name, Err: err}
		}
		return m, nil
	}
	return MasterRecord{}, fmt.Errorf("%w: %s", ErrEmployeeNotFound, name)
}
