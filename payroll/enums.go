package payroll

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// CLOSED ENUMS
// =============================================================================
// Each enum is a string type whose values are the canonical cell spelling.
// Parse* accepts the canonical value plus the spellings found in older
// documents, and returns ErrInvalidValue for anything else.

type MaritalStatus string

const (
	Single             MaritalStatus = "single"
	MarriedSoleFiler   MaritalStatus = "married_sole_filer"
	MarriedJointFilers MaritalStatus = "married_joint_filers"
)

type TaxMode string

const (
	TaxBracket  TaxMode = "bracket"
	TaxFlatRate TaxMode = "flat_rate"
)

// SubsidyMode is how a vacation or christmas subsidy is paid.
// The zero value means "not fixed on the snapshot".
type SubsidyMode string

const (
	SubsidyUnset      SubsidyMode = ""
	SubsidyProrated   SubsidyMode = "prorated"
	SubsidyLump       SubsidyMode = "lump"
	SubsidySuppressed SubsidyMode = "suppressed"
)

type EmploymentStatus string

const (
	StatusActive     EmploymentStatus = "active"
	StatusTerminated EmploymentStatus = "terminated"
)

type AbsenceKind string

const (
	AbsenceLeave     AbsenceKind = "leave"
	AbsenceSickLeave AbsenceKind = "sick_leave"
)

var maritalSpellings = map[string]MaritalStatus{
	"single":                Single,
	"nao casado":            Single,
	"solteiro":              Single,
	"solteira":              Single,
	"married sole filer":    MarriedSoleFiler,
	"casado 1":              MarriedSoleFiler,
	"casado unico titular":  MarriedSoleFiler,
	"casado 1 titular":      MarriedSoleFiler,
	"married joint filers":  MarriedJointFilers,
	"casado 2":              MarriedJointFilers,
	"casado dois titulares": MarriedJointFilers,
	"casado 2 titulares":    MarriedJointFilers,
}

var taxModeSpellings = map[string]TaxMode{
	"bracket":    TaxBracket,
	"tabela":     TaxBracket,
	"tabela irs": TaxBracket,
	"irs":        TaxBracket,
	"flat rate":  TaxFlatRate,
	"taxa fixa":  TaxFlatRate,
	"taxa":       TaxFlatRate,
	"fixa":       TaxFlatRate,
}

var subsidySpellings = map[string]SubsidyMode{
	"":           SubsidyUnset,
	"prorated":   SubsidyProrated,
	"duodecimos": SubsidyProrated,
	"lump":       SubsidyLump,
	"total":      SubsidyLump,
	"completo":   SubsidyLump,
	"suppressed": SubsidySuppressed,
	"nao pagar":  SubsidySuppressed,
	"suprimido":  SubsidySuppressed,
}

var statusSpellings = map[string]EmploymentStatus{
	"active":     StatusActive,
	"ativo":      StatusActive,
	"terminated": StatusTerminated,
	"inativo":    StatusTerminated,
	"cessado":    StatusTerminated,
}

var absenceSpellings = map[string]AbsenceKind{
	"leave":        AbsenceLeave,
	"ferias":       AbsenceLeave,
	"falta":        AbsenceLeave,
	"sick leave":   AbsenceSickLeave,
	"baixa":        AbsenceSickLeave,
	"baixa medica": AbsenceSickLeave,
}

func ParseMaritalStatus(s string) (MaritalStatus, error) {
	return parseEnum("marital_status", s, maritalSpellings)
}

func ParseTaxMode(s string) (TaxMode, error) {
	return parseEnum("tax_mode", s, taxModeSpellings)
}

func ParseSubsidyMode(s string) (SubsidyMode, error) {
	return parseEnum("subsidy", s, subsidySpellings)
}

func ParseEmploymentStatus(s string) (EmploymentStatus, error) {
	return parseEnum("status", s, statusSpellings)
}

func ParseAbsenceKind(s string) (AbsenceKind, error) {
	return parseEnum("kind", s, absenceSpellings)
}

func parseEnum[T ~string](field, raw string, spellings map[string]T) (T, error) {
	if v, ok := spellings[normalizeSpelling(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, &FieldError{Field: field, Value: raw, Err: fmt.Errorf("unknown %s", field)}
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeSpelling lowercases, strips accents and collapses punctuation and
// underscores into single spaces: "Casado, Único_Titular" -> "casado unico titular".
func normalizeSpelling(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	fields := strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}
