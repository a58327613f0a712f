package payroll

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/warp/payroll-engine/document"
)

// =============================================================================
// REGISTRY - appends new employees to the master table
// =============================================================================

// Registry writes new master rows. It is the only code path that writes the
// master table; the snapshot store only reads it.
type Registry struct {
	guard    *Guard
	validate *validator.Validate
	now      func() time.Time
}

func NewRegistry(guard *Guard) *Registry {
	return &Registry{guard: guard, validate: NewValidator(), now: time.Now}
}

// ValidationError lists every field that failed registration checks.
type ValidationError struct {
	Fields map[string]string // field -> failed rule
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range sortedKeys(e.Fields) {
		parts = append(parts, f+" ("+e.Fields[f]+")")
	}
	return "invalid employee: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidValue }

// Register validates rec and appends it to the master table.
func (r *Registry) Register(ctx context.Context, scope Scope, rec MasterRecord) (MasterRecord, error) {
	rec.Name = strings.TrimSpace(rec.Name)
	rec.NIF = compactDigits(rec.NIF)
	rec.NISS = compactDigits(rec.NISS)
	rec.Phone = compactDigits(rec.Phone)
	rec.IBAN = strings.ToUpper(strings.ReplaceAll(rec.IBAN, " ", ""))
	if rec.TaxMode == "" {
		rec.TaxMode = TaxBracket
	}
	if err := r.validate.Struct(rec); err != nil {
		return rec, toValidationError(err)
	}
	rec.RegisteredAt = r.now().UTC()

	_, err := r.guard.Mutate(ctx, scope.DocumentID, Mutation{
		Table: MasterTable,
		Delta: 1,
		Apply: func(doc *document.Document) error {
			names, err := ReadMaster(doc)
			if err != nil {
				return err
			}
			for _, n := range names {
				if n == rec.Name {
					return fmt.Errorf("%w: %s", ErrDuplicateEmployee, rec.Name)
				}
			}
			return doc.AppendRow(MasterTable, rec.row())
		},
	})
	return rec, err
}

// =============================================================================
// VALIDATOR - rules from the registration form
// =============================================================================

// NewValidator returns a validator with the Portuguese identity rules:
//
//	nif      9 digits
//	niss     11 digits
//	phone_pt 9 digits
//	iban_pt  PT50 followed by 21 digits
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "nif", digitsRule(9))
	mustRegister(v, "niss", digitsRule(11))
	mustRegister(v, "phone_pt", digitsRule(9))
	mustRegister(v, "iban_pt", func(fl validator.FieldLevel) bool {
		iban := strings.ReplaceAll(fl.Field().String(), " ", "")
		return len(iban) == 25 && strings.HasPrefix(iban, "PT50") && allDigits(iban[4:])
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func digitsRule(n int) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := compactDigits(fl.Field().String())
		return len(s) == n && allDigits(s)
	}
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = fe.Tag()
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}

func compactDigits(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "")
}

// allDigits accepts ASCII 0-9 only.
func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
