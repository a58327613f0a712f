package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/calc"
	"github.com/warp/payroll-engine/payroll"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// COMPANIES FILE
// =============================================================================

// Company is one employer and the document holding its payroll data.
type Company struct {
	ID               string         `yaml:"id" json:"id"`
	Name             string         `yaml:"name" json:"name"`
	DocumentID       string         `yaml:"document_id" json:"document_id"`
	OvertimeTracking bool           `yaml:"overtime_tracking" json:"overtime_tracking"`
	Holidays         []HolidayEntry `yaml:"holidays" json:"holidays,omitempty"`
	Brackets         *BracketsEntry `yaml:"brackets" json:"-"`
}

// Scope returns the document scope of the company.
func (c Company) Scope() payroll.Scope {
	return payroll.Scope{CompanyID: c.ID, DocumentID: c.DocumentID}
}

// HolidayEntry is a holiday as written in YAML. Recurring entries may omit
// the year ("12-24").
type HolidayEntry struct {
	Date      string `yaml:"date" json:"date"`
	Name      string `yaml:"name" json:"name"`
	Recurring bool   `yaml:"recurring" json:"recurring"`
}

// BracketsEntry is a withholding table as written in YAML.
type BracketsEntry struct {
	Bands []struct {
		UpTo string `yaml:"up_to"`
		Rate string `yaml:"rate"`
	} `yaml:"bands"`
	TopRate string `yaml:"top_rate"`
}

type companiesFile struct {
	Version                 int            `yaml:"version"`
	MinimumWages            map[int]string `yaml:"minimum_wages"`
	IncludeNationalHolidays bool           `yaml:"include_national_holidays"`
	Holidays                []HolidayEntry `yaml:"holidays"`
	Brackets                *BracketsEntry `yaml:"brackets"`
	Companies               []Company      `yaml:"companies"`
}

// Companies is the parsed companies file.
type Companies struct {
	wages     payroll.WageTable
	holidays  []payroll.Holiday
	brackets  calc.BracketTable
	companies []Company
	byID      map[string]Company
	perCo     map[string]calc.BracketTable
}

// LoadCompanies reads the companies file at path. An empty path searches
// for config/companies.yaml from the working directory upwards.
func LoadCompanies(path string) (*Companies, error) {
	if path == "" {
		p, err := defaultCompaniesPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCompanies(b)
}

// ParseCompanies parses and validates a companies file.
func ParseCompanies(b []byte) (*Companies, error) {
	var cf companiesFile
	if err := yaml.Unmarshal(b, &cf); err != nil {
		return nil, fmt.Errorf("companies: %w", err)
	}
	if cf.Version != 1 {
		return nil, errors.New("companies: unsupported version")
	}
	if len(cf.Companies) == 0 {
		return nil, errors.New("companies: empty")
	}
	if len(cf.MinimumWages) == 0 {
		return nil, errors.New("companies: no minimum wages")
	}

	c := &Companies{
		wages:    make(payroll.WageTable, len(cf.MinimumWages)),
		brackets: calc.DefaultBrackets(),
		byID:     make(map[string]Company, len(cf.Companies)),
		perCo:    make(map[string]calc.BracketTable),
	}
	for year, raw := range cf.MinimumWages {
		v, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || !v.IsPositive() {
			return nil, fmt.Errorf("companies: minimum wage %d: invalid %q", year, raw)
		}
		c.wages[year] = v
	}

	if cf.IncludeNationalHolidays {
		c.holidays = append(c.holidays, payroll.PortugueseHolidays()...)
	}
	global, err := toHolidays("", cf.Holidays)
	if err != nil {
		return nil, err
	}
	c.holidays = append(c.holidays, global...)

	if cf.Brackets != nil {
		if c.brackets, err = cf.Brackets.table(); err != nil {
			return nil, err
		}
	}

	for _, co := range cf.Companies {
		co.ID = strings.TrimSpace(co.ID)
		if co.ID == "" || strings.TrimSpace(co.DocumentID) == "" {
			return nil, errors.New("companies: invalid company")
		}
		if _, dup := c.byID[co.ID]; dup {
			return nil, fmt.Errorf("companies: duplicate company %s", co.ID)
		}
		own, err := toHolidays(co.ID, co.Holidays)
		if err != nil {
			return nil, err
		}
		c.holidays = append(c.holidays, own...)
		if co.Brackets != nil {
			t, err := co.Brackets.table()
			if err != nil {
				return nil, fmt.Errorf("companies: %s: %w", co.ID, err)
			}
			c.perCo[co.ID] = t
		}
		c.byID[co.ID] = co
		c.companies = append(c.companies, co)
	}
	return c, nil
}

// List returns the companies in file order.
func (c *Companies) List() []Company {
	return append([]Company(nil), c.companies...)
}

// Company looks a company up by ID.
func (c *Companies) Company(id string) (Company, bool) {
	co, ok := c.byID[id]
	return co, ok
}

// Wages returns the minimum wage table.
func (c *Companies) Wages() payroll.WageTable {
	return c.wages
}

// Holidays returns every configured holiday, global ones with an empty company.
func (c *Companies) Holidays() []payroll.Holiday {
	return append([]payroll.Holiday(nil), c.holidays...)
}

// PeriodConfig assembles the calculation settings of a company for a year.
func (c *Companies) PeriodConfig(companyID string, year int, calendar payroll.HolidayCalendar) (calc.PeriodConfig, error) {
	co, ok := c.byID[companyID]
	if !ok {
		return calc.PeriodConfig{}, fmt.Errorf("%w: company %s", ErrUnknownCompany, companyID)
	}
	minWage, err := c.wages.For(year)
	if err != nil {
		return calc.PeriodConfig{}, err
	}
	policy := calc.OvertimeUntracked
	if co.OvertimeTracking {
		policy = calc.OvertimeTracked
	}
	brackets := c.brackets
	if t, ok := c.perCo[companyID]; ok {
		brackets = t
	}
	return calc.PeriodConfig{
		CompanyID: companyID,
		MinWage:   minWage,
		Calendar:  calendar,
		Overtime:  policy,
		Brackets:  brackets,
	}, nil
}

// ErrUnknownCompany is returned for a company ID missing from the file.
var ErrUnknownCompany = errors.New("unknown company")

// =============================================================================
// HELPERS
// =============================================================================

func toHolidays(companyID string, entries []HolidayEntry) ([]payroll.Holiday, error) {
	out := make([]payroll.Holiday, 0, len(entries))
	for _, e := range entries {
		d, err := parseHolidayDate(e)
		if err != nil {
			return nil, err
		}
		out = append(out, payroll.Holiday{
			CompanyID: companyID,
			Date:      d,
			Name:      strings.TrimSpace(e.Name),
			Recurring: e.Recurring,
		})
	}
	return out, nil
}

func parseHolidayDate(e HolidayEntry) (time.Time, error) {
	raw := strings.TrimSpace(e.Date)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	if e.Recurring {
		if t, err := time.Parse("01-02", raw); err == nil {
			return time.Date(2000, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("companies: holiday %q: invalid date %q", e.Name, e.Date)
}

func (b *BracketsEntry) table() (calc.BracketTable, error) {
	var t calc.BracketTable
	for _, band := range b.Bands {
		upTo, err := decimal.NewFromString(band.UpTo)
		if err != nil {
			return t, fmt.Errorf("brackets: up_to %q: %w", band.UpTo, err)
		}
		rate, err := decimal.NewFromString(band.Rate)
		if err != nil {
			return t, fmt.Errorf("brackets: rate %q: %w", band.Rate, err)
		}
		t.Bands = append(t.Bands, calc.Bracket{UpTo: upTo, Rate: rate})
	}
	top, err := decimal.NewFromString(b.TopRate)
	if err != nil {
		return t, fmt.Errorf("brackets: top_rate %q: %w", b.TopRate, err)
	}
	t.TopRate = top
	sort.SliceStable(t.Bands, func(i, j int) bool { return t.Bands[i].UpTo.LessThan(t.Bands[j].UpTo) })
	return t, t.Validate()
}

func defaultCompaniesPath() (string, error) {
	path := "config/companies.yaml"
	for range 8 {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("config: companies file not found")
}
