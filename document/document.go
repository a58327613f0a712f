/*
Package document models one logical tabular document: an ordered set of
named tables, each with a fixed header row and string cells.

PURPOSE:
  The payroll engine keeps every piece of state in a single document
  (historically one spreadsheet workbook). This package is the in-memory
  model of that document plus the interfaces used to fetch and store it.
  It knows nothing about employees or payroll.

KEY TYPES:
  Document: ordered named tables (ReadTable, EnsureTable, AppendRow, DeleteRow)
  Table:    header + rows, with Record access by column name
  Codec:    bytes <-> Document (xlsx.go)
  Storage:  download / upload / copy whole documents (storage.go)

MUTATION MODEL:
  Documents are mutated in memory and written back whole. Callers that need
  a rollback point work on Clone() and discard it on failure.

SEE ALSO:
  - xlsx.go: workbook codec
  - storage.go: BlobStore + Codec adapter
  - payroll/guard.go: validate-then-commit wrapper around every write
*/
package document

import (
	"fmt"
	"slices"
)

// =============================================================================
// TABLE
// =============================================================================

// Table is one named table: a header row and data rows.
// Rows are always padded to the header width.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Record is a row keyed by column name.
type Record map[string]string

// Len returns the number of data rows (header excluded).
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of a column or -1.
func (t *Table) ColumnIndex(name string) int {
	return slices.Index(t.Columns, name)
}

// Record returns row i keyed by column name.
func (t *Table) Record(i int) Record {
	rec := make(Record, len(t.Columns))
	row := t.Rows[i]
	for c, name := range t.Columns {
		if c < len(row) {
			rec[name] = row[c]
		} else {
			rec[name] = ""
		}
	}
	return rec
}

// Records returns every row keyed by column name, in table order.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Record(i)
	}
	return out
}

func (t *Table) clone() *Table {
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = slices.Clone(r)
	}
	return &Table{Name: t.Name, Columns: slices.Clone(t.Columns), Rows: rows}
}

func (t *Table) normalize(values []string) []string {
	row := make([]string, len(t.Columns))
	copy(row, values)
	return row
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is an ordered collection of named tables.
// Not safe for concurrent mutation.
type Document struct {
	tables []*Table
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// Tables returns table names in document order.
func (d *Document) Tables() []string {
	names := make([]string, len(d.tables))
	for i, t := range d.tables {
		names[i] = t.Name
	}
	return names
}

// HasTable reports whether a table exists.
func (d *Document) HasTable(name string) bool {
	return d.find(name) != nil
}

// ReadTable returns a copy of the named table.
func (d *Document) ReadTable(name string) (*Table, error) {
	t := d.find(name)
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return t.clone(), nil
}

// RowCount returns the data row count of a table, 0 when absent.
func (d *Document) RowCount(name string) int {
	if t := d.find(name); t != nil {
		return len(t.Rows)
	}
	return 0
}

// EnsureTable creates the table with the given header if it does not exist.
// Returns true when the table was created. An existing table keeps its header.
func (d *Document) EnsureTable(name string, columns []string) bool {
	if d.find(name) != nil {
		return false
	}
	d.tables = append(d.tables, &Table{Name: name, Columns: slices.Clone(columns)})
	return true
}

// AppendRow appends values to the named table. Extra values are dropped and
// missing ones are blank, so every stored row has the header width.
func (d *Document) AppendRow(table string, values []string) error {
	t := d.find(table)
	if t == nil {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	t.Rows = append(t.Rows, t.normalize(values))
	return nil
}

// DeleteRow removes the data row at index (zero-based, header excluded).
func (d *Document) DeleteRow(table string, index int) error {
	t := d.find(table)
	if t == nil {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	if index < 0 || index >= len(t.Rows) {
		return fmt.Errorf("%w: %d of %d in %s", ErrRowOutOfRange, index, len(t.Rows), table)
	}
	t.Rows = slices.Delete(t.Rows, index, index+1)
	return nil
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := &Document{tables: make([]*Table, len(d.tables))}
	for i, t := range d.tables {
		out.tables[i] = t.clone()
	}
	return out
}

// putTable inserts or replaces a table; used by codecs while decoding.
func (d *Document) putTable(t *Table) {
	for i, existing := range d.tables {
		if existing.Name == t.Name {
			d.tables[i] = t
			return
		}
	}
	d.tables = append(d.tables, t)
}

func (d *Document) find(name string) *Table {
	for _, t := range d.tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}
