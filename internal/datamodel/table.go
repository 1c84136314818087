package datamodel

import (
	"github.com/litetable/litetable-rows/internal/uid"
)

// Table is an ordered list of rows. A table held by a column belongs to that column alone.
type Table struct {
	id   string
	rows []*Row
}

// NewTable creates a table owning rows.
func NewTable(rows ...*Row) *Table {
	t := &Table{id: uid.New()}
	for _, r := range rows {
		t.InsertRow(r)
	}
	return t
}

func (*Table) Kind() Kind { return KindTable }
func (*Table) isValue()   {}

func (t *Table) ID() string {
	return t.id
}

func (t *Table) RowCount() int {
	return len(t.rows)
}

// Rows returns the rows in order. The slice is a copy; the rows are not.
func (t *Table) Rows() []*Row {
	out := make([]*Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// GetRow returns the row at index i, or nil when out of range.
func (t *Table) GetRow(i int) *Row {
	if i < 0 || i >= len(t.rows) {
		return nil
	}
	return t.rows[i]
}

func (t *Table) GetRowByID(id string) *Row {
	for _, r := range t.rows {
		if r.ID() == id {
			return r
		}
	}
	return nil
}

// InsertRow appends row. It reports false for a nil row or when a row with the same id exists.
func (t *Table) InsertRow(row *Row) bool {
	if row == nil || t.GetRowByID(row.ID()) != nil {
		return false
	}
	t.rows = append(t.rows, row)
	return true
}

// DeleteRow removes the row with the given id.
func (t *Table) DeleteRow(id string) bool {
	for i, r := range t.rows {
		if r.ID() == id {
			t.rows = append(t.rows[:i:i], t.rows[i+1:]...)
			return true
		}
	}
	return false
}

// Clone deep-copies the table and all of its rows, keeping every id.
func (t *Table) Clone() *Table {
	c := &Table{
		id:   t.id,
		rows: make([]*Row, 0, len(t.rows)),
	}
	for _, r := range t.rows {
		c.rows = append(c.rows, r.Clone())
	}
	return c
}
