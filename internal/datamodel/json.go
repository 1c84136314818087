package datamodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	classKey   = "$class"
	rowClass   = "DataTableRow"
	tableClass = "DataTable"
	rowsKey    = "rows"
)

var (
	ErrUnsupportedValue = errors.New("unsupported json value")
	ErrWrongClass       = errors.New("unexpected $class")
)

// EncodeValue converts v into a plain JSON tree. It reports false for undefined values, which
// are omitted from serialized rows. Dates become epoch milliseconds and non-finite numbers
// become null.
func EncodeValue(v Value) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case Null:
		return nil, true
	case Bool:
		return bool(val), true
	case Number:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, true
		}
		return f, true
	case String:
		return string(val), true
	case Date:
		return val.UnixMilli(), true
	case *Table:
		if val == nil {
			return nil, false
		}
		return val.ToJSON(), true
	default:
		return nil, false
	}
}

// DecodeValue reconstructs a column value from a JSON tree. The accepted forms are:
//
//	literal    null, bool, number or string, stored as is
//	object     a table in the form produced by Table.ToJSON
//	array      a list of row objects, shorthand for a table holding those rows
//
// Numbers are never turned back into dates.
func DecodeValue(raw any) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case float64:
		return Number(v), nil
	case float32:
		return Number(v), nil
	case int:
		return Number(v), nil
	case int32:
		return Number(v), nil
	case int64:
		return Number(v), nil
	case uint:
		return Number(v), nil
	case uint32:
		return Number(v), nil
	case uint64:
		return Number(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: number %q", ErrUnsupportedValue, v.String())
		}
		return Number(f), nil
	case map[string]any:
		return TableFromJSON(v)
	case []any:
		return TableFromJSON(map[string]any{
			classKey: tableClass,
			rowsKey:  v,
		})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, raw)
	}
}

// ToJSON returns the row as a plain JSON tree: the $class discriminator, the id and every
// defined column.
func (r *Row) ToJSON() map[string]any {
	out := make(map[string]any, len(r.keys)+2)
	out[classKey] = rowClass
	out[idColumn] = r.id
	for _, k := range r.keys {
		if v, ok := EncodeValue(r.cells[k]); ok {
			out[k] = v
		}
	}
	return out
}

func (r *Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToJSON())
}

// RowFromJSON builds a new row from the form produced by Row.ToJSON. The discriminator and
// keys starting with "_" are skipped. Date columns come back as numbers.
func RowFromJSON(obj map[string]any) (*Row, error) {
	if class, ok := obj[classKey]; ok && class != rowClass {
		return nil, fmt.Errorf("%w: %v, want %s", ErrWrongClass, class, rowClass)
	}

	cells := make(Cells, len(obj))
	for k, raw := range obj {
		if k == classKey || strings.HasPrefix(k, "_") {
			continue
		}
		v, err := DecodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", k, err)
		}
		cells[k] = v
	}
	return NewRow(cells, nil), nil
}

// ParseRow decodes JSON text into a row.
func ParseRow(data []byte) (*Row, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return RowFromJSON(obj)
}

// ToJSON returns the table as a plain JSON tree.
func (t *Table) ToJSON() map[string]any {
	rows := make([]any, 0, len(t.rows))
	for _, r := range t.rows {
		rows = append(rows, r.ToJSON())
	}
	return map[string]any{
		classKey: tableClass,
		idColumn: t.id,
		rowsKey:  rows,
	}
}

func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ToJSON())
}

func (t *Table) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	next, err := TableFromJSON(obj)
	if err != nil {
		return err
	}
	*t = *next
	return nil
}

// TableFromJSON builds a table from the form produced by Table.ToJSON. A missing id is
// generated; a missing rows entry yields an empty table.
func TableFromJSON(obj map[string]any) (*Table, error) {
	if class, ok := obj[classKey]; ok && class != tableClass {
		return nil, fmt.Errorf("%w: %v, want %s", ErrWrongClass, class, tableClass)
	}

	t := NewTable()
	if id, ok := obj[idColumn].(string); ok {
		t.id = id
	}

	rawRows, ok := obj[rowsKey]
	if !ok || rawRows == nil {
		return t, nil
	}
	list, ok := rawRows.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: rows must be an array, got %T", ErrUnsupportedValue, rawRows)
	}
	for i, item := range list {
		rowObj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: row %d must be an object, got %T", ErrUnsupportedValue, i, item)
		}
		row, err := RowFromJSON(rowObj)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if !t.InsertRow(row) {
			return nil, fmt.Errorf("%w: duplicate row id %q", ErrUnsupportedValue, row.ID())
		}
	}
	return t, nil
}

// ParseTable decodes JSON text holding either a table object or a bare array of rows.
func ParseTable(data []byte) (*Table, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	switch raw.(type) {
	case map[string]any, []any:
	default:
		return nil, fmt.Errorf("%w: table json must be an object or an array, got %T", ErrUnsupportedValue, raw)
	}
	v, err := DecodeValue(raw)
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}
