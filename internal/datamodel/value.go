package datamodel

import "time"

// Kind enumerates the variants a column value can take.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindDate
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

// Value is a column value. The set of implementations is closed: Null, Bool, Number, String,
// Date and *Table. A nil Value means undefined.
type Value interface {
	Kind() Kind
	isValue()
}

// Cells maps column keys to values.
type Cells map[string]Value

type (
	Null   struct{}
	Bool   bool
	Number float64
	String string
	// Date is a point in time. It is serialized as epoch milliseconds.
	Date struct{ time.Time }
)

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Number) Kind() Kind { return KindNumber }
func (String) Kind() Kind { return KindString }
func (Date) Kind() Kind   { return KindDate }

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Number) isValue() {}
func (String) isValue() {}
func (Date) isValue()   {}

// NewDate wraps t as a Date value.
func NewDate(t time.Time) Date {
	return Date{Time: t}
}

// KindOf returns the kind of v, treating nil as undefined.
func KindOf(v Value) Kind {
	if v == nil {
		return KindUndefined
	}
	return v.Kind()
}

// CloneValue deep-copies v. Only tables carry mutable state; every other variant is returned as is.
func CloneValue(v Value) Value {
	t, ok := v.(*Table)
	if !ok {
		return v
	}
	if t == nil {
		return nil
	}
	return t.Clone()
}

// CloneCells deep-copies every value of c.
func CloneCells(c Cells) Cells {
	out := make(Cells, len(c))
	for k, v := range c {
		out[k] = CloneValue(v)
	}
	return out
}
