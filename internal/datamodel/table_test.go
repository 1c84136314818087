package datamodel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	req := require.New(t)

	a := NewRow(Cells{"id": String("a")}, nil)
	b := NewRow(Cells{"id": String("b")}, nil)
	tbl := NewTable(a, b, NewRow(Cells{"id": String("a")}, nil))

	req.Equal(2, tbl.RowCount())
	req.Same(a, tbl.GetRow(0))
	req.Nil(tbl.GetRow(2))
	req.Nil(tbl.GetRow(-1))
	req.Same(b, tbl.GetRowByID("b"))
	req.Nil(tbl.GetRowByID("zz"))
	req.False(tbl.InsertRow(nil))

	rows := tbl.Rows()
	rows[0] = nil
	req.Same(a, tbl.GetRow(0))

	req.True(tbl.DeleteRow("a"))
	req.False(tbl.DeleteRow("a"))
	req.Equal(1, tbl.RowCount())
	req.Same(b, tbl.GetRow(0))
}

func TestTable_Clone(t *testing.T) {
	inner := NewTable(NewRow(Cells{"v": Number(1)}, nil))
	tbl := NewTable(NewRow(Cells{"id": String("a"), "t": inner}, nil))

	c := tbl.Clone()
	require.Equal(t, tbl.ID(), c.ID())
	require.NotSame(t, tbl.GetRow(0), c.GetRow(0))
	require.Equal(t, "a", c.GetRow(0).ID())

	c.GetRow(0).UpdateColumn("x", Bool(true))
	require.False(t, tbl.GetRow(0).HasColumn("x"))

	c.GetRow(0).GetColumn("t").(*Table).InsertRow(NewRow(nil, nil))
	require.Equal(t, 1, tbl.GetRow(0).GetColumn("t").(*Table).RowCount())
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "undefined", KindOf(nil).String())
	require.Equal(t, "table", KindTable.String())
	require.Equal(t, "unknown", Kind(99).String())
}
