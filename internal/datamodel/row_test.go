package datamodel

import (
	"fmt"
	"testing"
	"time"

	"github.com/litetable/litetable-rows/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRow(t *testing.T) {
	t.Parallel()

	t.Run("adopts a string id", func(t *testing.T) {
		t.Parallel()
		r := NewRow(Cells{"id": String("x"), "a": Number(1)}, nil)

		require.Equal(t, "x", r.ID())
		require.Equal(t, []string{"a"}, r.GetColumnKeys())
		require.Nil(t, r.GetColumn("id"))
		require.False(t, r.HasColumn("id"))
	})

	t.Run("generates distinct ids", func(t *testing.T) {
		t.Parallel()
		a := NewRow(Cells{"a": Number(1)}, nil)
		b := NewRow(Cells{"a": Number(1)}, nil)

		require.NotEmpty(t, a.ID())
		require.NotEqual(t, a.ID(), b.ID())
	})

	t.Run("drops a non-string id", func(t *testing.T) {
		t.Parallel()
		r := NewRow(Cells{"id": Number(7), "a": Number(1)}, &RowConfig{
			NewID: func() string { return "generated" },
		})

		require.Equal(t, "generated", r.ID())
		require.Equal(t, 1, r.GetColumnCount())
	})

	t.Run("does not alias the input", func(t *testing.T) {
		t.Parallel()
		nested := NewTable(NewRow(Cells{"v": Number(1)}, nil))
		in := Cells{"a": Number(1), "t": nested}

		r := NewRow(in, nil)
		in["a"] = Number(2)
		in["b"] = Bool(true)
		nested.InsertRow(NewRow(nil, nil))

		require.Equal(t, Number(1), r.GetColumn("a"))
		require.False(t, r.HasColumn("b"))
		require.Equal(t, 1, r.GetColumn("t").(*Table).RowCount())
	})

	t.Run("nil cells", func(t *testing.T) {
		t.Parallel()
		r := NewRow(nil, nil)
		require.Equal(t, 0, r.GetColumnCount())
		require.Empty(t, r.GetColumnKeys())
	})
}

func TestRow_Reads(t *testing.T) {
	t.Parallel()
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewRow(Cells{
		"flag": String("true"),
		"num":  String("1 234.5"),
		"when": NewDate(when),
		"sub":  String(`[{"id":"r1","v":1}]`),
	}, nil)

	require.True(t, r.GetColumnAsBoolean("flag"))
	require.Equal(t, 1234.5, r.GetColumnAsNumber("num"))
	require.Equal(t, "2024-03-01T12:00:00.000Z", r.GetColumnAsString("when"))
	require.True(t, when.Equal(r.GetColumnAsDate("when")))
	require.Equal(t, 1, r.GetColumnAsTable("sub").RowCount())
	require.Nil(t, r.GetColumn("missing"))
	require.Equal(t, KindUndefined, KindOf(r.GetColumn("missing")))
}

type fakeConverter struct {
	DefaultConverter
	calls []Value
}

func (f *fakeConverter) AsBoolean(v Value) bool {
	f.calls = append(f.calls, v)
	return true
}

func TestRow_ReadsDelegateToConverter(t *testing.T) {
	conv := &fakeConverter{}
	r := NewRow(Cells{"a": Number(0)}, &RowConfig{Converter: conv})

	require.True(t, r.GetColumnAsBoolean("a"))
	require.True(t, r.GetColumnAsBoolean("b"))
	require.Equal(t, []Value{Number(0), nil}, conv.calls)
}

func TestRow_GetAllColumnsIsACopy(t *testing.T) {
	r := NewRow(Cells{
		"a": Number(1),
		"t": NewTable(NewRow(Cells{"v": Number(1)}, nil)),
	}, nil)

	all := r.GetAllColumns()
	all["a"] = Number(99)
	all["new"] = String("x")
	all["t"].(*Table).InsertRow(NewRow(nil, nil))

	require.Equal(t, Number(1), r.GetColumn("a"))
	require.False(t, r.HasColumn("new"))
	require.Equal(t, 1, r.GetColumn("t").(*Table).RowCount())

	keys := r.GetColumnKeys()
	keys[0] = "mutated"
	require.NotContains(t, r.GetColumnKeys(), "mutated")
}

func TestRow_Mutations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		run       func(r *Row) bool
		want      bool
		wantCells Cells
	}{
		{
			name:      "insert id is rejected",
			run:       func(r *Row) bool { return r.InsertColumn("id", String("y")) },
			want:      false,
			wantCells: Cells{"a": Number(1)},
		},
		{
			name:      "insert new column",
			run:       func(r *Row) bool { return r.InsertColumn("b", Bool(true)) },
			want:      true,
			wantCells: Cells{"a": Number(1), "b": Bool(true)},
		},
		{
			name:      "insert existing column is rejected",
			run:       func(r *Row) bool { return r.InsertColumn("a", Number(2)) },
			want:      false,
			wantCells: Cells{"a": Number(1)},
		},
		{
			name:      "update existing column",
			run:       func(r *Row) bool { return r.UpdateColumn("a", Number(2)) },
			want:      true,
			wantCells: Cells{"a": Number(2)},
		},
		{
			name:      "update absent column creates it",
			run:       func(r *Row) bool { return r.UpdateColumn("b", Null{}) },
			want:      true,
			wantCells: Cells{"a": Number(1), "b": Null{}},
		},
		{
			name:      "update id is rejected",
			run:       func(r *Row) bool { return r.UpdateColumn("id", String("y")) },
			want:      false,
			wantCells: Cells{"a": Number(1)},
		},
		{
			name:      "delete existing column",
			run:       func(r *Row) bool { return r.DeleteColumn("a") },
			want:      true,
			wantCells: Cells{},
		},
		{
			name:      "delete absent column still succeeds",
			run:       func(r *Row) bool { return r.DeleteColumn("missing") },
			want:      true,
			wantCells: Cells{"a": Number(1)},
		},
		{
			name:      "delete id is rejected",
			run:       func(r *Row) bool { return r.DeleteColumn("id") },
			want:      false,
			wantCells: Cells{"a": Number(1)},
		},
		{
			name:      "clear",
			run:       func(r *Row) bool { return r.Clear() },
			want:      true,
			wantCells: Cells{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewRow(Cells{"id": String("row"), "a": Number(1)}, nil)

			require.Equal(t, tt.want, tt.run(r))
			require.Equal(t, "row", r.ID())
			require.Equal(t, tt.wantCells, r.GetAllColumns())
			require.Equal(t, len(tt.wantCells), r.GetColumnCount())
		})
	}
}

func TestRow_EventSequence(t *testing.T) {
	req := require.New(t)
	r := NewRow(Cells{"id": String("row")}, nil)

	var seen []string
	for name := range rowEvents {
		r.On(name, func(e *notifier.Event) {
			p := e.Payload.(ColumnEvent)
			seen = append(seen, fmt.Sprintf("%s:%s:%v", e.Name, p.Key, p.Value))
		})
	}

	req.True(r.InsertColumn("a", Number(1)))
	req.True(r.UpdateColumn("a", Number(2)))
	req.True(r.DeleteColumn("a"))
	req.True(r.Clear())
	req.False(r.InsertColumn("id", Number(1)))

	req.Equal([]string{
		"insertColumn:a:1",
		"afterInsertColumn:a:1",
		"updateColumn:a:2",
		"afterUpdateColumn:a:2",
		"deleteColumn:a:2",
		"afterDeleteColumn:a:2",
		"clearRow::<nil>",
		"afterClearRow::<nil>",
	}, seen)
}

func TestRow_Veto(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		event notifier.EventName
		run   func(r *Row) bool
	}{
		"insert": {
			event: EventInsertColumn,
			run:   func(r *Row) bool { return r.InsertColumn("b", Number(1)) },
		},
		"update": {
			event: EventUpdateColumn,
			run:   func(r *Row) bool { return r.UpdateColumn("a", Number(5)) },
		},
		"delete": {
			event: EventDeleteColumn,
			run:   func(r *Row) bool { return r.DeleteColumn("a") },
		},
		"clear": {
			event: EventClearRow,
			run:   func(r *Row) bool { return r.Clear() },
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			r := NewRow(Cells{"a": Number(1)}, nil)

			r.On(tt.event, func(e *notifier.Event) { e.PreventDefault() })
			afterCalls := 0
			for _, post := range PostEvents {
				r.On(post, func(*notifier.Event) { afterCalls++ })
			}

			require.False(t, tt.run(r))
			require.Equal(t, Cells{"a": Number(1)}, r.GetAllColumns())
			require.Zero(t, afterCalls)
		})
	}
}

func TestRow_PostEventVetoIsIgnored(t *testing.T) {
	r := NewRow(nil, nil)
	r.On(EventAfterInsertColumn, func(e *notifier.Event) { e.PreventDefault() })

	require.True(t, r.InsertColumn("a", Number(1)))
	require.True(t, r.HasColumn("a"))
}

func TestRow_On(t *testing.T) {
	r := NewRow(nil, nil)

	calls := 0
	unsub := r.On(EventAfterUpdateColumn, func(*notifier.Event) { calls++ })
	r.UpdateColumn("a", Number(1))
	unsub()
	unsub()
	r.UpdateColumn("a", Number(2))
	assert.Equal(t, 1, calls)

	noop := r.On("renderRow", func(*notifier.Event) { calls++ })
	require.NotNil(t, noop)
	noop()
}

func TestRow_SharedEventBus(t *testing.T) {
	bus := notifier.New()
	a := NewRow(Cells{"id": String("a")}, &RowConfig{Events: bus})
	b := NewRow(Cells{"id": String("b")}, &RowConfig{Events: bus})

	var targets []string
	a.On(EventAfterInsertColumn, func(e *notifier.Event) { targets = append(targets, e.Target) })

	b.InsertColumn("x", Number(1))
	a.InsertColumn("x", Number(1))
	require.Equal(t, []string{"a"}, targets)
}

func TestRow_ListenerReentrancy(t *testing.T) {
	r := NewRow(nil, nil)

	r.On(EventInsertColumn, func(e *notifier.Event) {
		if e.Payload.(ColumnEvent).Key == "a" {
			r.InsertColumn("b", Number(2))
		}
	})

	require.True(t, r.InsertColumn("a", Number(1)))
	require.Equal(t, []string{"b", "a"}, r.GetColumnKeys())
}

func TestRow_TableColumnsAreOwned(t *testing.T) {
	sub := NewTable(NewRow(Cells{"v": Number(1)}, nil))
	a := NewRow(nil, nil)
	b := NewRow(nil, nil)

	require.True(t, a.InsertColumn("t", sub))
	require.True(t, b.UpdateColumn("t", sub))

	a.GetColumn("t").(*Table).InsertRow(NewRow(nil, nil))
	require.Equal(t, 2, a.GetColumn("t").(*Table).RowCount())
	require.Equal(t, 1, b.GetColumn("t").(*Table).RowCount())
	require.Equal(t, 1, sub.RowCount())
}

func TestRow_EventsCarryTheStoredTable(t *testing.T) {
	sub := NewTable(NewRow(Cells{"v": Number(1)}, nil))

	for _, mutation := range []string{"insert", "update"} {
		t.Run(mutation, func(t *testing.T) {
			r := NewRow(nil, nil)
			var pre, post Value
			r.On(EventInsertColumn, func(e *notifier.Event) { pre = e.Payload.(ColumnEvent).Value })
			r.On(EventUpdateColumn, func(e *notifier.Event) { pre = e.Payload.(ColumnEvent).Value })
			r.On(EventAfterInsertColumn, func(e *notifier.Event) { post = e.Payload.(ColumnEvent).Value })
			r.On(EventAfterUpdateColumn, func(e *notifier.Event) { post = e.Payload.(ColumnEvent).Value })

			if mutation == "insert" {
				require.True(t, r.InsertColumn("t", sub))
			} else {
				require.True(t, r.UpdateColumn("t", sub))
			}

			stored := r.GetColumn("t").(*Table)
			require.Same(t, stored, pre)
			require.Same(t, stored, post)
			require.NotSame(t, sub, post)
		})
	}
}

func TestRow_KeyOrder(t *testing.T) {
	r := NewRow(Cells{"c": Number(1), "a": Number(1), "b": Number(1)}, nil)
	require.Equal(t, []string{"a", "b", "c"}, r.GetColumnKeys())

	r.DeleteColumn("b")
	r.InsertColumn("z", Number(1))
	r.UpdateColumn("a", Number(2))
	require.Equal(t, []string{"a", "c", "z"}, r.GetColumnKeys())
}
