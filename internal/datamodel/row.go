package datamodel

import (
	"sort"
	"time"

	"github.com/litetable/litetable-rows/internal/notifier"
	"github.com/litetable/litetable-rows/internal/uid"
	"github.com/rs/zerolog/log"
)

const idColumn = "id"

// Row events. Every pre-event can be vetoed by a listener; every post-event is observational.
const (
	EventInsertColumn      notifier.EventName = "insertColumn"
	EventAfterInsertColumn notifier.EventName = "afterInsertColumn"
	EventUpdateColumn      notifier.EventName = "updateColumn"
	EventAfterUpdateColumn notifier.EventName = "afterUpdateColumn"
	EventDeleteColumn      notifier.EventName = "deleteColumn"
	EventAfterDeleteColumn notifier.EventName = "afterDeleteColumn"
	EventClearRow          notifier.EventName = "clearRow"
	EventAfterClearRow     notifier.EventName = "afterClearRow"
)

var rowEvents = map[notifier.EventName]struct{}{
	EventInsertColumn:      {},
	EventAfterInsertColumn: {},
	EventUpdateColumn:      {},
	EventAfterUpdateColumn: {},
	EventDeleteColumn:      {},
	EventAfterDeleteColumn: {},
	EventClearRow:          {},
	EventAfterClearRow:     {},
}

// PostEvents lists the four post-mutation events of a row.
var PostEvents = []notifier.EventName{
	EventAfterInsertColumn,
	EventAfterUpdateColumn,
	EventAfterDeleteColumn,
	EventAfterClearRow,
}

// ColumnEvent is the payload of every row event. Value holds the new value for inserts and
// updates, the old value for deletes, and nil for clears.
type ColumnEvent struct {
	RowID string
	Key   string
	Value Value
}

// Converter coerces raw column values into typed values.
type Converter interface {
	AsBoolean(v Value) bool
	AsNumber(v Value) float64
	AsString(v Value) string
	AsDate(v Value) time.Time
	AsTable(v Value) *Table
}

// EventBus is the publish/subscribe facility a row reports its mutations to.
type EventBus interface {
	Subscribe(target string, name notifier.EventName, listener notifier.Listener) func()
	Publish(target string, name notifier.EventName, payload any, defaultAction func()) bool
}

// Observable is anything row events can be subscribed on.
type Observable interface {
	On(name notifier.EventName, listener notifier.Listener) func()
}

// RowConfig carries the optional collaborators of a row. Nil fields fall back to defaults.
type RowConfig struct {
	Converter Converter
	Events    EventBus
	// NewID generates the row identity when the cells carry no string "id".
	NewID func() string
}

// Row is a keyed record of columns.
type Row struct {
	id        string
	keys      []string
	cells     map[string]Value
	converter Converter
	events    EventBus
}

// NewRow builds a row from a deep copy of cells. A string "id" entry becomes the row identity;
// any "id" entry is dropped from the columns.
func NewRow(cells Cells, cfg *RowConfig) *Row {
	if cfg == nil {
		cfg = &RowConfig{}
	}

	r := &Row{
		cells:     make(map[string]Value, len(cells)),
		converter: cfg.Converter,
		events:    cfg.Events,
	}
	if r.converter == nil {
		r.converter = DefaultConverter{}
	}
	if r.events == nil {
		r.events = notifier.New()
	}

	if id, ok := cells[idColumn].(String); ok {
		r.id = string(id)
	} else if cfg.NewID != nil {
		r.id = cfg.NewID()
	} else {
		r.id = uid.New()
	}

	keys := make([]string, 0, len(cells))
	for k := range cells {
		if k != idColumn {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		r.set(k, CloneValue(cells[k]))
	}

	return r
}

func (r *Row) ID() string {
	return r.id
}

// GetColumn returns the stored value of key, or nil when the column is absent.
func (r *Row) GetColumn(key string) Value {
	return r.cells[key]
}

func (r *Row) HasColumn(key string) bool {
	_, ok := r.cells[key]
	return ok
}

func (r *Row) GetColumnAsBoolean(key string) bool {
	return r.converter.AsBoolean(r.GetColumn(key))
}

func (r *Row) GetColumnAsNumber(key string) float64 {
	return r.converter.AsNumber(r.GetColumn(key))
}

func (r *Row) GetColumnAsString(key string) string {
	return r.converter.AsString(r.GetColumn(key))
}

func (r *Row) GetColumnAsDate(key string) time.Time {
	return r.converter.AsDate(r.GetColumn(key))
}

func (r *Row) GetColumnAsTable(key string) *Table {
	return r.converter.AsTable(r.GetColumn(key))
}

// GetAllColumns returns a deep copy of the columns.
func (r *Row) GetAllColumns() Cells {
	return CloneCells(r.cells)
}

// GetColumnKeys returns the column keys in insertion order.
func (r *Row) GetColumnKeys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r *Row) GetColumnCount() int {
	return len(r.keys)
}

// InsertColumn adds a new column. It fails for "id", for an existing key, and when a listener
// vetoes the insertColumn event. Listeners receive the value the row stores.
func (r *Row) InsertColumn(key string, value Value) bool {
	if key == idColumn {
		return false
	}
	if _, exists := r.cells[key]; exists {
		return false
	}
	owned := CloneValue(value)
	return r.mutate(EventInsertColumn, EventAfterInsertColumn, key, owned, func() {
		r.set(key, owned)
	})
}

// UpdateColumn sets the value of key, creating the column when absent.
func (r *Row) UpdateColumn(key string, value Value) bool {
	if key == idColumn {
		return false
	}
	owned := CloneValue(value)
	return r.mutate(EventUpdateColumn, EventAfterUpdateColumn, key, owned, func() {
		r.set(key, owned)
	})
}

// DeleteColumn removes key. Deleting an absent column still publishes both events and
// reports true.
func (r *Row) DeleteColumn(key string) bool {
	if key == idColumn {
		return false
	}
	return r.mutate(EventDeleteColumn, EventAfterDeleteColumn, key, r.cells[key], func() {
		r.unset(key)
	})
}

// Clear removes every column. The identity is kept.
func (r *Row) Clear() bool {
	return r.mutate(EventClearRow, EventAfterClearRow, "", nil, func() {
		r.keys = nil
		r.cells = make(map[string]Value)
	})
}

// On registers listener for one of the row events and returns its unsubscribe function.
// Names outside the row event set are ignored.
func (r *Row) On(name notifier.EventName, listener notifier.Listener) func() {
	if _, ok := rowEvents[name]; !ok {
		log.Warn().Str("row", r.id).Str("event", string(name)).Msg("ignoring subscription to unknown row event")
		return func() {}
	}
	return r.events.Subscribe(r.id, name, listener)
}

func (r *Row) mutate(pre, post notifier.EventName, key string, value Value, apply func()) bool {
	payload := ColumnEvent{
		RowID: r.id,
		Key:   key,
		Value: value,
	}
	if !r.events.Publish(r.id, pre, payload, apply) {
		return false
	}
	r.events.Publish(r.id, post, payload, nil)
	return true
}

func (r *Row) set(key string, value Value) {
	if _, exists := r.cells[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.cells[key] = value
}

func (r *Row) unset(key string) {
	if _, exists := r.cells[key]; !exists {
		return
	}
	delete(r.cells, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
}

// Clone deep-copies the row including its identity. Listeners are not carried over.
func (r *Row) Clone() *Row {
	c := &Row{
		id:        r.id,
		keys:      r.GetColumnKeys(),
		cells:     CloneCells(r.cells),
		converter: r.converter,
		events:    notifier.New(),
	}
	return c
}
