package operations

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/litetable/litetable-rows/internal/datamodel"
	"github.com/rs/zerolog/log"
)

type recorder interface {
	Record(row datamodel.Observable) func()
	RecordCreate(rowID string) error
}

type watcher interface {
	Watch(row datamodel.Observable) func()
}

var (
	responseOK       = []byte("OK")
	responseRejected = []byte("REJECTED")
)

// Manager runs protocol commands against the rows of a table.
type Manager struct {
	mu      sync.Mutex
	table   *datamodel.Table
	journal recorder
	feed    watcher
	detach  map[string][]func()
}

type Config struct {
	Table *datamodel.Table
	// Journal and Feed are optional; every row of Table is attached to them.
	Journal recorder
	Feed    watcher
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Table == nil {
		errGrp = append(errGrp, errors.New("table cannot be nil"))
	}
	return errors.Join(errGrp...)
}

func New(cfg *Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		table:   cfg.Table,
		journal: cfg.Journal,
		feed:    cfg.Feed,
		detach:  make(map[string][]func()),
	}
	for _, row := range m.table.Rows() {
		m.attach(row)
	}
	return m, nil
}

func (m *Manager) attach(row *datamodel.Row) {
	if m.journal != nil {
		m.detach[row.ID()] = append(m.detach[row.ID()], m.journal.Record(row))
	}
	if m.feed != nil {
		m.detach[row.ID()] = append(m.detach[row.ID()], m.feed.Watch(row))
	}
}

// Close detaches every row from the journal and the feed.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, fns := range m.detach {
		for _, fn := range fns {
			fn()
		}
		delete(m.detach, id)
	}
}

// Run decodes buf into a command and executes it.
func (m *Manager) Run(buf []byte) ([]byte, error) {
	op, queryBytes := Decode(buf)
	if op == OperationUnknown {
		return nil, newError(errUnknownOperation, "%q", firstWord(buf))
	}
	if len(queryBytes) == 0 && op != OperationRead && op != OperationCreate {
		return nil, errEmptyQuery
	}

	q, err := parseQuery(string(queryBytes))
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch op {
	case OperationCreate:
		return m.create(q)
	case OperationInsert, OperationUpdate:
		if err := q.requireColumn(true); err != nil {
			return nil, err
		}
		row, err := m.row(q.rowID)
		if err != nil {
			return nil, err
		}
		if op == OperationInsert {
			return result(row.InsertColumn(q.key, q.value)), nil
		}
		return result(row.UpdateColumn(q.key, q.value)), nil
	case OperationDelete:
		if err := q.requireColumn(false); err != nil {
			return nil, err
		}
		row, err := m.row(q.rowID)
		if err != nil {
			return nil, err
		}
		return result(row.DeleteColumn(q.key)), nil
	case OperationClear:
		if err := q.requireRow(); err != nil {
			return nil, err
		}
		row, err := m.row(q.rowID)
		if err != nil {
			return nil, err
		}
		return result(row.Clear()), nil
	default:
		return m.read(q)
	}
}

func (m *Manager) create(q *query) ([]byte, error) {
	cells := datamodel.Cells{}
	if q.rowID != "" {
		if m.table.GetRowByID(q.rowID) != nil {
			return nil, newError(errRowExists, "%s", q.rowID)
		}
		cells["id"] = datamodel.String(q.rowID)
	}

	row := datamodel.NewRow(cells, nil)
	m.table.InsertRow(row)
	if m.journal != nil {
		if err := m.journal.RecordCreate(row.ID()); err != nil {
			log.Error().Err(err).Str("row", row.ID()).Msg("failed to journal row creation")
		}
	}
	m.attach(row)
	log.Debug().Str("row", row.ID()).Msg("row created")

	return json.Marshal(row)
}

func (m *Manager) read(q *query) ([]byte, error) {
	if q.rowID == "" {
		return json.Marshal(m.table)
	}
	row, err := m.row(q.rowID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(row)
}

func (m *Manager) row(id string) (*datamodel.Row, error) {
	row := m.table.GetRowByID(id)
	if row == nil {
		return nil, newError(errRowNotFound, "%s", id)
	}
	return row, nil
}

func result(ok bool) []byte {
	if ok {
		return responseOK
	}
	return responseRejected
}

func firstWord(buf []byte) string {
	fields := strings.Fields(string(buf))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
