package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/litetable/litetable-rows/internal/datamodel"
	"github.com/litetable/litetable-rows/internal/notifier"
	"github.com/rs/zerolog/log"
)

const (
	defaultJournalDirectory = "journal"
	defaultJournalFile      = "rows.log"
)

// EventCreateRow marks the creation of an empty row. Rows raise no event of their own when
// they are created, so the owner of the table records it through RecordCreate.
const EventCreateRow = "createRow"

var ErrClosed = errors.New("journal is closed")

// Entry is one completed row mutation.
type Entry struct {
	Event string `json:"event"`
	RowID string `json:"rowId"`
	Key   string `json:"key,omitempty"`
	Value any    `json:"value"`
	// Undefined marks a column that was written without a value.
	Undefined bool      `json:"undefined,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Manager struct {
	mu   sync.Mutex
	file *os.File
	path string
}

type Config struct {
	// Path is the directory the journal directory is created in.
	Path string
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Path == "" {
		errGrp = append(errGrp, errors.New("journal path cannot be empty"))
	}
	return errors.Join(errGrp...)
}

func New(cfg *Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	path := filepath.Join(cfg.Path, defaultJournalDirectory, defaultJournalFile)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &Manager{
		file: file,
		path: path,
	}, nil
}

// Apply appends e to the journal as a single JSON line.
func (m *Manager) Apply(e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return ErrClosed
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	if _, err = m.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write to journal: %w", err)
	}
	return nil
}

// Record journals every post-mutation event of row until the returned function is called.
// Load must run before Record on the same rows, otherwise replayed mutations are journaled again.
func (m *Manager) Record(row datamodel.Observable) func() {
	unsubs := make([]func(), 0, len(datamodel.PostEvents))
	for _, name := range datamodel.PostEvents {
		unsubs = append(unsubs, row.On(name, func(e *notifier.Event) {
			p, ok := e.Payload.(datamodel.ColumnEvent)
			if !ok {
				return
			}
			entry := &Entry{
				Event:     string(e.Name),
				RowID:     p.RowID,
				Key:       p.Key,
				Timestamp: time.Now().UTC(),
			}
			if e.Name != datamodel.EventAfterClearRow {
				value, defined := datamodel.EncodeValue(p.Value)
				entry.Value = value
				entry.Undefined = !defined
			}
			if err := m.Apply(entry); err != nil {
				log.Error().Err(err).Str("row", p.RowID).Msg("failed to journal row change")
			}
		}))
	}

	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// RecordCreate journals the creation of the row with the given id.
func (m *Manager) RecordCreate(rowID string) error {
	return m.Apply(&Entry{
		Event:     EventCreateRow,
		RowID:     rowID,
		Timestamp: time.Now().UTC(),
	})
}

func (m *Manager) Start() error {
	return nil
}

func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return nil
	}
	if err := m.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	m.file = nil
	return nil
}

func (m *Manager) Name() string {
	return "Row Journal"
}
