package journal

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/litetable/litetable-rows/internal/datamodel"
	"github.com/rs/zerolog/log"
)

const maxEntrySize = 4 << 20

// Load replays the journal onto the rows of table. Rows missing from the table are created,
// including rows that were created and never written.
// Malformed entries are skipped.
func (m *Manager) Load(table *datamodel.Table) error {
	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEntrySize)

	replayed := 0
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			log.Warn().Err(err).Msg("skipping malformed journal entry")
			continue
		}
		if replay(table, &entry) {
			replayed++
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	log.Debug().Int("entries", replayed).Str("path", m.path).Msg("journal replayed")
	return nil
}

func replay(table *datamodel.Table, entry *Entry) bool {
	if entry.RowID == "" {
		log.Warn().Str("event", entry.Event).Msg("skipping journal entry without row id")
		return false
	}

	row := table.GetRowByID(entry.RowID)
	if row == nil {
		row = datamodel.NewRow(datamodel.Cells{"id": datamodel.String(entry.RowID)}, nil)
		table.InsertRow(row)
	}

	switch entry.Event {
	case EventCreateRow:
		return true
	case string(datamodel.EventAfterInsertColumn), string(datamodel.EventAfterUpdateColumn):
		var value datamodel.Value
		if !entry.Undefined {
			v, err := datamodel.DecodeValue(entry.Value)
			if err != nil {
				log.Warn().Err(err).Str("row", entry.RowID).Str("key", entry.Key).Msg("skipping journal entry with bad value")
				return false
			}
			value = v
		}
		return row.UpdateColumn(entry.Key, value)
	case string(datamodel.EventAfterDeleteColumn):
		return row.DeleteColumn(entry.Key)
	case string(datamodel.EventAfterClearRow):
		return row.Clear()
	default:
		log.Warn().Str("event", entry.Event).Msg("skipping journal entry with unknown event")
		return false
	}
}
