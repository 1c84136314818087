package changefeed

import (
	"encoding/json"
	"time"

	"github.com/litetable/litetable-rows/internal/datamodel"
	"github.com/litetable/litetable-rows/internal/notifier"
	"github.com/rs/zerolog/log"
)

// ChangeParams is one row change as sent to feed clients.
type ChangeParams struct {
	Event     string `json:"event"`
	RowID     string `json:"rowId"`
	Key       string `json:"key,omitempty"`
	Value     any    `json:"value"`
	Timestamp int64  `json:"timestamp"`
}

// Emit queues a change for delivery to connected clients.
func (m *Manager) Emit(params *ChangeParams) {
	m.emitChan <- params
}

// Watch emits every post-mutation event of row until the returned function is called.
func (m *Manager) Watch(row datamodel.Observable) func() {
	unsubs := make([]func(), 0, len(datamodel.PostEvents))
	for _, name := range datamodel.PostEvents {
		unsubs = append(unsubs, row.On(name, func(e *notifier.Event) {
			p, ok := e.Payload.(datamodel.ColumnEvent)
			if !ok {
				return
			}
			value, _ := datamodel.EncodeValue(p.Value)
			m.Emit(&ChangeParams{
				Event:     string(e.Name),
				RowID:     p.RowID,
				Key:       p.Key,
				Value:     value,
				Timestamp: time.Now().UnixNano(),
			})
		}))
	}

	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// raiseChangeEvent writes params, newline framed, to every client. Clients that fail the
// write are dropped.
func (m *Manager) raiseChangeEvent(params *ChangeParams) {
	data, err := json.Marshal(params)
	if err != nil {
		log.Error().Err(err).Str("row", params.RowID).Msg("failed to marshal change event")
		return
	}
	message := append(data, '\n')

	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()

	for client := range m.clients {
		_ = client.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
		if _, err = client.Write(message); err != nil {
			_ = client.Close()
			delete(m.clients, client)
		}
	}
}
