package changefeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog/log"
)

type Config struct {
	// Port 0 picks a free port.
	Port    int
	Address string
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Port < 0 || c.Port > 65535 {
		errGrp = append(errGrp, fmt.Errorf("invalid port: %d", c.Port))
	}
	if c.Address == "" {
		errGrp = append(errGrp, fmt.Errorf("invalid address: %s", c.Address))
	}
	return errors.Join(errGrp...)
}

// Manager fans row change events out to every connected TCP client.
type Manager struct {
	listener net.Listener

	emitChan   chan *ChangeParams
	procCtx    context.Context
	procCancel context.CancelFunc

	clients    map[net.Conn]bool
	clientsMux sync.Mutex
}

func New(cfg *Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	addrString := net.JoinHostPort(cfg.Address, fmt.Sprint(cfg.Port))
	listener, err := net.Listen("tcp", addrString)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addrString, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		listener:   listener,
		emitChan:   make(chan *ChangeParams, 10000),
		procCtx:    ctx,
		procCancel: cancel,
		clients:    make(map[net.Conn]bool),
	}, nil
}

// Addr returns the address clients connect to.
func (m *Manager) Addr() net.Addr {
	return m.listener.Addr()
}

func (m *Manager) Start() error {
	go func() {
		for {
			select {
			case <-m.procCtx.Done():
				return
			case p := <-m.emitChan:
				m.raiseChangeEvent(p)
			}
		}
	}()

	go func() {
		for {
			conn, err := m.listener.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) || m.procCtx.Err() != nil {
					return
				}
				log.Error().Err(err).Msg("change feed failed to accept connection")
				continue
			}
			go m.handle(conn)
		}
	}()

	return nil
}

func (m *Manager) Stop() error {
	if m.procCancel != nil {
		m.procCancel()
	}

	if m.listener != nil {
		if err := m.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("failed to close listener: %w", err)
		}
	}

	m.clientsMux.Lock()
	for client := range m.clients {
		_ = client.Close()
		delete(m.clients, client)
	}
	m.clientsMux.Unlock()

	return nil
}

func (m *Manager) Name() string {
	return "Change Feed"
}

func (m *Manager) clientCount() int {
	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()
	return len(m.clients)
}

func (m *Manager) handle(conn net.Conn) {
	defer func() {
		m.clientsMux.Lock()
		delete(m.clients, conn)
		m.clientsMux.Unlock()
		_ = conn.Close()
	}()

	m.clientsMux.Lock()
	m.clients[conn] = true
	m.clientsMux.Unlock()

	log.Debug().Str("client", conn.RemoteAddr().String()).Msg("change feed client connected")

	// reads only detect disconnection
	buffer := make([]byte, 4096)
	for {
		if _, err := conn.Read(buffer); err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug().Str("client", conn.RemoteAddr().String()).Msg("change feed client disconnected")
			} else {
				log.Debug().Err(err).Str("client", conn.RemoteAddr().String()).Msg("change feed client read failed")
			}
			return
		}
	}
}
