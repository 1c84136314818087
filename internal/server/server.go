package server

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	serverName      = "Row Command Server"
	defaultMaxConns = 100
	maxCommandSize  = 1 << 20
	errorPrefix     = "ERROR: "
)

type runner interface {
	Run(buf []byte) ([]byte, error)
}

// Server accepts TCP connections and runs every received line as a row command. Each
// response is written back as a single line.
type Server struct {
	listener      net.Listener
	handler       runner
	connSemaphore chan struct{}
	activeConns   sync.WaitGroup

	connsMux sync.Mutex
	conns    map[net.Conn]struct{}
}

type Config struct {
	Address string
	// Port 0 picks a free port.
	Port           int
	Handler        runner
	MaxConnections int
	// Certificate enables TLS when set.
	Certificate *tls.Certificate
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Port < 0 || c.Port > 65535 {
		errGrp = append(errGrp, fmt.Errorf("invalid port: %d", c.Port))
	}
	if c.Handler == nil {
		errGrp = append(errGrp, errors.New("handler is required"))
	}
	return errors.Join(errGrp...)
}

func New(cfg *Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port))
	var (
		listener net.Listener
		err      error
	)
	if cfg.Certificate != nil {
		listener, err = tls.Listen("tcp", addr, &tls.Config{
			Certificates: []tls.Certificate{*cfg.Certificate},
			MinVersion:   tls.VersionTLS12,
		})
	} else {
		listener, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}

	return &Server{
		listener:      listener,
		handler:       cfg.Handler,
		connSemaphore: make(chan struct{}, maxConns),
		conns:         make(map[net.Conn]struct{}),
	}, nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start blocks accepting connections until Stop is called.
func (s *Server) Start() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		remoteAddr := conn.RemoteAddr().String()

		select {
		case s.connSemaphore <- struct{}{}:
			s.activeConns.Add(1)
			go func() {
				defer func() {
					<-s.connSemaphore
					s.activeConns.Done()
				}()

				log.Debug().Str("client", remoteAddr).Msg("handling connection")
				s.handle(conn)
			}()
		default:
			_ = conn.Close()
			log.Warn().Str("client", remoteAddr).Msg("rejected connection: max connections reached")
		}
	}
}

// Stop closes the listener and every open connection, then waits for handlers to return.
func (s *Server) Stop() error {
	err := s.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}

	s.connsMux.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connsMux.Unlock()

	s.activeConns.Wait()
	return err
}

func (s *Server) Name() string {
	return serverName
}

func (s *Server) handle(conn net.Conn) {
	s.connsMux.Lock()
	s.conns[conn] = struct{}{}
	s.connsMux.Unlock()

	defer func() {
		s.connsMux.Lock()
		delete(s.conns, conn)
		s.connsMux.Unlock()
		_ = conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxCommandSize)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		response, err := s.handler.Run(line)
		if err != nil {
			response = []byte(errorPrefix + err.Error())
		}
		if _, err = writer.Write(append(response, '\n')); err != nil {
			log.Debug().Err(err).Msg("failed to write response")
			return
		}
		if err = writer.Flush(); err != nil {
			log.Debug().Err(err).Msg("failed to flush response")
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Debug().Err(err).Msg("connection read failed")
	}
}
