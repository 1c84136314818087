package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultServerAddress = "127.0.0.1"
	defaultServerPort    = 9450
	defaultFeedAddress   = "127.0.0.1"
	defaultFeedPort      = 32496
	defaultStopTimeout   = 5 * time.Second
)

type Config struct {
	ServerAddress  string
	ServerPort     int
	MaxConnections int
	TLSCertFile    string
	TLSKeyFile     string

	FeedAddress string
	FeedPort    int

	// JournalDir is where row changes are journaled. Empty disables the journal.
	JournalDir string
	// DataFile holds the initial table JSON. Empty starts with an empty table.
	DataFile string

	StopTimeout time.Duration
	Debug       bool
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		ServerAddress: defaultServerAddress,
		ServerPort:    defaultServerPort,
		FeedAddress:   defaultFeedAddress,
		FeedPort:      defaultFeedPort,
		StopTimeout:   defaultStopTimeout,
	}
}

// NewConfig reads a key = value file on top of the defaults. Blank lines and lines starting
// with # are ignored.
func NewConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	config := Default()
	scanner := bufio.NewScanner(file)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected key = value", lineNo)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "server_address":
			config.ServerAddress = value
		case "server_port":
			config.ServerPort, err = parsePort(value)
		case "max_connections":
			config.MaxConnections, err = strconv.Atoi(value)
		case "tls_cert":
			config.TLSCertFile = value
		case "tls_key":
			config.TLSKeyFile = value
		case "feed_address":
			config.FeedAddress = value
		case "feed_port":
			config.FeedPort, err = parsePort(value)
		case "journal_dir":
			config.JournalDir = value
		case "data_file":
			config.DataFile = value
		case "stop_timeout":
			var seconds int
			seconds, err = strconv.Atoi(value)
			if err == nil && seconds <= 0 {
				err = fmt.Errorf("must be positive")
			}
			config.StopTimeout = time.Duration(seconds) * time.Second
		case "debug":
			config.Debug = value == "true"
		}
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if (config.TLSCertFile == "") != (config.TLSKeyFile == "") {
		return nil, fmt.Errorf("tls_cert and tls_key must be set together")
	}

	return config, nil
}

func parsePort(value string) (int, error) {
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("out of range")
	}
	return port, nil
}
