package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"os"

	"github.com/litetable/litetable-rows/internal/app"
	"github.com/litetable/litetable-rows/internal/changefeed"
	"github.com/litetable/litetable-rows/internal/config"
	"github.com/litetable/litetable-rows/internal/datamodel"
	"github.com/litetable/litetable-rows/internal/journal"
	"github.com/litetable/litetable-rows/internal/operations"
	"github.com/litetable/litetable-rows/internal/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "path to a key = value config file")
	flag.Parse()

	application, cleanup, err := initialize(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize")
	}
	defer cleanup()

	if err = application.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		cleanup()
		os.Exit(1)
	}
}

func initialize(configPath string) (*app.App, func(), error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.NewConfig(configPath); err != nil {
			return nil, nil, err
		}
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	table, err := loadTable(cfg.DataFile)
	if err != nil {
		return nil, nil, err
	}

	var deps []app.Dependency
	opsCfg := &operations.Config{Table: table}

	// the journal is replayed before any row is attached to it
	if cfg.JournalDir != "" {
		rowJournal, err := journal.New(&journal.Config{Path: cfg.JournalDir})
		if err != nil {
			return nil, nil, err
		}
		if err = rowJournal.Load(table); err != nil {
			return nil, nil, fmt.Errorf("failed to replay journal: %w", err)
		}
		opsCfg.Journal = rowJournal
		deps = append(deps, rowJournal)
	}

	feed, err := changefeed.New(&changefeed.Config{
		Address: cfg.FeedAddress,
		Port:    cfg.FeedPort,
	})
	if err != nil {
		return nil, nil, err
	}
	opsCfg.Feed = feed
	deps = append(deps, feed)

	opsManager, err := operations.New(opsCfg)
	if err != nil {
		return nil, nil, err
	}

	srvCfg := &server.Config{
		Address:        cfg.ServerAddress,
		Port:           cfg.ServerPort,
		Handler:        opsManager,
		MaxConnections: cfg.MaxConnections,
	}
	if cfg.TLSCertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load tls key pair: %w", err)
		}
		srvCfg.Certificate = &cert
	}
	srv, err := server.New(srvCfg)
	if err != nil {
		return nil, nil, err
	}
	deps = append(deps, srv)

	application, err := app.CreateApp(&app.Config{
		ServiceName: "LiteTable Rows",
		StopTimeout: cfg.StopTimeout,
	}, deps...)
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Int("rows", table.RowCount()).
		Str("server", srv.Addr().String()).
		Str("feed", feed.Addr().String()).
		Msg("row service ready")

	return application, opsManager.Close, nil
}

func loadTable(path string) (*datamodel.Table, error) {
	if path == "" {
		return datamodel.NewTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("data file not found, starting with an empty table")
			return datamodel.NewTable(), nil
		}
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	table, err := datamodel.ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse data file: %w", err)
	}
	return table, nil
}
