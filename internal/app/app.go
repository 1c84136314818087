package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// Dependency is a long running part of the application.
type Dependency interface {
	// Start may block for the lifetime of the dependency.
	Start() error
	Stop() error
	// Name is used for logging only.
	Name() string
}

type App struct {
	serviceName string
	deps        []Dependency
	stopTimeout time.Duration
	runCalled   atomic.Bool
}

type Config struct {
	ServiceName string
	StopTimeout time.Duration
}

func (c *Config) validate() error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, errors.New("service name is required"))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, errors.New("stop timeout is required"))
	}
	return errors.Join(errs...)
}

// CreateApp creates an application that runs deps in order and stops them in reverse.
func CreateApp(cfg *Config, deps ...Dependency) (*App, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &App{
		serviceName: cfg.ServiceName,
		deps:        deps,
		stopTimeout: cfg.StopTimeout,
	}, nil
}

// Run starts every dependency and blocks until ctx is done, an interrupt arrives or a
// dependency fails. It then stops all dependencies. Run may only be called once.
func (a *App) Run(ctx context.Context) error {
	if !a.runCalled.CompareAndSwap(false, true) {
		return errors.New("run has already been called")
	}

	sigCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	failures := make(chan error, len(a.deps))
	for _, dep := range a.deps {
		go func(dep Dependency) {
			defer func() {
				if r := recover(); r != nil {
					failures <- fmt.Errorf("panic in Start() for dependency %s: %v", dep.Name(), r)
				}
			}()

			log.Info().Str("service", a.serviceName).Msg("starting dependency: " + dep.Name())
			if err := dep.Start(); err != nil {
				failures <- fmt.Errorf("failure in Start() for dependency %s: %w", dep.Name(), err)
			}
		}(dep)
	}

	var runErr error
	select {
	case <-sigCtx.Done():
		log.Info().Str("service", a.serviceName).Msg("shutdown requested")
	case runErr = <-failures:
		log.Error().Err(runErr).Str("service", a.serviceName).Msg("dependency failed")
	}

	return errors.Join(runErr, a.stop())
}

func (a *App) stop() error {
	done := make(chan error, 1)
	go func() {
		var errs []error
		for i := len(a.deps) - 1; i >= 0; i-- {
			dep := a.deps[i]
			log.Info().Str("service", a.serviceName).Msg("stopping dependency: " + dep.Name())
			if err := dep.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("failure in Stop() for dependency %s: %w", dep.Name(), err))
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(a.stopTimeout):
		return fmt.Errorf("dependencies did not stop within %s: %w", a.stopTimeout, context.DeadlineExceeded)
	}
}
