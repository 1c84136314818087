package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeDep struct {
	name     string
	startErr error
	stopErr  error
	block    bool
	panics   bool

	mu      sync.Mutex
	stopped chan struct{}
	log     *[]string
}

func newFakeDep(name string, log *[]string) *fakeDep {
	return &fakeDep{name: name, stopped: make(chan struct{}), log: log}
}

func (f *fakeDep) Start() error {
	if f.panics {
		panic("boom")
	}
	if f.block {
		<-f.stopped
	}
	return f.startErr
}

func (f *fakeDep) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	*f.log = append(*f.log, f.name)
	close(f.stopped)
	return f.stopErr
}

func (f *fakeDep) Name() string { return f.name }

func TestCreateApp(t *testing.T) {
	t.Parallel()

	_, err := CreateApp(&Config{})
	require.EqualError(t, err, "service name is required\nstop timeout is required")

	a, err := CreateApp(&Config{ServiceName: "rows", StopTimeout: time.Second})
	require.NoError(t, err)
	require.NotNil(t, a)
}

func TestApp_Run(t *testing.T) {
	t.Parallel()

	t.Run("context cancel stops deps in reverse order", func(t *testing.T) {
		t.Parallel()
		var order []string
		first, second := newFakeDep("first", &order), newFakeDep("second", &order)
		first.block, second.block = true, true

		a, err := CreateApp(&Config{ServiceName: "rows", StopTimeout: time.Second}, first, second)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		require.NoError(t, a.Run(ctx))
		require.Equal(t, []string{"second", "first"}, order)
		require.EqualError(t, a.Run(context.Background()), "run has already been called")
	})

	t.Run("start failure", func(t *testing.T) {
		t.Parallel()
		var order []string
		failing := newFakeDep("failing", &order)
		failing.startErr = errors.New("no port")

		a, err := CreateApp(&Config{ServiceName: "rows", StopTimeout: time.Second}, failing)
		require.NoError(t, err)

		err = a.Run(context.Background())
		require.ErrorContains(t, err, "failure in Start() for dependency failing: no port")
		require.Equal(t, []string{"failing"}, order)
	})

	t.Run("start panic", func(t *testing.T) {
		t.Parallel()
		var order []string
		p := newFakeDep("panicky", &order)
		p.panics = true

		a, err := CreateApp(&Config{ServiceName: "rows", StopTimeout: time.Second}, p)
		require.NoError(t, err)
		require.ErrorContains(t, a.Run(context.Background()), "panic in Start() for dependency panicky")
	})

	t.Run("stop error", func(t *testing.T) {
		t.Parallel()
		var order []string
		d := newFakeDep("dep", &order)
		d.block = true
		d.stopErr = errors.New("stuck")

		a, err := CreateApp(&Config{ServiceName: "rows", StopTimeout: time.Second}, d)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorContains(t, a.Run(ctx), "failure in Stop() for dependency dep: stuck")
	})
}
