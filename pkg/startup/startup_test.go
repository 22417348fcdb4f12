package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func recorder(events *[]string, name string, deps ...string) Func {
	return Func{
		Name: name,
		Deps: deps,
		StartFn: func(context.Context) error {
			*events = append(*events, "start:"+name)
			return nil
		},
		StopFn: func(context.Context) error {
			*events = append(*events, "stop:"+name)
			return nil
		},
	}
}

func TestStartup_StartsDependenciesFirst(t *testing.T) {
	var events []string
	s := NewStartup(testLogger(), 1)
	s.AddDependency(recorder(&events, "api", "database", "graph-cache"))
	s.AddDependency(recorder(&events, "graph-cache", "database"))
	s.AddDependency(recorder(&events, "database"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start:database", "start:graph-cache", "start:api"}, events)

	events = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop:api", "stop:graph-cache", "stop:database"}, events)
	assert.Equal(t, StartupStatusStopped, s.Status("api"))
}

func TestStartup_RetriesUntilSuccess(t *testing.T) {
	attempts := 0
	s := NewStartup(testLogger(), 3)
	s.SetBaseDelay(time.Millisecond)
	s.AddDependency(Func{
		Name: "database",
		StartFn: func(context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("connection refused")
			}
			return nil
		},
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, attempts)
	assert.Equal(t, StartupStatusStarted, s.Status("database"))
}

func TestStartup_GivesUp(t *testing.T) {
	s := NewStartup(testLogger(), 2)
	s.SetBaseDelay(time.Millisecond)
	s.AddDependency(Func{
		Name:    "kafka",
		StartFn: func(context.Context) error { return errors.New("no brokers") },
	})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers")
	assert.Equal(t, StartupStatusFailed, s.Status("kafka"))
}

func TestStartup_UnknownDependency(t *testing.T) {
	s := NewStartup(testLogger(), 1)
	s.AddDependency(Func{Name: "api", Deps: []string{"database"}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dependency 'database'")
}
