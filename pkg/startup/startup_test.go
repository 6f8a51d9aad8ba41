package startup

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeDependency struct {
	name      string
	dependsOn []string
	startErrs []error
	stopErr   error
	log       *[]string
}

func (f *fakeDependency) GetName() string {
	return f.name
}

func (f *fakeDependency) DependsOn() []string {
	return f.dependsOn
}

func (f *fakeDependency) Start(ctx context.Context) error {
	*f.log = append(*f.log, "start:"+f.name)
	if len(f.startErrs) > 0 {
		err := f.startErrs[0]
		f.startErrs = f.startErrs[1:]
		return err
	}
	return nil
}

func (f *fakeDependency) Stop(ctx context.Context) error {
	*f.log = append(*f.log, "stop:"+f.name)
	return f.stopErr
}

func TestStartHonorsDependsOn(t *testing.T) {
	var log []string
	st := NewStartup(testLogger(), 1)

	// Added before the dependency it needs; DependsOn pulls it in first.
	st.AddDependency(&fakeDependency{name: "server", dependsOn: []string{"database"}, log: &log})
	st.AddDependency(&fakeDependency{name: "database", log: &log})

	require.NoError(t, st.Start(context.Background()))
	assert.Equal(t, []string{"start:database", "start:server"}, log)
}

func TestStopReversesStartOrder(t *testing.T) {
	var log []string
	st := NewStartup(testLogger(), 1)
	st.AddDependency(&fakeDependency{name: "database", log: &log})
	st.AddDependency(&fakeDependency{name: "broker", log: &log})
	st.AddDependency(&fakeDependency{name: "server", dependsOn: []string{"database", "broker"}, log: &log})

	require.NoError(t, st.Start(context.Background()))

	log = nil
	require.NoError(t, st.Stop(context.Background()))
	assert.Equal(t, []string{"stop:server", "stop:broker", "stop:database"}, log)
}

func TestStartUnknownDependency(t *testing.T) {
	var log []string
	st := NewStartup(testLogger(), 1)
	st.AddDependency(&fakeDependency{name: "server", dependsOn: []string{"missing"}, log: &log})

	err := st.Start(context.Background())
	assert.ErrorContains(t, err, "unknown dependency 'missing'")
}

func TestStartRetriesWithoutRestartingStartedDependencies(t *testing.T) {
	var log []string
	st := NewStartup(testLogger(), 3)
	st.AddDependency(&fakeDependency{name: "database", log: &log})
	st.AddDependency(&fakeDependency{name: "broker", startErrs: []error{errors.New("connection refused")}, log: &log})

	require.NoError(t, st.Start(context.Background()))

	// The database started on attempt one and is not started again.
	assert.Equal(t, []string{"start:database", "start:broker", "start:broker"}, log)
}

func TestStartGivesUpAfterMaxAttempts(t *testing.T) {
	var log []string
	boom := errors.New("connection refused")
	st := NewStartup(testLogger(), 2)
	st.AddDependency(&fakeDependency{name: "broker", startErrs: []error{boom, boom}, log: &log})

	err := st.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "after 2 attempts")
}

func TestStopContinuesPastFailures(t *testing.T) {
	var log []string
	boom := errors.New("close failed")
	st := NewStartup(testLogger(), 1)
	st.AddDependency(&fakeDependency{name: "database", log: &log})
	st.AddDependency(&fakeDependency{name: "broker", stopErr: boom, log: &log})

	require.NoError(t, st.Start(context.Background()))

	log = nil
	err := st.Stop(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"stop:broker", "stop:database"}, log)
}

func TestStartRespectsContextCancel(t *testing.T) {
	var log []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := NewStartup(testLogger(), 5)
	st.AddDependency(&fakeDependency{name: "broker", startErrs: []error{errors.New("connection refused")}, log: &log})

	err := st.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
