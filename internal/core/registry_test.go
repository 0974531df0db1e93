package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFeature struct {
	*BaseFeature
	calls   *[]string
	initErr error
	routes  []Route
}

func newRecordingFeature(name string, enabled bool, calls *[]string) *recordingFeature {
	logger := NewLoggerWithWriter(io.Discard, slog.LevelError)
	return &recordingFeature{
		BaseFeature: NewBaseFeature(name, name+" feature", enabled, logger),
		calls:       calls,
	}
}

func (f *recordingFeature) Init(ctx context.Context) error {
	*f.calls = append(*f.calls, "init:"+f.Name())
	return f.initErr
}

func (f *recordingFeature) Shutdown(ctx context.Context) error {
	*f.calls = append(*f.calls, "shutdown:"+f.Name())
	return nil
}

func (f *recordingFeature) Routes() []Route {
	return f.routes
}

func TestRegistryLifecycleOrder(t *testing.T) {
	var calls []string
	registry := NewRegistry(NewLoggerWithWriter(io.Discard, slog.LevelError))

	require.NoError(t, registry.Register(newRecordingFeature("relay", true, &calls)))
	require.NoError(t, registry.Register(newRecordingFeature("history", false, &calls)))
	require.NoError(t, registry.Register(newRecordingFeature("commands", true, &calls)))

	ctx := context.Background()
	require.NoError(t, registry.InitAll(ctx))
	require.NoError(t, registry.ShutdownAll(ctx))

	assert.Equal(t, []string{
		"init:relay", "init:commands",
		"shutdown:commands", "shutdown:relay",
	}, calls)

	status := registry.GetFeatureStatus()
	require.Len(t, status, 3)
	assert.Equal(t, "history", status[1].Name)
	assert.False(t, status[1].Enabled)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	var calls []string
	registry := NewRegistry(NewLoggerWithWriter(io.Discard, slog.LevelError))

	require.NoError(t, registry.Register(newRecordingFeature("relay", true, &calls)))
	assert.Error(t, registry.Register(newRecordingFeature("relay", true, &calls)))

	_, ok := registry.Get("relay")
	assert.True(t, ok)
	_, ok = registry.Get("missing")
	assert.False(t, ok)
}

func TestRegistryInitFailureStops(t *testing.T) {
	var calls []string
	registry := NewRegistry(NewLoggerWithWriter(io.Discard, slog.LevelError))

	failing := newRecordingFeature("relay", true, &calls)
	failing.initErr = errors.New("bad sources")
	require.NoError(t, registry.Register(failing))
	require.NoError(t, registry.Register(newRecordingFeature("commands", true, &calls)))

	err := registry.InitAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay")
	assert.Equal(t, []string{"init:relay"}, calls)
}

func TestRegistryRoutesFromEnabledFeatures(t *testing.T) {
	var calls []string
	registry := NewRegistry(NewLoggerWithWriter(io.Discard, slog.LevelError))

	handler := func(w http.ResponseWriter, r *http.Request) {}

	enabled := newRecordingFeature("relay", true, &calls)
	enabled.routes = []Route{{Method: http.MethodGet, Path: "/relay/status", Handler: handler}}
	disabled := newRecordingFeature("other", false, &calls)
	disabled.routes = []Route{{Method: http.MethodGet, Path: "/other", Handler: handler}}

	require.NoError(t, registry.Register(enabled))
	require.NoError(t, registry.Register(disabled))

	routes := registry.GetAllRoutes()
	require.Len(t, routes, 1)
	assert.Equal(t, "/relay/status", routes[0].Path)
}
