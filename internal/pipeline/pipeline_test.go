package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/radar-ppi-etl/internal/observability"
	"github.com/couchcryptid/radar-ppi-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	mu      sync.Mutex
	batches [][]pipeline.RawEvent
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]pipeline.RawEvent, error) {
	m.mu.Lock()
	if len(m.batches) > 0 {
		batch := m.batches[0]
		m.batches = m.batches[1:]
		m.mu.Unlock()
		return batch, nil
	}
	m.mu.Unlock()
	// Block until cancelled to simulate waiting for messages.
	<-ctx.Done()
	return nil, ctx.Err()
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw pipeline.RawEvent) (pipeline.OutputEvent, error) {
	if m.err != nil {
		return pipeline.OutputEvent{}, m.err
	}
	return pipeline.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []pipeline.OutputEvent
}

func (m *mockLoader) LoadBatch(_ context.Context, events []pipeline.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loaded)
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func rawVolumeEvent(key string) pipeline.RawEvent {
	return pipeline.RawEvent{
		Key:       []byte(key),
		Value:     []byte(`{"site":{"code":"KTST"}}`),
		Topic:     "raw-polar-volumes",
		Timestamp: time.Now(),
	}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raws := []pipeline.RawEvent{rawVolumeEvent("vol-1"), rawVolumeEvent("vol-2")}

	ext := &mockExtractor{batches: [][]pipeline.RawEvent{raws}}
	tfm := &mockTransformer{}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ldr.count())
	assert.Equal(t, raws[0].Value, ldr.loaded[0].Value)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no batches — will block
	tfm := &mockTransformer{}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, ldr.count())
}

func TestPipeline_Run_TransformErrorSkipsVolume(t *testing.T) {
	commits := 0
	raw := rawVolumeEvent("vol-bad")
	raw.Commit = func(_ context.Context) error {
		commits++
		return nil
	}

	ext := &mockExtractor{batches: [][]pipeline.RawEvent{{raw}}}
	tfm := &mockTransformer{err: errors.New("truncated document")}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, ldr.count())
	// A poison volume is committed so it is not redelivered forever.
	assert.Equal(t, 1, commits)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	commitCalled := false
	raw := rawVolumeEvent("vol-1")
	raw.Commit = func(_ context.Context) error {
		commitCalled = true
		return nil
	}

	ext := &mockExtractor{batches: [][]pipeline.RawEvent{{raw}}}
	tfm := &mockTransformer{}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ldr.count())
	assert.True(t, commitCalled)
}

func TestPipeline_NotReadyBeforeFirstProduct(t *testing.T) {
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, &mockLoader{}, slog.Default(), newTestMetrics(), 10)
	assert.Error(t, p.CheckReadiness(context.Background()))
}
