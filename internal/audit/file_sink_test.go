package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabaudit/internal/core/port"
)

func TestNewFileSink(t *testing.T) {
	t.Parallel()

	t.Run("creates file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "trail.ndjson")

		sink, err := NewFileSink(path)
		require.NoError(t, err)
		defer sink.Close()

		_, err = os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("invalid path", func(t *testing.T) {
		t.Parallel()
		_, err := NewFileSink("/nonexistent-dir/trail.ndjson")
		assert.Error(t, err)
	})
}

func TestFileSink_Record(t *testing.T) {
	t.Parallel()

	t.Run("writes NDJSON entry", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "trail.ndjson")
		sink, err := NewFileSink(path)
		require.NoError(t, err)

		sink.Record(context.Background(), port.CheckEvent{
			RunID:      "run-1",
			Column:     "amount",
			Check:      "missing_values",
			DurationMS: 12,
		})
		require.NoError(t, sink.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(data, &entry))
		assert.Equal(t, "run-1", entry["run_id"])
		assert.Equal(t, "amount", entry["column"])
		assert.Equal(t, "missing_values", entry["check"])
		assert.Equal(t, float64(12), entry["duration_ms"])
		assert.Nil(t, entry["error"])
		assert.NotEmpty(t, entry["ts"])
	})

	t.Run("records check error message", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "trail.ndjson")
		sink, err := NewFileSink(path)
		require.NoError(t, err)

		sink.Record(context.Background(), port.CheckEvent{
			RunID:  "run-2",
			Column: "price",
			Check:  "numeric_overview",
			Err:    errors.New("query timeout"),
		})
		require.NoError(t, sink.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(data, &entry))
		assert.Equal(t, "query timeout", entry["error"])
	})

	t.Run("one line per event", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "trail.ndjson")
		sink, err := NewFileSink(path)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			sink.Record(context.Background(), port.CheckEvent{
				RunID:  "run-3",
				Column: fmt.Sprintf("col_%d", i),
				Check:  "uniqueness",
			})
		}
		require.NoError(t, sink.Close())

		assert.Equal(t, 5, countLines(t, path))
	})

	t.Run("concurrent writes stay whole", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "trail.ndjson")
		sink, err := NewFileSink(path)
		require.NoError(t, err)

		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				sink.Record(context.Background(), port.CheckEvent{
					RunID:  "run-4",
					Column: fmt.Sprintf("col_%d", i),
					Check:  "missing_values",
				})
			}()
		}
		wg.Wait()
		require.NoError(t, sink.Close())

		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()

		lines := 0
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var entry map[string]any
			require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry), "line must be valid JSON")
			lines++
		}
		assert.Equal(t, n, lines)
	})

	t.Run("appends across sinks", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "trail.ndjson")

		for i := 0; i < 2; i++ {
			sink, err := NewFileSink(path)
			require.NoError(t, err)
			sink.Record(context.Background(), port.CheckEvent{RunID: "run-5", Column: "id", Check: "uniqueness"})
			require.NoError(t, sink.Close())
		}

		assert.Equal(t, 2, countLines(t, path))
	})
}

func TestNoopSink(t *testing.T) {
	t.Parallel()

	var sink NoopSink
	sink.Record(context.Background(), port.CheckEvent{RunID: "run-6"})
	assert.NoError(t, sink.Close())
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++
	}
	return n
}
