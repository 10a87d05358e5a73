package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	require.NotNil(t, client)

	// Verify tasks database was created
	tasksDBPath := filepath.Join(tmpDir, "test-tasks.db")
	_, err = os.Stat(tasksDBPath)
	assert.NoError(t, err, "tasks database should be created")

	err = client.Close()
	assert.NoError(t, err)
}

func TestClientStartStop(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	defer client.Close()

	// Start client in background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.Start(ctx)

	// Give it time to start
	time.Sleep(50 * time.Millisecond)

	// Stop should complete successfully
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()

	success := client.Stop(stopCtx)
	assert.True(t, success, "stop should succeed gracefully")
}

// TestTask is a simple task for testing
type TestTask struct {
	Value string `json:"value"`
}

func (t TestTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "test_task",
		MaxAttempts: 1,
		Backoff:     time.Second,
		Timeout:     5 * time.Second,
	}
}

func TestTaskEnqueue(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	defer client.Close()

	// Create and register a test queue
	executed := make(chan string, 1)
	queue := backlite.NewQueue(func(ctx context.Context, task TestTask) error {
		executed <- task.Value
		return nil
	})
	client.Register(queue)

	// Start client
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	// Enqueue a task
	ids, err := client.Add(TestTask{Value: "hello"}).Save()
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	// Wait for task to be executed
	select {
	case val := <-executed:
		assert.Equal(t, "hello", val)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}
}

func TestWarmCoverTaskConfig(t *testing.T) {
	cfg := WarmCoverTask{PageID: "pg-1", ItemID: 3}.Config()

	assert.Equal(t, "warm_cover", cfg.Name)
	assert.Equal(t, 2, cfg.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retention)
}

type recordingWarmer struct {
	warmed chan WarmCoverTask
	err    error
}

func (r *recordingWarmer) WarmCover(_ context.Context, pageID string, itemID int64) error {
	r.warmed <- WarmCoverTask{PageID: pageID, ItemID: itemID}
	return r.err
}

func TestWarmCoverProcessor(t *testing.T) {
	warmer := &recordingWarmer{warmed: make(chan WarmCoverTask, 1)}
	process := WarmCoverProcessor(warmer)

	require.NoError(t, process(context.Background(), WarmCoverTask{PageID: "pg-1", ItemID: 3}))
	assert.Equal(t, WarmCoverTask{PageID: "pg-1", ItemID: 3}, <-warmer.warmed)

	warmer.err = errors.New("boom")
	err := process(context.Background(), WarmCoverTask{PageID: "pg-1", ItemID: 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warm cover 4 on page pg-1")

	assert.Error(t, WarmCoverProcessor(nil)(context.Background(), WarmCoverTask{}))
}

func TestWarmCovers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1
	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"), cfg)
	require.NoError(t, err)
	defer client.Close()

	warmer := &recordingWarmer{warmed: make(chan WarmCoverTask, 2)}
	client.Register(NewWarmCoverQueue(warmer))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	require.NoError(t, client.WarmCovers(ctx, "pg-1", nil))
	require.NoError(t, client.WarmCovers(ctx, "pg-1", []int64{5, 6}))

	got := map[int64]bool{}
	for range 2 {
		select {
		case task := <-warmer.warmed:
			assert.Equal(t, "pg-1", task.PageID)
			got[task.ItemID] = true
		case <-time.After(5 * time.Second):
			t.Fatal("cover warm-up was not executed within timeout")
		}
	}
	assert.Equal(t, map[int64]bool{5: true, 6: true}, got)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	client.Stop(stopCtx)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
}
