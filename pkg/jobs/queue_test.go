package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunQueueExecutesKeys(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	done := make(chan struct{}, 4)

	queue := NewRunQueue("test", func(_ context.Context, key string) error {
		mu.Lock()
		seen[key]++
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, RunQueueConfig{Workers: 2})
	queue.Start(context.Background())
	defer queue.Stop()

	accepted, err := queue.Enqueue("c1")
	require.NoError(t, err)
	assert.True(t, accepted)
	accepted, err = queue.Enqueue("c2")
	require.NoError(t, err)
	assert.True(t, accepted)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for runs")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, seen["c1"])
	assert.Equal(t, 1, seen["c2"])
}

func TestRunQueueDeduplicatesPendingKeys(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	queue := NewRunQueue("test", func(_ context.Context, _ string) error {
		started <- struct{}{}
		<-release
		return nil
	}, RunQueueConfig{Workers: 1})
	queue.Start(context.Background())
	defer queue.Stop()

	accepted, err := queue.Enqueue("c1")
	require.NoError(t, err)
	require.True(t, accepted)
	<-started

	accepted, err = queue.Enqueue("c1")
	require.NoError(t, err)
	assert.False(t, accepted)

	close(release)
}

func TestRunQueueRetriesFailedRuns(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	queue := NewRunQueue("test", func(_ context.Context, _ string) error {
		mu.Lock()
		attempts++
		current := attempts
		mu.Unlock()
		if current == 1 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, RunQueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 10 * time.Millisecond})
	queue.Start(context.Background())
	defer queue.Stop()

	_, err := queue.Enqueue("c1")
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for retry")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}

func TestRunQueueRejectsBeforeStart(t *testing.T) {
	queue := NewRunQueue("test", func(_ context.Context, _ string) error { return nil }, RunQueueConfig{})
	_, err := queue.Enqueue("c1")
	require.Error(t, err)
}
