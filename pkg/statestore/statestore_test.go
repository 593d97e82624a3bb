package statestore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryPutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	defer s.Stop()

	err := s.Put(ctx, "k1", "v1", time.Now().Add(time.Minute))
	assert.NoError(t, err)

	got, err := s.Get(ctx, "k1")
	assert.NoError(t, err)
	assert.Equal(t, "v1", got)
}

func TestMemoryGetPastExpiryIsAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	defer s.Stop()

	err := s.Put(ctx, "k1", "v1", time.Now().Add(-time.Second))
	assert.NoError(t, err)

	_, err = s.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPurgeMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	defer s.Stop()

	assert.NoError(t, s.Purge(ctx, "missing"))
}

func TestMemoryRedeemAtMostOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	defer s.Stop()

	assert.NoError(t, s.Put(ctx, "code", "flow-state", time.Now().Add(time.Minute)))

	const racers = 16
	var wg sync.WaitGroup
	successes := make(chan any, racers)
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func() {
			defer wg.Done()
			v, err := s.Redeem(ctx, "code")
			if err == nil {
				successes <- v
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for v := range successes {
		assert.Equal(t, "flow-state", v)
		count++
	}
	assert.Equal(t, 1, count, "exactly one redemption should succeed")

	_, err := s.Get(ctx, "code")
	assert.ErrorIs(t, err, ErrNotFound)
}
