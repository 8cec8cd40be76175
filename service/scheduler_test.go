package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerSyncAll(t *testing.T) {
	store := newFakeStore()
	md := &fakeMarketData{chart: mockChart("bitcoin", 10, testNow)}
	sc := newTestContext(store, md)

	s := NewScheduler(sc, []string{"bitcoin", "ethereum"})
	s.SyncAll()

	assert.Contains(t, store.metadata, "bitcoin/usd")
	assert.Contains(t, store.metadata, "ethereum/usd")
	assert.Equal(t, 2, md.calls)

	// both were just refreshed, a second pass fetches nothing
	s.SyncAll()
	assert.Equal(t, 2, md.calls)
}

func TestSchedulerRegister(t *testing.T) {
	s := NewScheduler(newTestContext(newFakeStore(), &fakeMarketData{}), nil)

	require.NoError(t, s.Register("0 15 0 * * *"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.Register("not a cron spec"))

	s.Start()
	next := s.Cron.Entries()[0].Next
	assert.True(t, next.After(time.Now()))
	s.Stop()
}
