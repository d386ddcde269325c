package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/model"
	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/store"
)

// gatedStore blocks Upsert while armed so a sweep can be held in flight.
type gatedStore struct {
	*store.MemoryStore
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) Upsert(ctx context.Context, side model.Side, list model.ListID, order *model.Order) error {
	if s.armed.Load() {
		s.entered <- struct{}{}
		<-s.release
	}
	return s.MemoryStore.Upsert(ctx, side, list, order)
}

func TestSchedulerSingleFlight(t *testing.T) {
	ctx := context.Background()
	st := &gatedStore{
		MemoryStore: store.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	book, err := NewOrderBook(ctx, st, &recordingPublisher{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	book.nowMs = func() int64 { return 10_000 }

	expired := testOrder(true, "1", 1, "stale")
	expired.EndTime = 1_000
	expired.ID = expired.Hash()
	book.Add(ctx, model.ListValidActive, expired)

	s := NewScheduler(book, time.Hour, zaptest.NewLogger(t), prometheus.NewRegistry())

	// first kick blocks inside the store while moving the expired order
	st.armed.Store(true)
	s.kickExpirySweep()
	<-st.entered

	// a second kick while the first run is in flight must be skipped
	s.kickExpirySweep()
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.skipped.WithLabelValues(jobExpirySweep)))

	st.armed.Store(false)
	close(st.release)
	s.Stop()

	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.runs.WithLabelValues(jobExpirySweep)))
	assert.True(t, book.Contains(model.SideSell, model.ListInvalid, expired.ID))
}

func TestSchedulerRunsBothJobs(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	pub := &recordingPublisher{}
	book, err := NewOrderBook(ctx, st, pub, zaptest.NewLogger(t))
	require.NoError(t, err)

	sell := testOrder(true, "1.0", 1, "sched-sell")
	buy := testOrder(false, "1.0", 1, "sched-buy")
	book.Add(ctx, model.ListValidActive, sell)
	book.Add(ctx, model.ListValidActive, buy)

	s := NewScheduler(book, 10*time.Millisecond, zaptest.NewLogger(t), prometheus.NewRegistry())
	s.Start()
	require.Eventually(t, func() bool {
		return pub.count() > 0
	}, 2*time.Second, 5*time.Millisecond, "match sweep should execute the seeded match")
	s.Stop()

	assert.False(t, book.Contains(model.SideBuy, model.ListValidActive, buy.ID))
	assert.True(t, book.Contains(model.SideBuy, model.ListValidInactive, buy.ID))
}
