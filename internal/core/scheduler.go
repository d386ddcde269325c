package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	jobExpirySweep = "expiry_sweep"
	jobMatchSweep  = "match_sweep"
)

// sweepMetrics holds the Prometheus instruments for the background jobs.
type sweepMetrics struct {
	runs     *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	results  *prometheus.CounterVec
}

func newSweepMetrics(reg prometheus.Registerer) *sweepMetrics {
	factory := promauto.With(reg)
	return &sweepMetrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orderbook_sweep_runs_total",
			Help: "Completed background sweep runs by job.",
		}, []string{"job"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orderbook_sweep_skipped_total",
			Help: "Sweep ticks skipped because the previous run was still in flight.",
		}, []string{"job"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orderbook_sweep_duration_seconds",
			Help:    "Duration of background sweep runs by job.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		results: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orderbook_sweep_results_total",
			Help: "Orders expired and matches executed by the background sweeps.",
		}, []string{"job"}),
	}
}

// Scheduler drives the two periodic jobs against the order book: the
// expired-order sweep and the match sweep. The jobs are independent; each
// carries its own single-flight guard, so the real guarantee is "at most one
// run of each job in flight", not strict periodicity. A run that hangs on a
// store call stalls only its own job.
//
// There is no cancellation of an in-flight run; Stop only prevents new ticks
// and waits for running sweeps to finish.
type Scheduler struct {
	book     *OrderBook
	interval time.Duration
	logger   *zap.Logger
	metrics  *sweepMetrics

	expiryInFlight atomic.Bool
	matchInFlight  atomic.Bool

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler builds a scheduler sweeping at the given interval and
// registering its metrics with reg.
func NewScheduler(book *OrderBook, interval time.Duration, logger *zap.Logger, reg prometheus.Registerer) *Scheduler {
	return &Scheduler{
		book:     book,
		interval: interval,
		logger:   logger,
		metrics:  newSweepMetrics(reg),
		stop:     make(chan struct{}),
	}
}

// Start launches the tick loop. Each tick kicks both jobs; a job whose
// previous run is still in flight skips the tick instead of stacking up.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.logger.Info("order sweep scheduler started", zap.Duration("interval", s.interval))
		for {
			select {
			case <-ticker.C:
				s.kickExpirySweep()
				s.kickMatchSweep()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop halts future ticks and waits for in-flight sweeps to complete.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
	s.logger.Info("order sweep scheduler stopped")
}

func (s *Scheduler) kickExpirySweep() {
	if !s.expiryInFlight.CompareAndSwap(false, true) {
		s.metrics.skipped.WithLabelValues(jobExpirySweep).Inc()
		s.logger.Warn("expiry sweep still in flight, skipping tick")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.expiryInFlight.Store(false)
		s.runExpirySweep(context.Background())
	}()
}

func (s *Scheduler) kickMatchSweep() {
	if !s.matchInFlight.CompareAndSwap(false, true) {
		s.metrics.skipped.WithLabelValues(jobMatchSweep).Inc()
		s.logger.Warn("match sweep still in flight, skipping tick")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.matchInFlight.Store(false)
		s.runMatchSweep(context.Background())
	}()
}

func (s *Scheduler) runExpirySweep(ctx context.Context) {
	start := time.Now()
	expired := s.book.SweepExpired(ctx)
	s.metrics.runs.WithLabelValues(jobExpirySweep).Inc()
	s.metrics.results.WithLabelValues(jobExpirySweep).Add(float64(expired))
	s.metrics.duration.WithLabelValues(jobExpirySweep).Observe(time.Since(start).Seconds())
	if expired > 0 {
		s.logger.Info("expiry sweep complete", zap.Int("expired", expired))
	}
}

func (s *Scheduler) runMatchSweep(ctx context.Context) {
	start := time.Now()
	matches := s.book.AllMatches(ctx)
	executed := 0
	for _, m := range matches {
		if _, ok := s.book.ExecuteMatch(ctx, m.BuyOrder.ID); ok {
			executed++
		}
	}
	s.metrics.runs.WithLabelValues(jobMatchSweep).Inc()
	s.metrics.results.WithLabelValues(jobMatchSweep).Add(float64(executed))
	s.metrics.duration.WithLabelValues(jobMatchSweep).Observe(time.Since(start).Seconds())
	if executed > 0 {
		s.logger.Info("match sweep complete",
			zap.Int("candidates", len(matches)), zap.Int("executed", executed))
	}
}
