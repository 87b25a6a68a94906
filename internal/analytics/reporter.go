package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/metrics"
	"go.uber.org/zap"
)

// Reporter hands events to a sink in the background. Report never blocks:
// when too many deliveries are in flight the event is dropped.
type Reporter struct {
	sink     Sink
	timeout  time.Duration
	logger   *zap.Logger
	inflight chan struct{}

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// ReporterOption is a functional option for configuring Reporter.
type ReporterOption func(*Reporter)

// WithTimeout bounds each sink write.
func WithTimeout(d time.Duration) ReporterOption {
	return func(r *Reporter) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxInFlight bounds the number of concurrent deliveries.
func WithMaxInFlight(n int) ReporterOption {
	return func(r *Reporter) {
		if n > 0 {
			r.inflight = make(chan struct{}, n)
		}
	}
}

// WithLogger sets the logger used for failed deliveries.
func WithLogger(l *zap.Logger) ReporterOption {
	return func(r *Reporter) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReporter creates a reporter delivering to sink.
func NewReporter(sink Sink, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		sink:     sink,
		timeout:  2 * time.Second,
		logger:   zap.NewNop(),
		inflight: make(chan struct{}, 64),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report delivers event in the background. Failures are logged and counted.
func (r *Reporter) Report(event *Event) {
	if event == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		metrics.RecordAnalytics("dropped")
		return
	}
	select {
	case r.inflight <- struct{}{}:
	default:
		r.mu.Unlock()
		metrics.RecordAnalytics("dropped")
		r.logger.Debug("Analytics event dropped", zap.String("id", event.ID))
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer func() {
			<-r.inflight
			r.wg.Done()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		err := r.sink.Write(ctx, event)
		switch {
		case err == nil:
			metrics.RecordAnalytics("delivered")
		case errors.Is(err, ErrSinkUnavailable):
			metrics.RecordAnalytics("rejected")
		default:
			metrics.RecordAnalytics("failed")
			r.logger.Warn("Analytics delivery failed", zap.String("id", event.ID), zap.Error(err))
		}
	}()
}

// Close stops accepting events and waits for in-flight deliveries or ctx.
func (r *Reporter) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
