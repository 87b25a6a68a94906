package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/metrics"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Sink receives analytics events.
type Sink interface {
	Write(ctx context.Context, event *Event) error
}

// SearchLogWriter persists search log rows. storage.SQLiteStorage implements it.
type SearchLogWriter interface {
	RecordSearch(ctx context.Context, log *models.SearchLog) error
}

// StoreSink writes events as search_logs rows.
type StoreSink struct {
	store SearchLogWriter
}

// NewStoreSink creates a sink writing to store.
func NewStoreSink(store SearchLogWriter) *StoreSink {
	return &StoreSink{store: store}
}

// Write encodes the event parameters as JSON and inserts a search log row.
func (s *StoreSink) Write(ctx context.Context, event *Event) error {
	params, err := json.Marshal(event.Params)
	if err != nil {
		return fmt.Errorf("encode query params: %w", err)
	}
	return s.store.RecordSearch(ctx, &models.SearchLog{
		ID:           event.ID,
		Mode:         event.Mode,
		QueryParams:  string(params),
		ResultsCount: event.ResultsCount,
		DurationMs:   event.Duration.Milliseconds(),
		CreatedAt:    event.CreatedAt,
	})
}

// LogSink writes events to a logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink logging at Info level.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Write logs the event.
func (s *LogSink) Write(ctx context.Context, event *Event) error {
	s.logger.Info("Search analytics",
		zap.String("id", event.ID),
		zap.String("mode", event.Mode),
		zap.Any("query_params", event.Params),
		zap.Int("results_count", event.ResultsCount),
		zap.Duration("duration", event.Duration),
	)
	return nil
}

// BreakerSettings configures BreakerSink.
type BreakerSettings struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before a trial write.
	OpenTimeout time.Duration
}

// BreakerSink guards a sink with a circuit breaker so a failing sink is
// skipped quickly instead of being retried on every call.
type BreakerSink struct {
	next Sink
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerSink wraps next with a breaker named name.
func NewBreakerSink(name string, next Sink, settings BreakerSettings, logger *zap.Logger) *BreakerSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.OpenTimeout == 0 {
		settings.OpenTimeout = 30 * time.Second
	}
	metrics.AnalyticsBreakerState.Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("Analytics sink breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.AnalyticsBreakerState.Set(stateToFloat(to))
		},
	})
	return &BreakerSink{next: next, cb: cb}
}

// ErrSinkUnavailable is returned while the breaker is open.
var ErrSinkUnavailable = errors.New("analytics sink unavailable")

// Write forwards to the wrapped sink unless the breaker is open.
func (b *BreakerSink) Write(ctx context.Context, event *Event) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Write(ctx, event)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	return err
}

// State returns the breaker state.
func (b *BreakerSink) State() gobreaker.State {
	return b.cb.State()
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
