// Package service implements the submission workflow once, generic over the
// record category descriptor: create/edit/delete with ownership re-checks,
// paginated review listings, and the role-gated review transitions.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rekam/internal/submission/metrics"
	"rekam/internal/submission/models"
	dErrors "rekam/pkg/domain-errors"
	audit "rekam/pkg/platform/audit"
)

const (
	// DefaultPageSize is used when the caller does not ask for one.
	DefaultPageSize = 5
	// MaxPageSize caps a single page.
	MaxPageSize = 100

	tracerName = "rekam/submission"
)

// Store is the record store the workflow runs against. Update, ToggleReady
// and Delete report how many rows matched the filter and refuse a filter
// without a submission id.
type Store interface {
	Query(ctx context.Context, category string, q models.Query) ([]*models.Submission, int, error)
	Insert(ctx context.Context, category string, s *models.Submission) error
	Update(ctx context.Context, category string, f models.Filter, p models.Patch) (int64, error)
	ToggleReady(ctx context.Context, category string, f models.Filter) (bool, int64, error)
	Delete(ctx context.Context, category string, f models.Filter) (int64, error)
}

// AuditPublisher records workflow events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the submission workflow engine.
type Service struct {
	store      Store
	categories *models.Registry
	logger     *slog.Logger
	metrics    *metrics.Metrics
	auditor    AuditPublisher
	tracer     trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithCategories replaces the default category registry.
func WithCategories(r *models.Registry) Option {
	return func(s *Service) {
		s.categories = r
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New builds a Service over store.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "submission store is required")
	}
	s := &Service{
		store:      store,
		categories: models.DefaultRegistry(),
		logger:     slog.Default(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Categories returns every registered category.
func (s *Service) Categories() []*models.Category {
	return s.categories.All()
}

// observe opens a span and returns the func that closes it and records metrics.
// Call as: ctx, done := s.observe(...); defer done(&err).
func (s *Service) observe(ctx context.Context, category string, op models.Operation) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "submission."+string(op),
		trace.WithAttributes(attribute.String("submission.category", category)))
	return ctx, func(errp *error) {
		outcome := "success"
		if err := *errp; err != nil {
			outcome = string(dErrors.CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		s.metrics.ObserveOperation(category, string(op), outcome, time.Since(start))
		span.End()
	}
}
