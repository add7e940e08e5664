package assist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	pkgerrors "trrhub/pkg/errors"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks trrhub/internal/assist Suggester,Cache

var tracer = otel.Tracer("trrhub.assist")

// Suggester is the upstream suggestion port.
type Suggester interface {
	Suggest(ctx context.Context, req Request) (Response, error)
}

// Service fronts the upstream suggester with a cache and a per-tenant
// quota. A cache hit consumes no quota; a denied request never reaches
// upstream.
type Service struct {
	cache    Cache
	limiter  *Limiter
	upstream Suggester
	metrics  *Metrics
	logger   *slog.Logger
	ttl      time.Duration
}

type ServiceOption func(*Service)

func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) { s.ttl = ttl }
}

func WithMetrics(metrics *Metrics) ServiceOption {
	return func(s *Service) { s.metrics = metrics }
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func NewService(cache Cache, limiter *Limiter, upstream Suggester, opts ...ServiceOption) (*Service, error) {
	if cache == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cache is required")
	}
	if limiter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "limiter is required")
	}
	if upstream == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "upstream suggester is required")
	}
	s := &Service{
		cache:    cache,
		limiter:  limiter,
		upstream: upstream,
		logger:   slog.Default(),
		ttl:      DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetSuggestion validates, consults the cache, enforces the tenant
// quota, and only then calls upstream. Successful responses are cached
// for the service TTL.
func (s *Service) GetSuggestion(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}

	tenant := req.Context.OrganizationID
	ctx, span := tracer.Start(ctx, "assist.GetSuggestion",
		trace.WithAttributes(
			attribute.String("suggestion.type", string(req.Type)),
			attribute.String("tenant.id", tenant),
		))
	defer span.End()

	key := CacheKey(req)

	cached, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		// Cache trouble degrades to a miss rather than failing the call.
		s.logger.WarnContext(ctx, "suggestion cache read failed", "error", err)
	}
	if hit {
		s.count(func(m *Metrics) { m.CacheHits.Inc() })
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	s.count(func(m *Metrics) { m.CacheMisses.Inc() })
	span.SetAttributes(attribute.Bool("cache.hit", false))

	decision := s.limiter.Allow(tenant)
	if !decision.Allowed {
		s.count(func(m *Metrics) { m.RateLimitDenials.Inc() })
		err := pkgerrors.New(pkgerrors.CodeRateLimited, "suggestion quota exhausted").
			WithHint(fmt.Sprintf("retry in %s", decision.RetryAfter.Round(time.Second)))
		span.SetStatus(codes.Error, "rate limited")
		return Response{}, err
	}

	s.count(func(m *Metrics) { m.UpstreamCalls.Inc() })
	started := time.Now()
	resp, err := s.upstream.Suggest(ctx, req)
	s.observe(time.Since(started))
	if err != nil {
		s.count(func(m *Metrics) { m.UpstreamFailures.Inc() })
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream failed")
		return Response{}, normalizeUpstream(err)
	}

	if err := s.cache.Put(ctx, key, resp, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "suggestion cache write failed", "error", err)
	}
	span.SetAttributes(attribute.Int("quota.remaining", decision.Remaining))
	return resp, nil
}

// Remaining exposes the tenant's current quota headroom.
func (s *Service) Remaining(tenant string) int {
	return s.limiter.Remaining(tenant)
}

func (s *Service) count(fn func(*Metrics)) {
	if s.metrics != nil {
		fn(s.metrics)
	}
}

func (s *Service) observe(elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.UpstreamLatencySec.Observe(elapsed.Seconds())
	}
}

// normalizeUpstream folds collaborator-specific failures into the closed
// error set callers branch on.
func normalizeUpstream(err error) error {
	switch {
	case pkgerrors.HasCode(err, pkgerrors.CodeAuthRequired),
		pkgerrors.HasCode(err, pkgerrors.CodePermissionDenied),
		pkgerrors.HasCode(err, pkgerrors.CodeInvalidRequest),
		pkgerrors.HasCode(err, pkgerrors.CodeRateLimited),
		pkgerrors.HasCode(err, pkgerrors.CodeUnavailable):
		return err
	default:
		return pkgerrors.Wrap(err, pkgerrors.CodeUnavailable, "suggestion service")
	}
}
