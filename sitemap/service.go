package sitemap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	"golang.org/x/sync/singleflight"
)

// ErrGenerationFailed is returned when a document could neither be served
// from the store nor generated and stored.
var ErrGenerationFailed = errors.New("sitemap: generation failed")

// Logger is the subset of echo.Logger the service writes to.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// DefaultBuildTimeout bounds one shared regeneration.
const DefaultBuildTimeout = time.Minute

// Service serves sitemap documents from a Store and regenerates them on a
// miss or when the freshness policy rejects the stored copy. Concurrent
// regenerations of the same kind share one build, which runs detached from
// the cancellation of whichever caller started it.
type Service struct {
	store        Store
	builder      Builder
	fresh        Freshness
	logger       Logger
	buildTimeout time.Duration
	group        singleflight.Group
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithFreshness sets the freshness policy. Defaults to Exists.
func WithFreshness(f Freshness) ServiceOption {
	return func(s *Service) { s.fresh = f }
}

// WithLogger routes service logs to l.
func WithLogger(l Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithBuildTimeout caps how long a shared regeneration may run.
func WithBuildTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.buildTimeout = d
		}
	}
}

// NewService wires a store and builder together.
func NewService(store Store, builder Builder, opts ...ServiceOption) *Service {
	s := &Service{
		store:        store,
		builder:      builder,
		fresh:        Exists(),
		logger:       log.New("sitemap"),
		buildTimeout: DefaultBuildTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReadOrGenerate returns the XML for kind, serving the stored document when
// it is fresh and regenerating it otherwise. Every generation or storage
// failure is reported as ErrGenerationFailed.
func (s *Service) ReadOrGenerate(ctx context.Context, kind Kind) ([]byte, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	doc, err := s.store.Get(ctx, kind)
	switch {
	case err == nil:
		if s.fresh(ctx, doc) {
			return doc.XML, nil
		}
	case errors.Is(err, ErrNotFound):
	default:
		s.logger.Warnf("sitemap %s: read cached copy: %v", kind, err)
	}
	return s.generate(ctx, kind)
}

// Regenerate rebuilds and stores kind regardless of what is cached.
func (s *Service) Regenerate(ctx context.Context, kind Kind) ([]byte, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s.generate(ctx, kind)
}

// Warm regenerates every kind and returns the joined failures.
func (s *Service) Warm(ctx context.Context) error {
	var errs []error
	for _, k := range Kinds() {
		if _, err := s.generate(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Invalidate drops the cached copies of kinds (all kinds when none given).
// Stores that cannot delete are left alone; their freshness policy decides.
func (s *Service) Invalidate(ctx context.Context, kinds ...Kind) error {
	d, ok := s.store.(Deleter)
	if !ok {
		return nil
	}
	if len(kinds) == 0 {
		kinds = Kinds()
	}
	var errs []error
	for _, k := range kinds {
		if err := d.Delete(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// generate builds and stores kind. Callers stop waiting when their own ctx
// ends; the build itself keeps going for the others sharing it.
func (s *Service) generate(ctx context.Context, kind Kind) ([]byte, error) {
	ch := s.group.DoChan(string(kind), func() (interface{}, error) {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.buildTimeout)
		defer cancel()

		doc, err := s.builder.Build(bctx, kind)
		if err != nil {
			s.logger.Errorf("sitemap %s: build: %v", kind, err)
			return nil, fmt.Errorf("build %s: %w", kind, err)
		}
		doc.Kind = kind
		if err := s.store.Put(bctx, doc); err != nil {
			s.logger.Errorf("sitemap %s: store: %v", kind, err)
			return nil, fmt.Errorf("store %s: %w", kind, err)
		}
		s.logger.Infof("sitemap %s regenerated (%d bytes, version %s)", kind, len(doc.XML), doc.Version)
		return doc.XML, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", ErrGenerationFailed, kind, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, r.Err)
		}
		return r.Val.([]byte), nil
	}
}
