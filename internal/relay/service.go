package relay

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/visitrelay/internal/domain"
	"github.com/MrSnakeDoc/visitrelay/internal/logger"
)

// Enricher resolves an address to a label. Implementations never fail.
type Enricher interface {
	Enrich(ctx context.Context, address string) domain.GeoLabel
}

// Dispatcher delivers a formatted notification. Its error is only logged.
type Dispatcher interface {
	Send(ctx context.Context, text string) error
}

// Service runs extract, enrich, format and dispatch for one visit.
type Service struct {
	enricher   Enricher
	dispatcher Dispatcher
	logger     logger.Logger
}

// Result describes what happened to one visit. The HTTP layer ignores it;
// it exists for logging and tests.
type Result struct {
	Visit       domain.VisitRecord
	Label       domain.GeoLabel
	Message     string
	DispatchErr error
}

func NewService(enricher Enricher, dispatcher Dispatcher, log logger.Logger) *Service {
	return &Service{
		enricher:   enricher,
		dispatcher: dispatcher,
		logger:     log,
	}
}

// Handle never fails. Dispatch errors are logged and returned in Result.
func (s *Service) Handle(ctx context.Context, rc domain.RequestContext) Result {
	visit := domain.Extract(rc)

	start := time.Now()
	label := s.enricher.Enrich(ctx, visit.NetworkAddress)
	s.logger.Debug("visit enriched",
		logger.String("address", visit.NetworkAddress),
		logger.String("location", label.Text),
		logger.Duration("elapsed", time.Since(start)))

	msg := domain.FormatNotification(visit, label)

	err := s.dispatcher.Send(ctx, msg)
	if err != nil {
		s.logger.Warn("visit notification not delivered",
			logger.String("address", visit.NetworkAddress),
			logger.Error(err))
	} else {
		s.logger.Info("visit recorded",
			logger.String("address", visit.NetworkAddress),
			logger.String("location", label.Text))
	}

	return Result{
		Visit:       visit,
		Label:       label,
		Message:     msg,
		DispatchErr: err,
	}
}
