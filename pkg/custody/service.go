package custody

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/fefejiro/peacepad/internal/repositories/event"
	"github.com/fefejiro/peacepad/internal/repositories/partnership"
	"github.com/fefejiro/peacepad/pkg/metrics"
	"github.com/fefejiro/peacepad/pkg/models"
	"github.com/fefejiro/peacepad/pkg/tracing"
)

// MaxRangeDays bounds the custody range endpoint. A leap year fits exactly.
const MaxRangeDays = 366

// Service resolves custody queries by loading a partnership with its
// override events and handing them to the pure pattern functions.
type Service struct {
	log          ectologger.Logger
	partnerships *partnership.Repository
	events       *event.Repository
}

// NewService creates a new custody service
func NewService(log ectologger.Logger, partnerships *partnership.Repository, events *event.Repository) *Service {
	return &Service{
		log:          log,
		partnerships: partnerships,
		events:       events,
	}
}

// DayFor computes the custody assignment for one calendar date
func (s *Service) DayFor(ctx context.Context, partnershipID string, userID string, date time.Time) (*models.CustodyDay, error) {
	ctx, span := tracing.StartSpan(ctx, "custody.Service.DayFor")
	defer span.End()

	p, err := s.partnerships.GetForUser(ctx, partnershipID, userID)
	if err != nil {
		return nil, err
	}

	overrides, err := s.events.ListOverriding(ctx, partnershipID, date, date)
	if err != nil {
		return nil, err
	}

	label := ForDate(date, *p, overrides)
	metrics.RecordCustodyLookup(patternName(p), outcomeName(label))

	day := &models.CustodyDay{Date: date.Format("2006-01-02")}
	if label != models.ParentNone {
		day.Parent = &label
	}
	return day, nil
}

// RangeFor computes the custody calendar over an inclusive date range
func (s *Service) RangeFor(ctx context.Context, partnershipID string, userID string, from, to time.Time) ([]models.CustodyDay, error) {
	ctx, span := tracing.StartSpan(ctx, "custody.Service.RangeFor")
	defer span.End()

	if to.Before(from) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "to is before from")
	}
	if int(to.Sub(from).Hours()/24) >= MaxRangeDays {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "range exceeds 366 days")
	}

	p, err := s.partnerships.GetForUser(ctx, partnershipID, userID)
	if err != nil {
		return nil, err
	}

	overrides, err := s.events.ListOverriding(ctx, partnershipID, from, to)
	if err != nil {
		return nil, err
	}

	days := Range(from, to, *p, overrides)
	metrics.RecordCustodyLookup(patternName(p), "range")
	return days, nil
}

func patternName(p *models.Partnership) string {
	if p.CustodyPattern == nil {
		return "none"
	}
	return string(*p.CustodyPattern)
}

func outcomeName(label models.ParentLabel) string {
	if label == models.ParentNone {
		return "unassigned"
	}
	return string(label)
}
