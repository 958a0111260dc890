package service

import (
	"context"
	"time"

	"github.com/azkafin/finmate-bfa-go/internal/domain"
	"github.com/azkafin/finmate-bfa-go/internal/infra/observability"
	"github.com/azkafin/finmate-bfa-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var zakatTracer = otel.Tracer("service/zakat")

// ZakatService assesses the yearly zakat obligation from the user's
// balance summary. Income counts as eligible wealth and expenses as
// liabilities; the nisab threshold comes from configuration.
type ZakatService struct {
	balance      port.BalanceFetcher
	gamification *GamificationService
	nisab        decimal.Decimal
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewZakatService creates the zakat calculator.
func NewZakatService(balance port.BalanceFetcher, gamification *GamificationService, nisab decimal.Decimal, metrics *observability.Metrics, logger *zap.Logger) *ZakatService {
	return &ZakatService{
		balance:      balance,
		gamification: gamification,
		nisab:        nisab,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// Assess fetches the balance summary and computes the assessment for
// the current zakat year, due at the end of the calendar year.
func (s *ZakatService) Assess(ctx context.Context, user string) (*domain.ZakatAssessment, error) {
	ctx, span := zakatTracer.Start(ctx, "ZakatService.Assess")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("zakat_assess", time.Since(start))
	}()

	summary, err := s.balance.GetBalance(ctx, user)
	if err != nil {
		return nil, err
	}

	now := s.now()
	dueDate := time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, now.Location())
	assessment := domain.AssessZakat(summary.TotalIncome, summary.TotalExpenses, s.nisab, dueDate)
	return &assessment, nil
}

// MarkPaid records that the user settled this year's zakat, awarding
// the corresponding badge.
func (s *ZakatService) MarkPaid(user string) {
	s.gamification.RecordZakatPaid(user)
	s.logger.Info("zakat marked paid", zap.String("user", user))
}
