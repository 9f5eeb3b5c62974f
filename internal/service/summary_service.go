package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/bulk-loan-api/internal/inventory"
	"github.com/noah-isme/bulk-loan-api/internal/models"
	appErrors "github.com/noah-isme/bulk-loan-api/pkg/errors"
)

const (
	summaryCacheKey     = "loans:summary"
	summaryCachePattern = "loans:summary*"
)

type loanLister interface {
	ListAll(ctx context.Context, filter models.LoanFilter) ([]models.LoanRecord, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Generation() uint64
	SetIfCurrent(ctx context.Context, gen uint64, key string, value interface{}, ttl time.Duration) (bool, error)
	Invalidate(ctx context.Context, pattern string) error
}

// SummaryService aggregates dashboard statistics across all loan records.
type SummaryService struct {
	repo   loanLister
	cache  summaryCache
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewSummaryService constructs the service. cache may be nil.
func NewSummaryService(repo loanLister, cache summaryCache, ttl time.Duration, logger *zap.Logger) *SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{repo: repo, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// Summary returns the dashboard figures and whether they came from cache.
func (s *SummaryService) Summary(ctx context.Context) (*models.LoanSummary, bool, error) {
	var gen uint64
	if s.cache != nil {
		gen = s.cache.Generation()
		var cached models.LoanSummary
		hit, err := s.cache.Get(ctx, summaryCacheKey, &cached)
		if err == nil && hit {
			return &cached, true, nil
		}
	}

	records, err := s.repo.ListAll(ctx, models.LoanFilter{})
	if err != nil {
		return nil, false, appErrors.Persistence(err, "failed to load loan records")
	}
	summary := ComputeSummary(records, s.now().UTC())

	if s.cache != nil {
		stored, err := s.cache.SetIfCurrent(ctx, gen, summaryCacheKey, summary, s.ttl)
		if err != nil || !stored {
			s.logger.Debug("summary cache write skipped", zap.Bool("stale", err == nil), zap.Error(err))
		}
	}
	return &summary, false, nil
}

// Invalidate drops cached summaries after a write.
func (s *SummaryService) Invalidate(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, summaryCachePattern); err != nil {
		s.logger.Warn("summary cache invalidation failed", zap.Error(err))
	}
}

// ComputeSummary folds records into dashboard totals. Outstanding counts are recomputed per record.
func ComputeSummary(records []models.LoanRecord, at time.Time) models.LoanSummary {
	summary := models.LoanSummary{
		ByDistrict:     []models.DistrictSummary{},
		ByOrganization: map[string]int{},
		GeneratedAt:    at,
	}
	districts := make(map[string]*models.DistrictSummary)

	for i := range records {
		rec := &records[i]
		outstanding := len(inventory.Outstanding(rec))

		summary.TotalRecords++
		summary.TotalBooks += len(rec.CalculatedBooks)
		summary.OutstandingBooks += outstanding
		summary.ByOrganization[string(rec.OrganizationType)]++

		ds, ok := districts[rec.District]
		if !ok {
			ds = &models.DistrictSummary{District: rec.District}
			districts[rec.District] = ds
		}
		ds.OutstandingBooks += outstanding

		if rec.Status.Active() {
			summary.ActiveRecords++
			ds.ActiveRecords++
		} else {
			summary.ReturnedRecords++
		}
	}

	for _, ds := range districts {
		summary.ByDistrict = append(summary.ByDistrict, *ds)
	}
	sort.Slice(summary.ByDistrict, func(i, j int) bool {
		return summary.ByDistrict[i].District < summary.ByDistrict[j].District
	})
	return summary
}
