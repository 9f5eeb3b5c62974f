package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bulk-loan-api/internal/models"
	appErrors "github.com/noah-isme/bulk-loan-api/pkg/errors"
)

type loanListerStub struct {
	records []models.LoanRecord
	err     error
	calls   int
}

func (s *loanListerStub) ListAll(context.Context, models.LoanFilter) ([]models.LoanRecord, error) {
	s.calls++
	return s.records, s.err
}

type summaryCacheStub struct {
	stored      map[string]models.LoanSummary
	invalidated []string
	gen         uint64
}

func (c *summaryCacheStub) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	v, ok := c.stored[key]
	if !ok {
		return false, nil
	}
	*(dest.(*models.LoanSummary)) = v
	return true, nil
}

func (c *summaryCacheStub) Generation() uint64 { return c.gen }

func (c *summaryCacheStub) SetIfCurrent(_ context.Context, gen uint64, key string, value interface{}, _ time.Duration) (bool, error) {
	if gen != c.gen {
		return false, nil
	}
	c.stored[key] = value.(models.LoanSummary)
	return true, nil
}

func (c *summaryCacheStub) Invalidate(_ context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	c.gen++
	c.stored = map[string]models.LoanSummary{}
	return nil
}

func sampleRecords() []models.LoanRecord {
	return []models.LoanRecord{
		{ID: "a", District: "North", OrganizationType: models.OrganizationFoundation, Status: models.LoanStatusBorrowed,
			CalculatedBooks: []string{"1", "2", "3"}},
		{ID: "b", District: "North", OrganizationType: models.OrganizationAssociation, Status: models.LoanStatusPartiallyReturned,
			CalculatedBooks: []string{"1", "2"}, ReturnedBooks: []string{"2"}},
		{ID: "c", District: "East", OrganizationType: models.OrganizationFoundation, Status: models.LoanStatusReturned,
			CalculatedBooks: []string{"7"}, ReturnedBooks: []string{"7"}},
	}
}

func TestComputeSummary(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	summary := ComputeSummary(sampleRecords(), at)

	assert.Equal(t, 3, summary.TotalRecords)
	assert.Equal(t, 2, summary.ActiveRecords)
	assert.Equal(t, 1, summary.ReturnedRecords)
	assert.Equal(t, 6, summary.TotalBooks)
	assert.Equal(t, 4, summary.OutstandingBooks)
	assert.Equal(t, map[string]int{"FOUNDATION": 2, "ASSOCIATION": 1}, summary.ByOrganization)
	assert.Equal(t, []models.DistrictSummary{
		{District: "East", ActiveRecords: 0, OutstandingBooks: 0},
		{District: "North", ActiveRecords: 2, OutstandingBooks: 4},
	}, summary.ByDistrict)
	assert.Equal(t, at, summary.GeneratedAt)
}

func TestComputeSummaryEmpty(t *testing.T) {
	summary := ComputeSummary(nil, time.Time{})
	assert.Zero(t, summary.TotalRecords)
	assert.NotNil(t, summary.ByDistrict)
	assert.NotNil(t, summary.ByOrganization)
}

func TestSummaryServiceCaches(t *testing.T) {
	repo := &loanListerStub{records: sampleRecords()}
	cache := &summaryCacheStub{stored: map[string]models.LoanSummary{}}
	svc := NewSummaryService(repo, cache, time.Minute, nil)

	first, hit, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	second, hit, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.OutstandingBooks, second.OutstandingBooks)
	assert.Equal(t, 1, repo.calls)

	svc.Invalidate(context.Background())
	assert.Equal(t, []string{summaryCachePattern}, cache.invalidated)
	_, hit, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, repo.calls)
}

func TestSummaryServiceRepositoryError(t *testing.T) {
	svc := NewSummaryService(&loanListerStub{err: errors.New("down")}, nil, 0, nil)

	_, _, err := svc.Summary(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

type racingLister struct {
	loanListerStub
	during func()
}

func (s *racingLister) ListAll(ctx context.Context, filter models.LoanFilter) ([]models.LoanRecord, error) {
	if s.during != nil {
		s.during()
		s.during = nil
	}
	return s.loanListerStub.ListAll(ctx, filter)
}

func TestSummaryServiceDropsStaleResult(t *testing.T) {
	cache := &summaryCacheStub{stored: map[string]models.LoanSummary{}}
	repo := &racingLister{loanListerStub: loanListerStub{records: sampleRecords()}}
	svc := NewSummaryService(repo, cache, time.Minute, nil)
	repo.during = func() { svc.Invalidate(context.Background()) }

	_, hit, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, cache.stored)
}
