package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/bulk-loan-api/internal/dto"
	"github.com/noah-isme/bulk-loan-api/internal/inventory"
	"github.com/noah-isme/bulk-loan-api/internal/models"
	appErrors "github.com/noah-isme/bulk-loan-api/pkg/errors"
	applog "github.com/noah-isme/bulk-loan-api/pkg/logger"
)

type loanStore interface {
	Create(ctx context.Context, rec *models.LoanRecord) error
	GetByID(ctx context.Context, id string) (*models.LoanRecord, error)
	List(ctx context.Context, filter models.LoanFilter) ([]models.LoanRecord, int, error)
	ApplyReturn(ctx context.Context, recordID string, patch *models.LoanReturnPatch) error
	AppendBorrowImages(ctx context.Context, recordID string, refs []string) error
	AppendReturnImages(ctx context.Context, recordID, eventID string, refs []string) error
	Delete(ctx context.Context, id string) error
}

type evidenceImages interface {
	Validate(uploads []ImageUpload) error
	Upload(ctx context.Context, recordID string, kind ImageKind, uploads []ImageUpload) ([]string, error)
	ScheduleCleanup(recordID string, refs []string)
	Links(recordID string, refs []string) []dto.ImageLink
}

type summaryInvalidator interface {
	Invalidate(ctx context.Context)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context) {}

// LoanConfig bounds borrow declarations.
type LoanConfig struct {
	MaxRange int
}

// LoanService creates loan records and reconciles returns against them.
//
// Writes are read-modify-write against the record store with no version check:
// two returns racing on the same record can both pass validation and the later
// commit wins the record row while both events are kept.
type LoanService struct {
	store     loanStore
	images    evidenceImages
	summary   summaryInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	cfg       LoanConfig
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewLoanService constructs the service. summary and metrics may be nil.
func NewLoanService(store loanStore, images evidenceImages, summary summaryInvalidator, metrics *MetricsService, validate *validator.Validate, cfg LoanConfig, logger *zap.Logger) *LoanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if summary == nil {
		summary = noopInvalidator{}
	}
	if err := registerLoanValidations(validate); err != nil {
		logger.Error("register loan validations", zap.Error(err))
	}
	return &LoanService{
		store:     store,
		images:    images,
		summary:   summary,
		metrics:   metrics,
		validator: validate,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer("github.com/noah-isme/bulk-loan-api/internal/service"),
		now:       time.Now,
	}
}

func registerLoanValidations(v *validator.Validate) error {
	return v.RegisterValidation("organization_type", func(fl validator.FieldLevel) bool {
		return models.OrganizationType(strings.ToUpper(fl.Field().String())).Valid()
	})
}

// Preview derives the inventory a borrow declaration would produce.
func (s *LoanService) Preview(ctx context.Context, req dto.PreviewRequest) (*dto.PreviewResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startNumber and endNumber are required")
	}
	if err := s.checkRange(*req.StartNumber, *req.EndNumber); err != nil {
		return nil, err
	}
	result := inventory.Derive(*req.StartNumber, *req.EndNumber, req.MissingNumbers, req.DuplicateNumbers)
	return &dto.PreviewResponse{Books: result.Books, Total: result.Total}, nil
}

// Create records a new loan. Borrow images are stored first; if the record
// cannot be persisted they are queued for deletion.
func (s *LoanService) Create(ctx context.Context, req dto.CreateLoanRequest, uploads []ImageUpload) (_ *dto.LoanResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "loan.create")
	defer func() { endSpan(span, err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	district := strings.TrimSpace(req.District)
	if district == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "district is required")
	}
	if err := s.checkRange(*req.StartNumber, *req.EndNumber); err != nil {
		return nil, err
	}
	if err := s.images.Validate(uploads); err != nil {
		return nil, err
	}

	date, err := parseDate(req.Date, s.now())
	if err != nil {
		return nil, err
	}
	derived := inventory.Derive(*req.StartNumber, *req.EndNumber, req.MissingNumbers, req.DuplicateNumbers)
	rec := inventory.NewRecord(models.LoanRecord{
		ID:               uuid.NewString(),
		Date:             date,
		OrganizationType: models.OrganizationType(strings.ToUpper(req.OrganizationType)),
		District:         district,
		StartNumber:      *req.StartNumber,
		EndNumber:        *req.EndNumber,
		MissingNumbers:   strings.TrimSpace(req.MissingNumbers),
		DuplicateNumbers: strings.TrimSpace(req.DuplicateNumbers),
	}, derived)
	span.SetAttributes(attribute.String("loan.id", rec.ID), attribute.Int("loan.books", rec.TotalBooks))

	refs, err := s.images.Upload(ctx, rec.ID, ImageKindBorrow, uploads)
	if err != nil {
		return nil, err
	}
	rec.BorrowImages = refs

	if err := s.store.Create(ctx, &rec); err != nil {
		s.images.ScheduleCleanup(rec.ID, refs)
		return nil, appErrors.Persistence(err, "failed to create loan record")
	}

	s.summary.Invalidate(ctx)
	s.metrics.RecordLoanCreated(rec.TotalBooks)
	applog.FromContext(ctx, s.logger).Info("loan created",
		zap.String("loan_id", rec.ID),
		zap.String("district", rec.District),
		zap.Int("books", rec.TotalBooks),
		zap.Int("images", len(refs)),
	)
	resp := s.present(rec)
	return &resp, nil
}

// Get returns one record with its outstanding identifiers.
func (s *LoanService) Get(ctx context.Context, id string) (*dto.LoanResponse, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.present(*rec)
	return &resp, nil
}

// List returns one page of records, newest first.
func (s *LoanService) List(ctx context.Context, query dto.LoanListQuery) ([]dto.LoanResponse, *models.Pagination, error) {
	filter, err := buildFilter(query.Status, query.District, query.OrganizationType)
	if err != nil {
		return nil, nil, err
	}
	filter.Page = query.Page
	filter.PageSize = query.PageSize
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}

	records, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list loan records")
	}
	items := make([]dto.LoanResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, s.present(rec))
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Delete removes a record and queues its images for deletion.
func (s *LoanService) Delete(ctx context.Context, id string) error {
	rec, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "loan record not found")
		}
		return appErrors.Persistence(err, "failed to delete loan record")
	}

	refs := append([]string{}, rec.BorrowImages...)
	for _, ev := range rec.ReturnHistory {
		refs = append(refs, ev.ReturnImages...)
	}
	s.images.ScheduleCleanup(id, refs)
	s.summary.Invalidate(ctx)
	applog.FromContext(ctx, s.logger).Info("loan deleted", zap.String("loan_id", id), zap.Int("images", len(refs)))
	return nil
}

// RecordReturn marks the selected identifiers of a record as returned.
//
// Preconditions are checked before any side effect. Images are stored next; an
// upload failure aborts with UPLOAD_FAILED and leaves the record untouched. Only
// then is the reconciled record written, as one transaction.
func (s *LoanService) RecordReturn(ctx context.Context, id string, req dto.RecordReturnRequest, uploads []ImageUpload) (_ *dto.ReturnResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "loan.record_return", trace.WithAttributes(attribute.String("loan.id", id)))
	defer func() { endSpan(span, err) }()

	selected := cleanIdentifiers(req.Books)
	if len(selected) == 0 {
		s.metrics.RecordReturnRejected("empty_selection")
		return nil, appErrors.Clone(appErrors.ErrValidation, "select at least one book to return")
	}
	if err := s.images.Validate(uploads); err != nil {
		s.metrics.RecordReturnRejected("invalid_images")
		return nil, err
	}

	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.LoanStatusReturned {
		s.metrics.RecordReturnRejected("record_closed")
		return nil, appErrors.Clone(appErrors.ErrRecordClosed, "loan record is already fully returned")
	}
	if err := inventory.NewLedger(rec.CalculatedBooks, rec.ReturnedBooks).Check(selected); err != nil {
		return nil, s.rejectSelection(err)
	}

	at, err := parseDate(req.Date, s.now())
	if err != nil {
		return nil, err
	}

	refs, err := s.images.Upload(ctx, rec.ID, ImageKindReturn, uploads)
	if err != nil {
		return nil, err
	}

	updated := inventory.RecordReturn(*rec, selected, at, refs)
	patch := inventory.ReturnPatch(updated)
	if err := s.store.ApplyReturn(ctx, rec.ID, &patch); err != nil {
		s.images.ScheduleCleanup(rec.ID, refs)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "loan record not found")
		}
		return nil, appErrors.Persistence(err, "failed to record return")
	}
	updated.ReturnHistory[len(updated.ReturnHistory)-1] = patch.NewEvent

	span.SetAttributes(attribute.Int("loan.returned", patch.NewEvent.Count), attribute.String("loan.status", string(updated.Status)))
	s.summary.Invalidate(ctx)
	s.metrics.RecordReturn(updated.Status, patch.NewEvent.Count)
	applog.FromContext(ctx, s.logger).Info("return recorded",
		zap.String("loan_id", rec.ID),
		zap.String("event_id", patch.NewEvent.ID),
		zap.Int("books", patch.NewEvent.Count),
		zap.String("status", string(updated.Status)),
	)
	return &dto.ReturnResponse{Loan: s.present(updated), Event: patch.NewEvent}, nil
}

// AttachBorrowImages appends evidence images to a record's borrow photos.
func (s *LoanService) AttachBorrowImages(ctx context.Context, id string, uploads []ImageUpload) (*dto.LoanResponse, error) {
	if len(uploads) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one image is required")
	}
	if err := s.images.Validate(uploads); err != nil {
		return nil, err
	}
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	refs, err := s.images.Upload(ctx, rec.ID, ImageKindBorrow, uploads)
	if err != nil {
		return nil, err
	}
	if err := s.store.AppendBorrowImages(ctx, rec.ID, refs); err != nil {
		s.images.ScheduleCleanup(rec.ID, refs)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "loan record not found")
		}
		return nil, appErrors.Persistence(err, "failed to attach borrow images")
	}
	rec.BorrowImages = append(rec.BorrowImages, refs...)
	resp := s.present(*rec)
	return &resp, nil
}

// AttachReturnImages appends evidence images to one return event of a record.
func (s *LoanService) AttachReturnImages(ctx context.Context, id, eventID string, uploads []ImageUpload) (*dto.LoanResponse, error) {
	if len(uploads) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one image is required")
	}
	if err := s.images.Validate(uploads); err != nil {
		return nil, err
	}
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	event, ok := rec.FindReturnEvent(eventID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "return history not found")
	}
	refs, err := s.images.Upload(ctx, rec.ID, ImageKindReturn, uploads)
	if err != nil {
		return nil, err
	}
	if err := s.store.AppendReturnImages(ctx, rec.ID, eventID, refs); err != nil {
		s.images.ScheduleCleanup(rec.ID, refs)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "return history not found")
		}
		return nil, appErrors.Persistence(err, "failed to attach return images")
	}
	event.ReturnImages = append(event.ReturnImages, refs...)
	resp := s.present(*rec)
	return &resp, nil
}

func (s *LoanService) load(ctx context.Context, id string) (*models.LoanRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "loan id is required")
	}
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "loan record not found")
		}
		return nil, appErrors.Persistence(err, "failed to load loan record")
	}
	rec.Normalize()
	return rec, nil
}

func (s *LoanService) present(rec models.LoanRecord) dto.LoanResponse {
	rec.Normalize()
	outstanding := inventory.Outstanding(&rec)
	returnLinks := make(map[string][]dto.ImageLink, len(rec.ReturnHistory))
	for _, ev := range rec.ReturnHistory {
		if len(ev.ReturnImages) > 0 {
			returnLinks[ev.ID] = s.images.Links(rec.ID, ev.ReturnImages)
		}
	}
	return dto.LoanResponse{
		LoanRecord:       rec,
		OutstandingBooks: outstanding,
		OutstandingCount: len(outstanding),
		BorrowImageLinks: s.images.Links(rec.ID, rec.BorrowImages),
		ReturnImageLinks: returnLinks,
	}
}

func (s *LoanService) checkRange(start, end int) error {
	err := inventory.ValidateRange(start, end, s.cfg.MaxRange)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, inventory.ErrInvalidRange):
		return appErrors.Clone(appErrors.ErrValidation, "startNumber must be less than or equal to endNumber")
	default:
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
}

func (s *LoanService) rejectSelection(err error) error {
	var idErr *inventory.IdentifierError
	if !errors.As(err, &idErr) {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	switch {
	case errors.Is(err, inventory.ErrUnknownIdentifier):
		s.metrics.RecordReturnRejected("unknown_identifier")
		return appErrors.Clone(appErrors.ErrUnknownIdentifier, fmt.Sprintf("book %s is not part of this loan", idErr.Identifier))
	default:
		s.metrics.RecordReturnRejected("already_returned")
		return appErrors.Clone(appErrors.ErrAlreadyReturned, fmt.Sprintf("book %s has already been returned", idErr.Identifier))
	}
}

func buildFilter(status, district, orgType string) (models.LoanFilter, error) {
	filter := models.LoanFilter{District: strings.TrimSpace(district)}
	if status = strings.ToLower(strings.TrimSpace(status)); status != "" && status != "all" {
		st := models.LoanStatusFilter(status)
		if st != models.LoanStatusFilterActive && !models.LoanStatus(status).Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", status))
		}
		filter.Status = st
	}
	if orgType = strings.ToUpper(strings.TrimSpace(orgType)); orgType != "" {
		ot := models.OrganizationType(orgType)
		if !ot.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown organization type %q", orgType))
		}
		filter.OrganizationType = ot
	}
	return filter, nil
}

// parseDate accepts YYYY-MM-DD or RFC3339 and falls back to now for empty input.
func parseDate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD or RFC3339")
}

func cleanIdentifiers(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, id := range raw {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s failed %s validation", lowerFirst(fe.Field()), fe.Tag()))
	}
	return appErrors.Clone(appErrors.ErrValidation, err.Error())
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
