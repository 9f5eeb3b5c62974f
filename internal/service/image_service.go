package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/bulk-loan-api/internal/dto"
	appErrors "github.com/noah-isme/bulk-loan-api/pkg/errors"
	"github.com/noah-isme/bulk-loan-api/pkg/jobs"
	"github.com/noah-isme/bulk-loan-api/pkg/storage"
)

// ImageKind tags what an evidence image documents.
type ImageKind string

const (
	ImageKindBorrow ImageKind = "borrow"
	ImageKindReturn ImageKind = "return"

	// JobTypeImageCleanup deletes stored images no record references.
	JobTypeImageCleanup = "image_cleanup"
)

// ImageUpload is one incoming file. Open is called once, during Upload.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type imageStore interface {
	SaveStream(ctx context.Context, ref string, r io.Reader) (string, error)
	Open(ref string) (*os.File, error)
	Delete(ref string) error
}

type imageSigner interface {
	Generate(recordID, ref string) (string, time.Time, error)
	Parse(token string) (recordID, ref string, expiresAt time.Time, err error)
}

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

// ImageConfig bounds uploads and shapes download URLs.
type ImageConfig struct {
	APIPrefix       string
	MaxFileSize     int64
	MaxFilesPerCall int
	AllowedMIMEs    []string
}

// ImageService stores evidence images and hands out signed download links.
type ImageService struct {
	store   imageStore
	signer  imageSigner
	cleanup jobEnqueuer
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ImageConfig
	allowed map[string]struct{}
}

// NewImageService constructs the service.
func NewImageService(store imageStore, signer imageSigner, metrics *MetricsService, cfg ImageConfig, logger *zap.Logger) *ImageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFilesPerCall <= 0 {
		cfg.MaxFilesPerCall = 10
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, m := range cfg.AllowedMIMEs {
		allowed[strings.ToLower(m)] = struct{}{}
	}
	return &ImageService{store: store, signer: signer, metrics: metrics, logger: logger, cfg: cfg, allowed: allowed}
}

// UseCleanupQueue routes orphan deletion through a background queue.
func (s *ImageService) UseCleanupQueue(q jobEnqueuer) {
	s.cleanup = q
}

// Validate checks count, size and type of a batch without touching storage.
func (s *ImageService) Validate(uploads []ImageUpload) error {
	if len(uploads) > s.cfg.MaxFilesPerCall {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d images per request", s.cfg.MaxFilesPerCall))
	}
	for _, u := range uploads {
		if u.Open == nil {
			return appErrors.Clone(appErrors.ErrValidation, "image payload missing")
		}
		if s.cfg.MaxFileSize > 0 && u.Size > s.cfg.MaxFileSize {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("image %s exceeds %d bytes", u.Filename, s.cfg.MaxFileSize))
		}
		if len(s.allowed) > 0 {
			if _, ok := s.allowed[contentType(u)]; !ok {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("image %s has unsupported type", u.Filename))
			}
		}
	}
	return nil
}

// Upload stores every image of the batch under the record and returns their references.
// Any storage failure deletes what was already stored and yields UPLOAD_FAILED, so callers
// can abort before touching the record.
func (s *ImageService) Upload(ctx context.Context, recordID string, kind ImageKind, uploads []ImageUpload) ([]string, error) {
	if len(uploads) == 0 {
		return []string{}, nil
	}
	if err := s.Validate(uploads); err != nil {
		return nil, err
	}

	refs := make([]string, 0, len(uploads))
	for _, u := range uploads {
		ref, err := s.save(ctx, recordID, kind, u)
		if err != nil {
			s.discard(refs)
			s.metrics.RecordImageUpload(string(kind), false, 0)
			s.logger.Warn("image upload failed",
				zap.String("record_id", recordID),
				zap.String("kind", string(kind)),
				zap.String("filename", u.Filename),
				zap.Error(err),
			)
			return nil, appErrors.Upload(err, "failed to store image "+u.Filename)
		}
		refs = append(refs, ref)
	}
	s.metrics.RecordImageUpload(string(kind), true, len(refs))
	return refs, nil
}

func (s *ImageService) save(ctx context.Context, recordID string, kind ImageKind, u ImageUpload) (string, error) {
	body, err := u.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer body.Close()

	ref := path.Join("loans", recordID, string(kind), uuid.NewString()+extension(u))
	var reader io.Reader = body
	if s.cfg.MaxFileSize > 0 {
		reader = io.LimitReader(body, s.cfg.MaxFileSize+1)
	}
	counted := &countingReader{r: reader}
	stored, err := s.store.SaveStream(ctx, ref, counted)
	if err != nil {
		return "", err
	}
	if s.cfg.MaxFileSize > 0 && counted.n > s.cfg.MaxFileSize {
		_ = s.store.Delete(stored)
		return "", fmt.Errorf("image exceeds %d bytes", s.cfg.MaxFileSize)
	}
	return stored, nil
}

// ScheduleCleanup queues deletion of references no record points at.
// Without a running queue the deletion happens inline.
func (s *ImageService) ScheduleCleanup(recordID string, refs []string) {
	if len(refs) == 0 {
		return
	}
	if s.cleanup != nil {
		err := s.cleanup.TryEnqueue(jobs.Job{
			ID:      uuid.NewString(),
			Type:    JobTypeImageCleanup,
			Payload: append([]string{}, refs...),
		})
		if err == nil {
			return
		}
		s.logger.Warn("cleanup queue unavailable, deleting inline", zap.String("record_id", recordID), zap.Error(err))
	}
	s.discard(refs)
}

// HandleCleanupJob is the jobs.Handler for JobTypeImageCleanup.
func (s *ImageService) HandleCleanupJob(_ context.Context, job jobs.Job) error {
	refs, ok := job.Payload.([]string)
	if !ok {
		return fmt.Errorf("cleanup job %s: unexpected payload %T", job.ID, job.Payload)
	}
	// Delete ignores missing files, so a retry may safely replay the whole batch.
	var errs []error
	for _, ref := range refs {
		if err := s.store.Delete(ref); err != nil {
			errs = append(errs, err)
			s.metrics.RecordImageCleanup(false)
			continue
		}
		s.metrics.RecordImageCleanup(true)
	}
	return errors.Join(errs...)
}

func (s *ImageService) discard(refs []string) {
	for _, ref := range refs {
		if err := s.store.Delete(ref); err != nil {
			s.metrics.RecordImageCleanup(false)
			s.logger.Warn("image cleanup failed", zap.String("ref", ref), zap.Error(err))
			continue
		}
		s.metrics.RecordImageCleanup(true)
	}
}

// Links signs download URLs for refs owned by recordID.
func (s *ImageService) Links(recordID string, refs []string) []dto.ImageLink {
	links := make([]dto.ImageLink, 0, len(refs))
	for _, ref := range refs {
		token, expiresAt, err := s.signer.Generate(recordID, ref)
		if err != nil {
			s.logger.Warn("sign image url failed", zap.String("ref", ref), zap.Error(err))
			continue
		}
		links = append(links, dto.ImageLink{
			Ref:       ref,
			URL:       strings.TrimRight(s.cfg.APIPrefix, "/") + "/images/download?token=" + url.QueryEscape(token),
			ExpiresAt: expiresAt,
		})
	}
	return links
}

// OpenSigned validates a download token and opens the image it names.
func (s *ImageService) OpenSigned(token string) (*os.File, string, error) {
	_, ref, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	f, err := s.store.Open(ref)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "image not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open image")
	}
	return f, ref, nil
}

func contentType(u ImageUpload) string {
	ct := u.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = mime.TypeByExtension(strings.ToLower(path.Ext(u.Filename)))
	}
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mediaType
	}
	return strings.ToLower(ct)
}

func extension(u ImageUpload) string {
	if ext := strings.ToLower(path.Ext(u.Filename)); ext != "" && len(ext) <= 6 {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType(u)); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
