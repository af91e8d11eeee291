// Package service validates, normalizes and serves clock-in photos.
package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"attendance-tracker/backend/internal/photo/domain"
	photorepo "attendance-tracker/backend/internal/photo/repository"
)

// Limits bounds what Prepare accepts and stores.
type Limits struct {
	// MaxBytes caps the encoded upload size.
	MaxBytes int64
	// MaxPixels caps width*height, checked from the image header before decoding.
	MaxPixels int64
	// MaxDimension downscales photos whose longer side exceeds it; 0 keeps originals.
	MaxDimension int
}

// Service is the image evidence store.
type Service struct {
	repo         photorepo.Repository
	maxBytes     int64
	maxPixels    int64
	maxDimension int
	now          func() time.Time
}

// NewService returns a photo service. Zero limits are not enforced.
func NewService(repo photorepo.Repository, limits Limits) *Service {
	return &Service{
		repo:         repo,
		maxBytes:     limits.MaxBytes,
		maxPixels:    limits.MaxPixels,
		maxDimension: limits.MaxDimension,
		now:          time.Now,
	}
}

// MaxBytes returns the upload size limit.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Prepare sniffs the upload's real media type and rejects anything but JPEG and PNG. Images whose
// header exceeds the pixel cap are rejected before decoding; oversized ones are downscaled.
// A nil upload yields a nil photo. The returned photo has no session id yet.
func (s *Service) Prepare(u *domain.Upload) (*domain.Photo, error) {
	if u == nil {
		return nil, nil
	}
	if len(u.Data) == 0 {
		return nil, domain.ErrEmptyPhoto
	}
	if s.maxBytes > 0 && int64(len(u.Data)) > s.maxBytes {
		return nil, domain.ErrTooLarge
	}
	mt := mimetype.Detect(u.Data)
	var format imaging.Format
	switch {
	case mt.Is(domain.ContentTypeJPEG):
		format = imaging.JPEG
	case mt.Is(domain.ContentTypePNG):
		format = imaging.PNG
	default:
		return nil, fmt.Errorf("%w: got %s", domain.ErrUnsupportedType, mt.String())
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(u.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedType, err)
	}
	if s.maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > s.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", domain.ErrTooLarge, cfg.Width, cfg.Height, s.maxPixels)
	}
	img, err := imaging.Decode(bytes.NewReader(u.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedType, err)
	}

	p := &domain.Photo{
		ContentType: contentType(format),
		Data:        u.Data,
		CreatedAt:   s.now().UTC(),
	}
	if s.needsResize(img.Bounds()) {
		resized := imaging.Fit(img, s.maxDimension, s.maxDimension, imaging.Lanczos)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
			return nil, fmt.Errorf("photo: encode resized: %w", err)
		}
		p.Data = buf.Bytes()
		img = resized
	}
	p.Width, p.Height = img.Bounds().Dx(), img.Bounds().Dy()
	return p, nil
}

func (s *Service) needsResize(b image.Rectangle) bool {
	return s.maxDimension > 0 && (b.Dx() > s.maxDimension || b.Dy() > s.maxDimension)
}

func contentType(f imaging.Format) string {
	if f == imaging.PNG {
		return domain.ContentTypePNG
	}
	return domain.ContentTypeJPEG
}

// Retrieve returns the session's photo with its bytes, or domain.ErrPhotoNotFound.
func (s *Service) Retrieve(ctx context.Context, sessionID string) (*domain.Photo, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	p, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if p == nil || len(p.Data) == 0 {
		return nil, domain.ErrPhotoNotFound
	}
	return p, nil
}

// ValidateSessionID returns domain.ErrInvalidSessionID unless id is a UUID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrInvalidSessionID
	}
	return nil
}
