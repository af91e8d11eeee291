// Package domain holds the clock-in photo evidence types.
package domain

import (
	"errors"
	"time"
)

var (
	ErrPhotoNotFound    = errors.New("image not found")
	ErrInvalidSessionID = errors.New("invalid attendance id")
	ErrEmptyPhoto       = errors.New("image is empty")
	ErrUnsupportedType  = errors.New("only JPEG and PNG images are allowed")
	ErrTooLarge         = errors.New("image exceeds the maximum upload size")
)

// Allowed media types for clock-in photos.
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
)

// Upload is a photo as received from the client, before sniffing and normalization.
type Upload struct {
	Filename     string
	DeclaredType string
	Data         []byte
}

// Photo is the stored evidence for one session's clock-in.
// Data may be nil when the photo was loaded as metadata only.
type Photo struct {
	SessionID   string
	ContentType string
	Data        []byte
	Width       int
	Height      int
	CreatedAt   time.Time
}
