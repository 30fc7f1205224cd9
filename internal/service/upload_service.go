package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/modernbilling/billing-api-go/internal/domain"
)

var uploadTracer = otel.Tracer("service/upload")

var allowedUploadExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".pdf":  true,
}

// UploadService stores uploaded files on local disk under random names.
type UploadService struct {
	dir     string
	maxSize int64
	logger  *zap.Logger
}

// NewUploadService creates an upload service rooted at dir.
func NewUploadService(dir string, maxSize int64, logger *zap.Logger) *UploadService {
	return &UploadService{dir: dir, maxSize: maxSize, logger: logger}
}

// Save writes the upload to disk. The stored name is a fresh UUID with the
// original extension, so user-supplied names never touch the filesystem.
func (s *UploadService) Save(ctx context.Context, originalName string, r io.Reader) (*domain.UploadResult, error) {
	_, span := uploadTracer.Start(ctx, "UploadService.Save")
	defer span.End()

	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedUploadExts[ext] {
		return nil, &domain.ErrValidation{Field: "file", Message: fmt.Sprintf("file type %q is not allowed", ext)}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.New().String() + ext
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	// Read one byte past the limit to distinguish "at limit" from "over".
	written, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if written > s.maxSize {
		os.Remove(path)
		return nil, &domain.ErrValidation{Field: "file", Message: fmt.Sprintf("file exceeds %d bytes", s.maxSize)}
	}

	s.logger.Info("file uploaded",
		zap.String("name", name),
		zap.Int64("size", written),
	)

	return &domain.UploadResult{
		FileName: name,
		URL:      "/uploads/" + name,
		Size:     written,
	}, nil
}
