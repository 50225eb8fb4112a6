package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"path"
	"strings"
	"time"

	"formpilot/internal/config"
	"formpilot/internal/errors"
	"formpilot/internal/store"
	"formpilot/internal/types"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
)

const (
	defaultUploadExpiry = 15 * time.Minute
	defaultReadExpiry   = 60 * time.Minute
	defaultPublicBase   = "https://storage.googleapis.com"
)

// ResumeStore is the persistence the resume flow needs.
type ResumeStore interface {
	CreateResume(ctx context.Context, r types.Resume) (*types.Resume, error)
	ResumeByFileID(ctx context.Context, userID int64, fileID string) (*types.Resume, error)
	ListResumes(ctx context.Context, userID int64) ([]types.Resume, error)
	DeleteResume(ctx context.Context, userID int64, fileID string) error
}

// UploadTicket is returned to the client for a direct upload.
type UploadTicket struct {
	UploadURL string `json:"uploadUrl"`
	FileID    string `json:"fileId"`
	ResumeURL string `json:"resumeUrl"`
}

// ResumeService issues signed URLs for resume objects and keeps the resume
// rows in sync.
type ResumeService struct {
	objects      ObjectStore
	store        ResumeStore
	uploadExpiry time.Duration
	readExpiry   time.Duration
	publicBase   string
	logger       *errors.Logger
	now          func() time.Time
	suffix       func() string
}

// NewResumeService creates the resume service.
func NewResumeService(cfg config.StorageConfig, objects ObjectStore, st ResumeStore, logger *errors.Logger) *ResumeService {
	s := &ResumeService{
		objects:      objects,
		store:        st,
		uploadExpiry: cfg.UploadExpiry,
		readExpiry:   cfg.ReadExpiry,
		publicBase:   strings.TrimRight(cfg.PublicBaseURL, "/"),
		logger:       logger,
		now:          time.Now,
		suffix:       func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:12] },
	}
	if s.uploadExpiry <= 0 {
		s.uploadExpiry = defaultUploadExpiry
	}
	if s.readExpiry <= 0 {
		s.readExpiry = defaultReadExpiry
	}
	if s.publicBase == "" {
		s.publicBase = defaultPublicBase
	}
	return s
}

// ObjectName returns the object name for a new upload by userID.
func (s *ResumeService) ObjectName(userID int64, fileName string) string {
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("resumes/%d/%d-%s.%s", userID, s.now().UnixMilli(), s.suffix(), strings.ToLower(ext))
}

// CreateUploadURL signs a PUT URL for a new object and records the resume.
func (s *ResumeService) CreateUploadURL(ctx context.Context, userID int64, fileName, contentType string) (*UploadTicket, error) {
	if fileName == "" || contentType == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Missing required parameters: fileName and contentType are required", nil)
	}

	object := s.ObjectName(userID, fileName)
	url, err := s.objects.SignedURL(object, &gcs.SignedURLOptions{
		Scheme:      gcs.SigningSchemeV4,
		Method:      "PUT",
		ContentType: contentType,
		Expires:     s.now().Add(s.uploadExpiry),
	})
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed, "Failed to generate upload URL", err).
			WithContext("object", object)
	}

	resumeURL := s.publicBase + "/" + s.objects.Bucket() + "/" + object
	if _, err := s.store.CreateResume(ctx, types.Resume{
		UserID:     userID,
		ResumeName: fileName,
		FileID:     object,
		ResumeURL:  resumeURL,
	}); err != nil {
		return nil, errors.NewPersistenceError(errors.ErrCodePersistenceFailed, "Failed to store resume", err)
	}

	s.logger.Info("Resume upload URL issued", "user_id", userID, "object", object)
	return &UploadTicket{UploadURL: url, FileID: object, ResumeURL: resumeURL}, nil
}

// SignedReadURL returns a GET URL for a resume userID owns.
func (s *ResumeService) SignedReadURL(ctx context.Context, userID int64, fileID string) (string, error) {
	if _, err := s.owned(ctx, userID, fileID); err != nil {
		return "", err
	}
	url, err := s.objects.SignedURL(fileID, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: s.now().Add(s.readExpiry),
	})
	if err != nil {
		return "", errors.NewStorageError(errors.ErrCodeStorageFailed, "Failed to generate read URL", err).
			WithContext("object", fileID)
	}
	return url, nil
}

// List returns the user's resumes, newest first.
func (s *ResumeService) List(ctx context.Context, userID int64) ([]types.Resume, error) {
	list, err := s.store.ListResumes(ctx, userID)
	if err != nil {
		return nil, errors.NewPersistenceError(errors.ErrCodePersistenceFailed, "Failed to list files", err)
	}
	return list, nil
}

// Delete removes the object and then the row of a resume userID owns.
func (s *ResumeService) Delete(ctx context.Context, userID int64, fileID string) error {
	if _, err := s.owned(ctx, userID, fileID); err != nil {
		return err
	}
	if err := s.objects.Delete(ctx, fileID); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "Failed to delete file", err).
			WithContext("object", fileID)
	}
	if err := s.store.DeleteResume(ctx, userID, fileID); err != nil && !stderrors.Is(err, store.ErrNotFound) {
		return errors.NewPersistenceError(errors.ErrCodePersistenceFailed, "Failed to delete resume", err)
	}
	s.logger.Info("Resume deleted", "user_id", userID, "object", fileID)
	return nil
}

func (s *ResumeService) owned(ctx context.Context, userID int64, fileID string) (*types.Resume, error) {
	r, err := s.store.ResumeByFileID(ctx, userID, fileID)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "File not found or access denied", nil)
	}
	if err != nil {
		return nil, errors.NewPersistenceError(errors.ErrCodePersistenceFailed, "Failed to look up resume", err)
	}
	return r, nil
}
