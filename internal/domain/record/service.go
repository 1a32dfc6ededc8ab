package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medrecords/medrecords/internal/domain/profile"
	"github.com/medrecords/medrecords/internal/platform/auth"
	"github.com/medrecords/medrecords/internal/platform/blobstore"
)

type UploadInput struct {
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	FileName    string
	ContentType string
	Notes       string
	Content     io.Reader
}

type Service struct {
	repo     Repository
	profiles profile.Repository
	blobs    blobstore.BlobStore
	logger   zerolog.Logger
}

func NewService(repo Repository, profiles profile.Repository, blobs blobstore.BlobStore, logger zerolog.Logger) *Service {
	return &Service{repo: repo, profiles: profiles, blobs: blobs, logger: logger}
}

// Upload validates the submission, stores the file content, then writes the
// record row. If the row insert fails the stored blob is deleted again so
// storage and database stay consistent; a failed cleanup is logged for
// manual sweeping.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Record, error) {
	if in.PatientID == uuid.Nil {
		return nil, fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrValidation)
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if !AllowedExtensions[ext] {
		return nil, fmt.Errorf("%w: file type %q is not allowed", ErrValidation, ext)
	}

	target, err := s.profiles.GetByID(ctx, in.PatientID)
	if err != nil {
		if errors.Is(err, profile.ErrProfileMissing) {
			return nil, fmt.Errorf("%w: unknown patient", ErrValidation)
		}
		return nil, fmt.Errorf("resolving patient: %w", err)
	}
	if target.Role != profile.RolePatient {
		return nil, fmt.Errorf("%w: records can only be uploaded for patients", ErrValidation)
	}

	path := blobstore.NewObjectPath(fileName, time.Now())
	blob, err := s.blobs.Upload(ctx, path, in.ContentType, in.Content)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("storing file: %w", err)
	}

	rec := &Record{
		ID:        uuid.New(),
		PatientID: in.PatientID,
		DoctorID:  in.DoctorID,
		FileName:  fileName,
		FileURL:   blob.Path,
	}
	if in.ContentType != "" {
		ct := in.ContentType
		rec.FileType = &ct
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		rec.Notes = &notes
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		if delErr := s.blobs.Delete(ctx, blob.Path); delErr != nil {
			s.logger.Error().
				Str("path", blob.Path).
				AnErr("insert_error", err).
				AnErr("cleanup_error", delErr).
				Msg("orphaned blob after failed record insert")
		}
		return nil, fmt.Errorf("creating record: %w", err)
	}

	s.logger.Info().
		Str("record_id", rec.ID.String()).
		Str("patient_id", rec.PatientID.String()).
		Str("doctor_id", rec.DoctorID.String()).
		Int64("size", blob.Size).
		Msg("record uploaded")

	return rec, nil
}

// ListForPatient returns a patient's records, newest upload first.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Record, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// Download opens a record's file for the caller. Only the patient the
// record belongs to and the doctor who uploaded it may read it; anyone
// else sees the record as absent.
func (s *Service) Download(ctx context.Context, recordID uuid.UUID, principal *auth.Principal) (io.ReadCloser, *Record, error) {
	if principal == nil {
		return nil, nil, auth.ErrNoSession
	}

	rec, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}
	if rec.PatientID != principal.ID && rec.DoctorID != principal.ID {
		return nil, nil, ErrRecordNotFound
	}

	rc, _, err := s.blobs.Download(ctx, rec.FileURL)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			s.logger.Error().
				Str("record_id", rec.ID.String()).
				Str("path", rec.FileURL).
				Msg("record file missing from storage")
			return nil, nil, ErrRecordNotFound
		}
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	return rc, rec, nil
}
