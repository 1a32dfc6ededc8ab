// Package record implements the medical document exchange itself: doctors
// upload files for patients, patients list and download what was shared
// with them.
package record

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrValidation     = errors.New("validation failed")
)

// AllowedExtensions lists the file extensions accepted for upload.
var AllowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Record maps to the medical_records table. DoctorName is joined in from
// the uploader's profile and never written.
type Record struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID   uuid.UUID `db:"doctor_id" json:"doctor_id"`
	FileName   string    `db:"file_name" json:"file_name"`
	FileURL    string    `db:"file_url" json:"file_url"`
	FileType   *string   `db:"file_type" json:"file_type,omitempty"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
	DoctorName string    `db:"-" json:"doctor_name,omitempty"`
}
