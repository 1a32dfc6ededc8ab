package record

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medrecords/medrecords/internal/domain/profile"
	"github.com/medrecords/medrecords/internal/platform/auth"
	"github.com/medrecords/medrecords/internal/platform/blobstore"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/records", h.UploadRecord, auth.RequireRole(string(profile.RoleDoctor)))
	api.GET("/records", h.ListOwnRecords, auth.RequireRole(string(profile.RolePatient)))
	api.GET("/records/:id/download", h.DownloadRecord, auth.RequireSession())
}

// UploadRecord accepts a multipart form with patient_id, file and optional
// notes. Doctors only.
func (h *Handler) UploadRecord(c echo.Context) error {
	principal := auth.PrincipalFromContext(c.Request().Context())

	patientID, err := uuid.Parse(c.FormValue("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	rec, err := h.svc.Upload(c.Request().Context(), UploadInput{
		PatientID:   patientID,
		DoctorID:    principal.ID,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Notes:       c.FormValue("notes"),
		Content:     src,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, blobstore.ErrBlobTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, rec)
}

// ListOwnRecords returns the calling patient's records, newest first.
func (h *Handler) ListOwnRecords(c echo.Context) error {
	principal := auth.PrincipalFromContext(c.Request().Context())

	records, err := h.svc.ListForPatient(c.Request().Context(), principal.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if records == nil {
		records = []*Record{}
	}
	return c.JSON(http.StatusOK, records)
}

// DownloadRecord streams the record's file back under its original name.
func (h *Handler) DownloadRecord(c echo.Context) error {
	principal := auth.PrincipalFromContext(c.Request().Context())

	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record id")
	}

	rc, rec, err := h.svc.Download(c.Request().Context(), recordID, principal)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "record not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer rc.Close()

	contentType := "application/octet-stream"
	if rec.FileType != nil && *rec.FileType != "" {
		contentType = *rec.FileType
	}
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, rec.FileName))
	return c.Stream(http.StatusOK, contentType, rc)
}
