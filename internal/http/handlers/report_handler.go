package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/littypicky-backend/internal/http/dto"
	"github.com/ignatzorin/littypicky-backend/internal/http/response"
	"github.com/ignatzorin/littypicky-backend/internal/logger"
	"github.com/ignatzorin/littypicky-backend/internal/storage"
	"github.com/ignatzorin/littypicky-backend/internal/usecase/lifecycle"
	"github.com/ignatzorin/littypicky-backend/internal/validation"
)

// ReportHandler обслуживает жизненный цикл отчёта.
type ReportHandler struct {
	submit  *lifecycle.SubmitReportUseCase
	get     *lifecycle.GetReportUseCase
	claim   *lifecycle.ClaimReportUseCase
	clear   *lifecycle.ClearReportUseCase
	release *lifecycle.ReleaseClaimUseCase
	photos  *storage.PhotoStorage
}

// NewReportHandler создаёт хэндлер; photos == nil отключает загрузку фото файлом.
func NewReportHandler(deps lifecycle.Deps, photos *storage.PhotoStorage) *ReportHandler {
	return &ReportHandler{
		submit:  lifecycle.NewSubmitReportUseCase(deps),
		get:     lifecycle.NewGetReportUseCase(deps),
		claim:   lifecycle.NewClaimReportUseCase(deps),
		clear:   lifecycle.NewClearReportUseCase(deps),
		release: lifecycle.NewReleaseClaimUseCase(deps),
		photos:  photos,
	}
}

// Submit POST /reports
func (h *ReportHandler) Submit(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "latitude и longitude обязательны")
		return
	}
	if err := validation.ValidateReport(validation.ReportInput{
		Description: req.Description,
		PhotoBefore: req.PhotoBefore,
		City:        req.City,
		Country:     req.Country,
	}); err != nil {
		response.Error(c, err)
		return
	}

	report, err := h.submit.Execute(c.Request.Context(), lifecycle.SubmitReportInput{
		ReporterID:    userID,
		EmailVerified: emailVerified(c),
		Latitude:      *req.Latitude,
		Longitude:     *req.Longitude,
		Description:   req.Description,
		PhotoBefore:   req.PhotoBefore,
		City:          req.City,
		Country:       req.Country,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToReportResponse(report))
}

// Get GET /reports/:id
func (h *ReportHandler) Get(c *gin.Context) {
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	report, err := h.get.Execute(c.Request.Context(), reportID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToReportResponse(report))
}

// Claim POST /reports/:id/claim
func (h *ReportHandler) Claim(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	report, err := h.claim.Execute(c.Request.Context(), reportID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToReportResponse(report))
}

// Clear POST /reports/:id/clear
// Принимает JSON {"photo_ref": "..."} или multipart с полем photo.
func (h *ReportHandler) Clear(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	var (
		photoRef string
		uploaded bool
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		ref, ok := h.storePhoto(c, reportID, userID)
		if !ok {
			return
		}
		photoRef, uploaded = ref, true
	} else {
		var req dto.ClearReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "photo_ref обязателен")
			return
		}
		if err := validation.ValidatePhotoRef(req.PhotoRef); err != nil {
			response.Error(c, err)
			return
		}
		photoRef = req.PhotoRef
	}

	result, err := h.clear.Execute(c.Request.Context(), lifecycle.ClearReportInput{
		ReportID: reportID,
		ActorID:  userID,
		PhotoRef: photoRef,
	})
	if err != nil {
		if uploaded {
			h.discardPhoto(photoRef)
		}
		response.Error(c, err)
		return
	}

	resp := dto.ClearReportResponse{
		Report:        dto.ToReportResponse(result.Report),
		PointsAwarded: result.PointsAwarded,
	}
	if result.Score != nil {
		resp.CurrentStreak = result.Score.CurrentStreak
	}
	response.Success(c, resp)
}

// Release POST /reports/:id/release
func (h *ReportHandler) Release(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	reportID, ok := reportIDParam(c)
	if !ok {
		return
	}

	report, err := h.release.Execute(c.Request.Context(), reportID, &userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToReportResponse(report))
}

func (h *ReportHandler) storePhoto(c *gin.Context, reportID, userID uuid.UUID) (string, bool) {
	if h.photos == nil {
		response.BadRequest(c, "загрузка фото файлом отключена, передайте photo_ref")
		return "", false
	}

	header, err := c.FormFile("photo")
	if err != nil {
		response.BadRequest(c, "поле photo обязательно")
		return "", false
	}
	if header.Size > h.photos.MaxUploadBytes() {
		response.BadRequest(c, "размер файла превышает допустимый")
		return "", false
	}

	photo, err := openPhoto(header)
	if err != nil {
		response.BadRequest(c, err.Error())
		return "", false
	}
	defer photo.file.Close()

	ref, _, err := h.photos.SaveAfterPhoto(c.Request.Context(), reportID, userID, photo.extension, photo.file)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			response.BadRequest(c, "размер файла превышает допустимый")
			return "", false
		}
		response.Error(c, err)
		return "", false
	}
	return ref, true
}

// discardPhoto удаляет загруженный файл, если уборка не была зафиксирована.
func (h *ReportHandler) discardPhoto(ref string) {
	if err := h.photos.Delete(context.Background(), ref); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"photo_ref": ref,
			"error":     err.Error(),
		}).Warn("Failed to delete orphaned photo")
	}
}
