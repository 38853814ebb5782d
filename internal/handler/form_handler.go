package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baudigital/bauform-api/internal/dto"
	"github.com/baudigital/bauform-api/internal/models"
	"github.com/baudigital/bauform-api/internal/service"
	appErrors "github.com/baudigital/bauform-api/pkg/errors"
	"github.com/baudigital/bauform-api/pkg/response"
)

type formService interface {
	Load(ctx context.Context, id string, actor *models.JWTClaims) (*dto.FormResponse, error)
	Save(ctx context.Context, id string, req dto.SaveFormRequest, uploads []service.SlotUpload, actor *models.JWTClaims) (*dto.FormResponse, error)
	Submit(ctx context.Context, id string, actor *models.JWTClaims) (*dto.FormResponse, error)
	DownloadURL(ctx context.Context, id, slot string, actor *models.JWTClaims) (*dto.DownloadResponse, error)
	List(ctx context.Context, actor *models.JWTClaims) ([]dto.FormListItem, error)
}

type uploadCounter interface {
	CountUpload(slot string)
}

// FormHandler exposes the form lifecycle endpoints.
type FormHandler struct {
	service formService
	metrics uploadCounter
}

// NewFormHandler constructs the handler.
func NewFormHandler(service formService, metrics uploadCounter) *FormHandler {
	return &FormHandler{service: service, metrics: metrics}
}

// List godoc
// @Summary List the caller's forms
// @Tags Forms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /forms [get]
func (h *FormHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.service.List(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}

// Get godoc
// @Summary Load one form
// @Description The id "new" returns the default-shaped record without a store read.
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID or the literal new"
// @Success 200 {object} response.Envelope
// @Router /forms/{id} [get]
func (h *FormHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	form, err := h.service.Load(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, form)
}

// Save godoc
// @Summary Checkpoint-save a form
// @Description Always writes status draft. Attachment payloads ride as multipart parts named after their slot.
// @Tags Forms
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Form ID or the literal new"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Router /forms/{id} [put]
func (h *FormHandler) Save(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SaveFormRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid form payload"))
		return
	}

	uploads, closers, err := collectUploads(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer func() {
		for _, closer := range closers {
			_ = closer.Close()
		}
	}()

	id := c.Param("id")
	form, err := h.service.Save(c.Request.Context(), id, req, uploads, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		for _, upload := range uploads {
			h.metrics.CountUpload(string(upload.Slot))
		}
	}
	if id == models.NewFormID {
		response.Created(c, form)
		return
	}
	response.JSON(c, http.StatusOK, form)
}

// Submit godoc
// @Summary Submit a form
// @Description Locks the form irreversibly; no reopen operation exists.
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/submit [post]
func (h *FormHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	form, err := h.service.Submit(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, form)
}

// Download godoc
// @Summary Resolve a short-lived download URL for one attachment slot
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID"
// @Param slot path string true "Attachment slot"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/files/{slot}/download [get]
func (h *FormHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	download, err := h.service.DownloadURL(c.Request.Context(), c.Param("id"), c.Param("slot"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, download)
}

type closer interface{ Close() error }

// collectUploads pulls at most one multipart file per known slot.
func collectUploads(c *gin.Context) ([]service.SlotUpload, []closer, error) {
	uploads := make([]service.SlotUpload, 0, len(models.FormSlots))
	closers := make([]closer, 0, len(models.FormSlots))
	for _, slot := range models.FormSlots {
		fileHeader, err := c.FormFile(string(slot.Name))
		if err != nil {
			continue
		}
		src, err := fileHeader.Open()
		if err != nil {
			for _, cl := range closers {
				_ = cl.Close()
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload")
		}
		closers = append(closers, src)
		uploads = append(uploads, service.SlotUpload{
			Slot:        slot.Name,
			FileName:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			SizeBytes:   fileHeader.Size,
			Content:     src,
		})
	}
	return uploads, closers, nil
}
