package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baudigital/bauform-api/internal/dto"
	"github.com/baudigital/bauform-api/internal/middleware"
	"github.com/baudigital/bauform-api/internal/models"
	"github.com/baudigital/bauform-api/internal/service"
	appErrors "github.com/baudigital/bauform-api/pkg/errors"
)

type formServiceMock struct {
	loadResp     *dto.FormResponse
	saveResp     *dto.FormResponse
	submitResp   *dto.FormResponse
	downloadResp *dto.DownloadResponse
	listResp     []dto.FormListItem
	err          error

	lastSaveID  string
	lastUploads []service.SlotUpload
	lastReq     dto.SaveFormRequest
}

func (m *formServiceMock) Load(ctx context.Context, id string, actor *models.JWTClaims) (*dto.FormResponse, error) {
	return m.loadResp, m.err
}

func (m *formServiceMock) Save(ctx context.Context, id string, req dto.SaveFormRequest, uploads []service.SlotUpload, actor *models.JWTClaims) (*dto.FormResponse, error) {
	m.lastSaveID = id
	m.lastReq = req
	m.lastUploads = uploads
	return m.saveResp, m.err
}

func (m *formServiceMock) Submit(ctx context.Context, id string, actor *models.JWTClaims) (*dto.FormResponse, error) {
	return m.submitResp, m.err
}

func (m *formServiceMock) DownloadURL(ctx context.Context, id, slot string, actor *models.JWTClaims) (*dto.DownloadResponse, error) {
	return m.downloadResp, m.err
}

func (m *formServiceMock) List(ctx context.Context, actor *models.JWTClaims) ([]dto.FormListItem, error) {
	return m.listResp, m.err
}

type uploadCounterMock struct {
	slots []string
}

func (m *uploadCounterMock) CountUpload(slot string) {
	m.slots = append(m.slots, slot)
}

func formResponse(id string) *dto.FormResponse {
	form := models.NewForm()
	form.ID = id
	form.UserID = "user-1"
	return &dto.FormResponse{Form: form, NetArea: form.NetArea()}
}

func withClaims(c *gin.Context) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Email: "user@example.com"})
}

func multipartRequest(t *testing.T, fields map[string]string, fileSlot, fileName string, payload []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileSlot != "" {
		part, err := writer.CreateFormFile(fileSlot, fileName)
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(payload))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	req, _ := http.NewRequest(http.MethodPut, "/forms/new", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestFormHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &formServiceMock{loadResp: formResponse("f1")}
	handler := NewFormHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/forms/f1", nil)
	c.Params = gin.Params{{Key: "id", Value: "f1"}}
	withClaims(c)

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"f1"`)
}

func TestFormHandlerGetUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFormHandler(&formServiceMock{}, nil)

	c, w := newGinContext(http.MethodGet, "/forms/f1", nil)
	c.Params = gin.Params{{Key: "id", Value: "f1"}}

	handler.Get(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFormHandlerSaveNewReturnsCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &formServiceMock{saveResp: formResponse("f1")}
	handler := NewFormHandler(mockSvc, nil)

	req := multipartRequest(t, map[string]string{"city": "Berlin", "nuf": "10"}, "", "", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "new"}}
	withClaims(c)

	handler.Save(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "new", mockSvc.lastSaveID)
	assert.Equal(t, "Berlin", mockSvc.lastReq.City)
	assert.Equal(t, "10", mockSvc.lastReq.NUF)
}

func TestFormHandlerSaveExistingReturnsOK(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &formServiceMock{saveResp: formResponse("f1")}
	handler := NewFormHandler(mockSvc, nil)

	req := multipartRequest(t, map[string]string{"city": "Hamburg"}, "", "", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "f1"}}
	withClaims(c)

	handler.Save(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestFormHandlerSaveCollectsSlotUploads(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &formServiceMock{saveResp: formResponse("f1")}
	counter := &uploadCounterMock{}
	handler := NewFormHandler(mockSvc, counter)

	req := multipartRequest(t, map[string]string{"city": "Berlin"}, "calculations", "kosten.xlsx", []byte("cells"))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "new"}}
	withClaims(c)

	handler.Save(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, mockSvc.lastUploads, 1)
	assert.Equal(t, models.SlotCalculations, mockSvc.lastUploads[0].Slot)
	assert.Equal(t, "kosten.xlsx", mockSvc.lastUploads[0].FileName)
	assert.Equal(t, int64(5), mockSvc.lastUploads[0].SizeBytes)
	assert.Equal(t, []string{"calculations"}, counter.slots)
}

func TestFormHandlerSaveSubmittedConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &formServiceMock{err: appErrors.ErrFormSubmitted}
	handler := NewFormHandler(mockSvc, nil)

	req := multipartRequest(t, map[string]string{"city": "Berlin"}, "", "", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "f1"}}
	withClaims(c)

	handler.Save(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrFormSubmitted.Code)
}

func TestFormHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	resp := formResponse("f1")
	resp.Status = models.FormStatusSubmitted
	resp.Locked = true
	mockSvc := &formServiceMock{submitResp: resp}
	handler := NewFormHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodPost, "/forms/f1/submit", nil)
	c.Params = gin.Params{{Key: "id", Value: "f1"}}
	withClaims(c)

	handler.Submit(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"locked":true`)
}

func TestFormHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &formServiceMock{downloadResp: &dto.DownloadResponse{URL: "https://signed.example/form-files/key", ExpiresIn: 60}}
	handler := NewFormHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/forms/f1/files/calculations/download", nil)
	c.Params = gin.Params{{Key: "id", Value: "f1"}, {Key: "slot", Value: "calculations"}}
	withClaims(c)

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"expires_in":60`)
}

func TestFormHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &formServiceMock{listResp: []dto.FormListItem{{ID: "f1", City: "Berlin", Status: models.FormStatusDraft}}}
	handler := NewFormHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/forms", nil)
	withClaims(c)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"city":"Berlin"`)
}
