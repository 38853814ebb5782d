package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/baudigital/bauform-api/internal/dto"
	"github.com/baudigital/bauform-api/internal/models"
	appErrors "github.com/baudigital/bauform-api/pkg/errors"
)

type mockFormStore struct {
	forms    map[string]models.Form
	getCalls int
	inserts  int
	updates  int
	err      error
}

func (m *mockFormStore) GetByID(ctx context.Context, id string) (*models.Form, error) {
	m.getCalls++
	if m.err != nil {
		return nil, m.err
	}
	if form, ok := m.forms[id]; ok {
		copied := form
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFormStore) Insert(ctx context.Context, form *models.Form) error {
	m.inserts++
	if m.forms == nil {
		m.forms = make(map[string]models.Form)
	}
	if form.ID == "" || form.ID == models.NewFormID {
		form.ID = fmt.Sprintf("form-%d", len(m.forms)+1)
	}
	m.forms[form.ID] = *form
	return nil
}

func (m *mockFormStore) Update(ctx context.Context, form *models.Form) error {
	m.updates++
	if m.forms == nil {
		m.forms = make(map[string]models.Form)
	}
	m.forms[form.ID] = *form
	return nil
}

func (m *mockFormStore) ListByUser(ctx context.Context, userID string) ([]models.Form, error) {
	var forms []models.Form
	for _, form := range m.forms {
		if form.UserID == userID {
			forms = append(forms, form)
		}
	}
	return forms, nil
}

type mockFileStore struct {
	files []models.FormFile
	err   error
}

func (m *mockFileStore) Create(ctx context.Context, file *models.FormFile) error {
	if m.err != nil {
		return m.err
	}
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}
	m.files = append(m.files, *file)
	return nil
}

func (m *mockFileStore) ListByForm(ctx context.Context, formID string) ([]models.FormFile, error) {
	var files []models.FormFile
	for i := len(m.files) - 1; i >= 0; i-- {
		if m.files[i].FormID == formID {
			files = append(files, m.files[i])
		}
	}
	return files, nil
}

type uploadedObject struct {
	bucket      string
	key         string
	contentType string
	payload     []byte
}

type mockBlobStore struct {
	uploads      []uploadedObject
	uploadCalls  int
	failUploadAt int
	presignCalls int
	presignErr   error
}

func (m *mockBlobStore) Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	m.uploadCalls++
	if m.failUploadAt > 0 && m.uploadCalls >= m.failUploadAt {
		return errors.New("object store unavailable")
	}
	payload, _ := io.ReadAll(r)
	m.uploads = append(m.uploads, uploadedObject{bucket: bucket, key: key, contentType: contentType, payload: payload})
	return nil
}

func (m *mockBlobStore) PresignedGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	m.presignCalls++
	if m.presignErr != nil {
		return "", m.presignErr
	}
	return fmt.Sprintf("https://signed.example/%s/%s", bucket, key), nil
}

type mockPreviewCache struct {
	urls map[string]string
	sets int
}

func (m *mockPreviewCache) GetURL(ctx context.Context, key string) (string, error) {
	if url, ok := m.urls[key]; ok {
		return url, nil
	}
	return "", appErrors.ErrCacheMiss
}

func (m *mockPreviewCache) SetURL(ctx context.Context, key, url string, ttl time.Duration) error {
	if m.urls == nil {
		m.urls = make(map[string]string)
	}
	m.urls[key] = url
	m.sets++
	return nil
}

func newFormService(forms *mockFormStore, files *mockFileStore, blobs *mockBlobStore, cache previewCache) *FormService {
	return NewFormService(forms, files, blobs, cache, zap.NewNop(), FormServiceConfig{})
}

func testActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Email: "user@example.com"}
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return appErrors.FromError(err).Code
}

func TestFormServiceLoadNew(t *testing.T) {
	forms := &mockFormStore{}
	svc := newFormService(forms, &mockFileStore{}, &mockBlobStore{}, nil)

	resp, err := svc.Load(context.Background(), models.NewFormID, testActor())
	require.NoError(t, err)
	assert.Equal(t, models.NewFormID, resp.ID)
	assert.False(t, resp.Locked)
	assert.Equal(t, "0,00", resp.NetArea)
	assert.Zero(t, forms.getCalls, "the new-form sentinel must not hit the store")
}

func TestFormServiceLoadRequiresActor(t *testing.T) {
	svc := newFormService(&mockFormStore{}, &mockFileStore{}, &mockBlobStore{}, nil)

	_, err := svc.Load(context.Background(), models.NewFormID, nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestFormServiceLoadNotFound(t *testing.T) {
	svc := newFormService(&mockFormStore{}, &mockFileStore{}, &mockBlobStore{}, nil)

	_, err := svc.Load(context.Background(), "missing", testActor())
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestFormServiceLoadForbiddenForOtherUser(t *testing.T) {
	forms := &mockFormStore{forms: map[string]models.Form{
		"f1": {ID: "f1", UserID: "someone-else", Status: models.FormStatusDraft},
	}}
	svc := newFormService(forms, &mockFileStore{}, &mockBlobStore{}, nil)

	_, err := svc.Load(context.Background(), "f1", testActor())
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestFormServiceSaveCreatesThenUpdates(t *testing.T) {
	forms := &mockFormStore{}
	svc := newFormService(forms, &mockFileStore{}, &mockBlobStore{}, nil)
	actor := testActor()

	created, err := svc.Save(context.Background(), models.NewFormID, dto.SaveFormRequest{City: "Berlin"}, nil, actor)
	require.NoError(t, err)
	assert.NotEqual(t, models.NewFormID, created.ID)
	assert.Equal(t, actor.UserID, created.UserID)
	assert.Equal(t, models.FormStatusDraft, created.Status)
	assert.Equal(t, 1, forms.inserts)
	assert.Zero(t, forms.updates)

	updated, err := svc.Save(context.Background(), created.ID, dto.SaveFormRequest{City: "Hamburg", NUF: "10", VF: "2.5"}, nil, actor)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Hamburg", updated.City)
	assert.Equal(t, "12,50", updated.NetArea)
	assert.Equal(t, 1, forms.inserts)
	assert.Equal(t, 1, forms.updates)
}

func TestFormServiceSaveRejectsSubmitted(t *testing.T) {
	forms := &mockFormStore{forms: map[string]models.Form{
		"f1": {ID: "f1", UserID: "user-1", Status: models.FormStatusSubmitted, City: "Berlin"},
	}}
	svc := newFormService(forms, &mockFileStore{}, &mockBlobStore{}, nil)

	_, err := svc.Save(context.Background(), "f1", dto.SaveFormRequest{City: "Hamburg"}, nil, testActor())
	assert.True(t, errors.Is(err, appErrors.ErrFormSubmitted))
	assert.Zero(t, forms.updates, "a locked form must not be written")
	assert.Equal(t, "Berlin", forms.forms["f1"].City)
}

func TestFormServiceSaveValidatesCategoricalFields(t *testing.T) {
	svc := newFormService(&mockFormStore{}, &mockFileStore{}, &mockBlobStore{}, nil)

	_, err := svc.Save(context.Background(), models.NewFormID, dto.SaveFormRequest{Region: "dorf"}, nil, testActor())
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))

	_, err = svc.Save(context.Background(), models.NewFormID, dto.SaveFormRequest{NUF: "-3"}, nil, testActor())
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestFormServiceSaveUploadsImageBeforeRecordWrite(t *testing.T) {
	forms := &mockFormStore{}
	blobs := &mockBlobStore{}
	svc := newFormService(forms, &mockFileStore{}, blobs, nil)

	uploads := []SlotUpload{{
		Slot:        models.SlotImage,
		FileName:    "site.png",
		ContentType: "image/png",
		SizeBytes:   4,
		Content:     bytes.NewBufferString("data"),
	}}
	resp, err := svc.Save(context.Background(), models.NewFormID, dto.SaveFormRequest{}, uploads, testActor())
	require.NoError(t, err)

	require.Len(t, blobs.uploads, 1)
	assert.Equal(t, "form-images", blobs.uploads[0].bucket)
	assert.True(t, strings.HasPrefix(blobs.uploads[0].key, "user-1/"))
	assert.True(t, strings.HasSuffix(blobs.uploads[0].key, "-site.png"))
	require.NotNil(t, resp.ImageFilePath)
	assert.Equal(t, blobs.uploads[0].key, *resp.ImageFilePath)
}

func TestFormServiceSaveStoresAttachmentMetadata(t *testing.T) {
	forms := &mockFormStore{}
	files := &mockFileStore{}
	blobs := &mockBlobStore{}
	svc := newFormService(forms, files, blobs, nil)

	uploads := []SlotUpload{{
		Slot:        models.SlotCalculations,
		FileName:    "kosten.xlsx",
		ContentType: "application/vnd.ms-excel",
		SizeBytes:   5,
		Content:     bytes.NewBufferString("cells"),
	}}
	resp, err := svc.Save(context.Background(), models.NewFormID, dto.SaveFormRequest{}, uploads, testActor())
	require.NoError(t, err)

	require.Len(t, files.files, 1)
	stored := files.files[0]
	assert.Equal(t, resp.ID, stored.FormID)
	assert.Equal(t, models.SlotCalculations, stored.FileType)
	assert.Equal(t, "kosten.xlsx", stored.FileName)
	assert.Equal(t, "form-files", stored.BucketID)
	assert.Contains(t, stored.ObjectKey, "/"+resp.ID+"/")

	require.Contains(t, resp.Attachments, "calculations")
	assert.Equal(t, "kosten.xlsx", resp.Attachments["calculations"].FileName)
}

func TestFormServiceSaveRejectsNonImageForImageSlot(t *testing.T) {
	svc := newFormService(&mockFormStore{}, &mockFileStore{}, &mockBlobStore{}, nil)

	uploads := []SlotUpload{{
		Slot:        models.SlotImage,
		FileName:    "notes.pdf",
		ContentType: "application/pdf",
		SizeBytes:   4,
		Content:     bytes.NewBufferString("data"),
	}}
	_, err := svc.Save(context.Background(), models.NewFormID, dto.SaveFormRequest{}, uploads, testActor())
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestFormServiceSaveRejectsOversizedUpload(t *testing.T) {
	svc := NewFormService(&mockFormStore{}, &mockFileStore{}, &mockBlobStore{}, nil, zap.NewNop(), FormServiceConfig{MaxFileSize: 8})

	uploads := []SlotUpload{{
		Slot:        models.SlotOther,
		FileName:    "big.bin",
		ContentType: "application/octet-stream",
		SizeBytes:   9,
		Content:     bytes.NewBufferString("123456789"),
	}}
	_, err := svc.Save(context.Background(), models.NewFormID, dto.SaveFormRequest{}, uploads, testActor())
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestFormServiceSavePartialUploadFailureKeepsCommittedWork(t *testing.T) {
	forms := &mockFormStore{}
	files := &mockFileStore{}
	// first upload (calculations) commits, second (drawings) fails
	blobs := &mockBlobStore{failUploadAt: 2}
	svc := newFormService(forms, files, blobs, nil)

	uploads := []SlotUpload{
		{
			Slot:        models.SlotCalculations,
			FileName:    "kosten.xlsx",
			ContentType: "application/vnd.ms-excel",
			SizeBytes:   5,
			Content:     bytes.NewBufferString("cells"),
		},
		{
			Slot:        models.SlotDrawings,
			FileName:    "plan.pdf",
			ContentType: "application/pdf",
			SizeBytes:   4,
			Content:     bytes.NewBufferString("plan"),
		},
	}
	_, err := svc.Save(context.Background(), models.NewFormID, dto.SaveFormRequest{City: "Berlin"}, uploads, testActor())
	require.Error(t, err)

	// the record write and the committed slot stay; there is no rollback
	assert.Equal(t, 1, forms.inserts)
	require.Len(t, forms.forms, 1)
	require.Len(t, files.files, 1)
	assert.Equal(t, models.SlotCalculations, files.files[0].FileType)
	require.Len(t, blobs.uploads, 1)

	// the failure names the assigned id so a retry targets the saved record
	var savedID string
	for id := range forms.forms {
		savedID = id
	}
	assert.Contains(t, err.Error(), savedID)
}

func TestFormServiceSubmitIsOneWay(t *testing.T) {
	forms := &mockFormStore{forms: map[string]models.Form{
		"f1": {ID: "f1", UserID: "user-1", Status: models.FormStatusDraft},
	}}
	svc := newFormService(forms, &mockFileStore{}, &mockBlobStore{}, nil)

	resp, err := svc.Submit(context.Background(), "f1", testActor())
	require.NoError(t, err)
	assert.True(t, resp.Locked)
	assert.Equal(t, models.FormStatusSubmitted, resp.Status)

	_, err = svc.Submit(context.Background(), "f1", testActor())
	assert.True(t, errors.Is(err, appErrors.ErrFormSubmitted))
	assert.Equal(t, 1, forms.updates)
}

func TestFormServiceDownloadURL(t *testing.T) {
	forms := &mockFormStore{forms: map[string]models.Form{
		"f1": {ID: "f1", UserID: "user-1", Status: models.FormStatusDraft},
	}}
	files := &mockFileStore{files: []models.FormFile{{
		FormID:    "f1",
		ObjectKey: "user-1/f1/1-kosten.xlsx",
		FileType:  models.SlotCalculations,
		FileName:  "kosten.xlsx",
		BucketID:  "form-files",
	}}}
	blobs := &mockBlobStore{}
	svc := newFormService(forms, files, blobs, nil)

	download, err := svc.DownloadURL(context.Background(), "f1", "calculations", testActor())
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/form-files/user-1/f1/1-kosten.xlsx", download.URL)
	assert.Equal(t, int64(60), download.ExpiresIn)
}

func TestFormServiceDownloadURLEmptySlot(t *testing.T) {
	forms := &mockFormStore{forms: map[string]models.Form{
		"f1": {ID: "f1", UserID: "user-1", Status: models.FormStatusDraft},
	}}
	svc := newFormService(forms, &mockFileStore{}, &mockBlobStore{}, nil)

	_, err := svc.DownloadURL(context.Background(), "f1", "drawings", testActor())
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))

	_, err = svc.DownloadURL(context.Background(), "f1", "screenshots", testActor())
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}

func TestFormServicePreviewURLUsesCache(t *testing.T) {
	path := "user-1/1-site.png"
	forms := &mockFormStore{forms: map[string]models.Form{
		"f1": {ID: "f1", UserID: "user-1", Status: models.FormStatusDraft, ImageFilePath: &path},
	}}
	blobs := &mockBlobStore{}
	cache := &mockPreviewCache{}
	svc := newFormService(forms, &mockFileStore{}, blobs, cache)
	actor := testActor()

	first, err := svc.Load(context.Background(), "f1", actor)
	require.NoError(t, err)
	require.Contains(t, first.PreviewURLs, "image")
	assert.Equal(t, 1, blobs.presignCalls)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.Load(context.Background(), "f1", actor)
	require.NoError(t, err)
	assert.Equal(t, first.PreviewURLs["image"], second.PreviewURLs["image"])
	assert.Equal(t, 1, blobs.presignCalls, "second load must be served from cache")
}

func TestFormServicePreviewWithoutCacheSignsEveryLoad(t *testing.T) {
	path := "user-1/1-site.png"
	forms := &mockFormStore{forms: map[string]models.Form{
		"f1": {ID: "f1", UserID: "user-1", Status: models.FormStatusDraft, ImageFilePath: &path},
	}}
	blobs := &mockBlobStore{}
	svc := newFormService(forms, &mockFileStore{}, blobs, nil)
	actor := testActor()

	first, err := svc.Load(context.Background(), "f1", actor)
	require.NoError(t, err)
	require.Contains(t, first.PreviewURLs, "image")

	second, err := svc.Load(context.Background(), "f1", actor)
	require.NoError(t, err)
	require.Contains(t, second.PreviewURLs, "image")
	assert.Equal(t, 2, blobs.presignCalls, "without a cache every load signs a fresh url")
}

func TestFormServicePreviewFailureDegrades(t *testing.T) {
	path := "user-1/1-site.png"
	forms := &mockFormStore{forms: map[string]models.Form{
		"f1": {ID: "f1", UserID: "user-1", Status: models.FormStatusDraft, ImageFilePath: &path},
	}}
	blobs := &mockBlobStore{presignErr: errors.New("minio down")}
	svc := newFormService(forms, &mockFileStore{}, blobs, nil)

	resp, err := svc.Load(context.Background(), "f1", testActor())
	require.NoError(t, err, "a signing failure must not abort the load")
	assert.NotContains(t, resp.PreviewURLs, "image")
}

func TestFormServiceList(t *testing.T) {
	forms := &mockFormStore{forms: map[string]models.Form{
		"f1": {ID: "f1", UserID: "user-1", City: "Berlin", Status: models.FormStatusDraft},
		"f2": {ID: "f2", UserID: "other", City: "München", Status: models.FormStatusDraft},
	}}
	svc := newFormService(forms, &mockFileStore{}, &mockBlobStore{}, nil)

	items, err := svc.List(context.Background(), testActor())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "f1", items[0].ID)
	assert.Equal(t, "Berlin", items[0].City)
}
