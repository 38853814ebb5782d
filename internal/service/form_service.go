package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/baudigital/bauform-api/internal/dto"
	"github.com/baudigital/bauform-api/internal/models"
	appErrors "github.com/baudigital/bauform-api/pkg/errors"
)

type formStore interface {
	GetByID(ctx context.Context, id string) (*models.Form, error)
	Insert(ctx context.Context, form *models.Form) error
	Update(ctx context.Context, form *models.Form) error
	ListByUser(ctx context.Context, userID string) ([]models.Form, error)
}

type formFileStore interface {
	Create(ctx context.Context, file *models.FormFile) error
	ListByForm(ctx context.Context, formID string) ([]models.FormFile, error)
}

type blobStore interface {
	Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
	PresignedGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

type previewCache interface {
	GetURL(ctx context.Context, key string) (string, error)
	SetURL(ctx context.Context, key, url string, ttl time.Duration) error
}

// noopPreviewCache misses every lookup, so running without a cache signs a
// fresh URL per request.
type noopPreviewCache struct{}

func (noopPreviewCache) GetURL(context.Context, string) (string, error) {
	return "", appErrors.ErrCacheMiss
}

func (noopPreviewCache) SetURL(context.Context, string, string, time.Duration) error {
	return nil
}

// SlotUpload is one pending attachment payload bound to a slot.
type SlotUpload struct {
	Slot        models.SlotName
	FileName    string
	ContentType string
	SizeBytes   int64
	Content     io.Reader
}

// FormServiceConfig holds bucket names, signing windows and upload limits.
type FormServiceConfig struct {
	ImageBucket     string
	FilesBucket     string
	PreviewURLTTL   time.Duration
	DownloadURLTTL  time.Duration
	PreviewCacheTTL time.Duration
	MaxFileSize     int64
}

// FormService implements the form lifecycle: load, checkpoint save, submit,
// attachment downloads and the owner's overview listing.
type FormService struct {
	forms  formStore
	files  formFileStore
	blobs  blobStore
	cache  previewCache
	logger *zap.Logger
	cfg    FormServiceConfig
}

// NewFormService constructs the service with defaults.
func NewFormService(forms formStore, files formFileStore, blobs blobStore, cache previewCache, logger *zap.Logger, cfg FormServiceConfig) *FormService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ImageBucket == "" {
		cfg.ImageBucket = "form-images"
	}
	if cfg.FilesBucket == "" {
		cfg.FilesBucket = "form-files"
	}
	if cfg.PreviewURLTTL <= 0 {
		cfg.PreviewURLTTL = 10 * time.Minute
	}
	if cfg.DownloadURLTTL <= 0 {
		cfg.DownloadURLTTL = time.Minute
	}
	if cfg.PreviewCacheTTL <= 0 || cfg.PreviewCacheTTL >= cfg.PreviewURLTTL {
		cfg.PreviewCacheTTL = cfg.PreviewURLTTL - time.Minute
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 25 * 1024 * 1024
	}
	if cache == nil {
		cache = noopPreviewCache{}
	}
	return &FormService{
		forms:  forms,
		files:  files,
		blobs:  blobs,
		cache:  cache,
		logger: logger,
		cfg:    cfg,
	}
}

// Load returns one form with derived state and per-slot preview URLs. The id
// "new" yields the default-shaped, unlocked record without any store read.
func (s *FormService) Load(ctx context.Context, id string, actor *models.JWTClaims) (*dto.FormResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if id == models.NewFormID {
		form := models.NewForm()
		return &dto.FormResponse{Form: form, Locked: false, NetArea: form.NetArea()}, nil
	}
	form, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(ctx, form)
}

// Save is the checkpoint operation: it always writes status draft. Pending
// slot payloads are uploaded sequentially; a failure aborts the remaining
// slots for this call but already-committed uploads stay (accepted partial
// outcome, no compensating rollback).
func (s *FormService) Save(ctx context.Context, id string, req dto.SaveFormRequest, uploads []SlotUpload, actor *models.JWTClaims) (*dto.FormResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := validateFields(req); err != nil {
		return nil, err
	}
	if err := s.validateUploads(uploads); err != nil {
		return nil, err
	}

	form := models.NewForm()
	isNew := id == models.NewFormID
	if !isNew {
		existing, err := s.loadOwned(ctx, id, actor)
		if err != nil {
			return nil, err
		}
		if err := existing.EnsureEditable(); err != nil {
			return nil, err
		}
		form = existing
	}

	applyFields(form, req)
	if form.UserID == "" {
		form.UserID = actor.UserID
	}
	form.Status = models.FormStatusDraft

	// the image slot stores its key directly on the row, so it is uploaded
	// before the record write; keys for the simple slot omit the form id
	if upload := findUpload(uploads, models.SlotImage); upload != nil {
		key := fmt.Sprintf("%s/%d-%s", actor.UserID, time.Now().UnixMilli(), filepath.Base(upload.FileName))
		if err := s.blobs.Upload(ctx, s.cfg.ImageBucket, key, upload.Content, upload.SizeBytes, upload.ContentType); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upload image")
		}
		form.ImageFilePath = &key
	}

	if isNew {
		if err := s.forms.Insert(ctx, form); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create form")
		}
	} else {
		if err := s.forms.Update(ctx, form); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save form")
		}
	}

	// metadata slots need the persisted id in their object keys, so they run
	// after the record write, sequentially and in fixed slot order
	for _, slot := range models.FormSlots {
		if slot.DirectPath {
			continue
		}
		upload := findUpload(uploads, slot.Name)
		if upload == nil {
			continue
		}
		if err := s.storeAttachment(ctx, form, slot, upload, actor); err != nil {
			return nil, err
		}
	}

	return s.buildResponse(ctx, form)
}

// Submit writes the record with status submitted. The transition is
// monotonic; no operation anywhere reopens a submitted form.
func (s *FormService) Submit(ctx context.Context, id string, actor *models.JWTClaims) (*dto.FormResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	form, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := form.EnsureEditable(); err != nil {
		return nil, err
	}
	form.Status = models.FormStatusSubmitted
	if err := s.forms.Update(ctx, form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit form")
	}
	return s.buildResponse(ctx, form)
}

// DownloadURL resolves a slot's stored object to a freshly signed, short-lived
// URL. The preview cache is bypassed on purpose: explicit downloads always get
// a new link.
func (s *FormService) DownloadURL(ctx context.Context, id, slotName string, actor *models.JWTClaims) (*dto.DownloadResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	slot, ok := models.SlotByName(slotName)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attachment slot")
	}
	form, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	bucket, key, err := s.resolveStored(ctx, form, slot)
	if err != nil {
		return nil, err
	}
	url, err := s.blobs.PresignedGet(ctx, bucket, key, s.cfg.DownloadURLTTL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return &dto.DownloadResponse{URL: url, ExpiresIn: int64(s.cfg.DownloadURLTTL.Seconds())}, nil
}

// List returns the caller's forms for the overview page.
func (s *FormService) List(ctx context.Context, actor *models.JWTClaims) ([]dto.FormListItem, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	forms, err := s.forms.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list forms")
	}
	items := make([]dto.FormListItem, 0, len(forms))
	for _, form := range forms {
		items = append(items, dto.FormListItem{
			ID:                form.ID,
			Objektbezeichnung: form.Objektbezeichnung,
			City:              form.City,
			Status:            form.Status,
			UpdatedAt:         form.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return items, nil
}

func (s *FormService) loadOwned(ctx context.Context, id string, actor *models.JWTClaims) (*models.Form, error) {
	form, err := s.forms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load form")
	}
	if form.UserID != "" && form.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return form, nil
}

func (s *FormService) storeAttachment(ctx context.Context, form *models.Form, slot models.Slot, upload *SlotUpload, actor *models.JWTClaims) error {
	name := filepath.Base(upload.FileName)
	key := fmt.Sprintf("%s/%s/%d-%s", actor.UserID, form.ID, time.Now().UnixMilli(), name)
	// name the persisted id so a client whose save died mid-upload retries
	// against this record instead of inserting a fresh one
	if err := s.blobs.Upload(ctx, s.cfg.FilesBucket, key, upload.Content, upload.SizeBytes, upload.ContentType); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
			fmt.Sprintf("failed to upload %s for form %s", slot.Name, form.ID))
	}
	file := &models.FormFile{
		FormID:      form.ID,
		ObjectKey:   key,
		FileType:    slot.Name,
		FileName:    name,
		ContentType: upload.ContentType,
		SizeBytes:   upload.SizeBytes,
		BucketID:    s.cfg.FilesBucket,
		UploadedBy:  actor.UserID,
	}
	if err := s.files.Create(ctx, file); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
			fmt.Sprintf("failed to record %s metadata for form %s", slot.Name, form.ID))
	}
	return nil
}

func (s *FormService) buildResponse(ctx context.Context, form *models.Form) (*dto.FormResponse, error) {
	resp := &dto.FormResponse{
		Form:    form,
		Locked:  form.Locked(),
		NetArea: form.NetArea(),
	}

	previews := make(map[string]string)
	if form.ImageFilePath != nil && *form.ImageFilePath != "" {
		if url := s.previewURL(ctx, s.cfg.ImageBucket, *form.ImageFilePath); url != "" {
			previews[string(models.SlotImage)] = url
		}
	}

	files, err := s.files.ListByForm(ctx, form.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachments")
	}
	attachments := make(map[string]dto.AttachmentInfo)
	for _, file := range files {
		slotName := string(file.FileType)
		if _, seen := attachments[slotName]; seen {
			// duplicates per slot: rows come back newest first, first wins
			continue
		}
		attachments[slotName] = dto.AttachmentInfo{
			FileName:    file.FileName,
			ContentType: file.ContentType,
			SizeBytes:   file.SizeBytes,
			UploadedAt:  file.UploadedAt.UTC().Format(time.RFC3339),
		}
		if url := s.previewURL(ctx, file.BucketID, file.ObjectKey); url != "" {
			previews[slotName] = url
		}
	}

	if len(previews) > 0 {
		resp.PreviewURLs = previews
	}
	if len(attachments) > 0 {
		resp.Attachments = attachments
	}
	return resp, nil
}

// previewURL resolves a signed preview link, consulting the cache first.
// Failures degrade to "no preview" and never abort the surrounding load.
func (s *FormService) previewURL(ctx context.Context, bucket, key string) string {
	cacheKey := fmt.Sprintf("preview:%s:%s", bucket, key)
	if url, err := s.cache.GetURL(ctx, cacheKey); err == nil && url != "" {
		return url
	}
	url, err := s.blobs.PresignedGet(ctx, bucket, key, s.cfg.PreviewURLTTL)
	if err != nil {
		s.logger.Warn("failed to sign preview url", zap.Error(err), zap.String("key", key))
		return ""
	}
	if err := s.cache.SetURL(ctx, cacheKey, url, s.cfg.PreviewCacheTTL); err != nil {
		s.logger.Warn("failed to cache preview url", zap.Error(err), zap.String("key", key))
	}
	return url
}

func (s *FormService) resolveStored(ctx context.Context, form *models.Form, slot models.Slot) (bucket, key string, err error) {
	if slot.DirectPath {
		if form.ImageFilePath == nil || *form.ImageFilePath == "" {
			return "", "", appErrors.Clone(appErrors.ErrNotFound, "no file stored for slot")
		}
		return s.cfg.ImageBucket, *form.ImageFilePath, nil
	}
	files, err := s.files.ListByForm(ctx, form.ID)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachments")
	}
	for _, file := range files {
		if file.FileType == slot.Name {
			return file.BucketID, file.ObjectKey, nil
		}
	}
	return "", "", appErrors.Clone(appErrors.ErrNotFound, "no file stored for slot")
}

func (s *FormService) validateUploads(uploads []SlotUpload) error {
	for i := range uploads {
		upload := &uploads[i]
		slot, ok := models.SlotByName(string(upload.Slot))
		if !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown attachment slot %q", upload.Slot))
		}
		if upload.Content == nil || upload.SizeBytes <= 0 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("empty payload for slot %s", slot.Name))
		}
		if upload.SizeBytes > s.cfg.MaxFileSize {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
		}
		if slot.AcceptedPrefix != "" && !strings.HasPrefix(upload.ContentType, slot.AcceptedPrefix) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("slot %s only accepts %s*", slot.Name, slot.AcceptedPrefix))
		}
	}
	return nil
}

func findUpload(uploads []SlotUpload, name models.SlotName) *SlotUpload {
	for i := range uploads {
		if uploads[i].Slot == name {
			return &uploads[i]
		}
	}
	return nil
}

func applyFields(form *models.Form, req dto.SaveFormRequest) {
	form.City = req.City
	form.Objektbezeichnung = req.Objektbezeichnung
	form.Planungsbeginn = req.Planungsbeginn
	form.Vergabedatum = req.Vergabedatum
	form.Baubeginn = req.Baubeginn
	form.Bauende = req.Bauende
	form.AllgemeineObjektinformation = req.AllgemeineObjektinformation
	form.Baukonstruktion = req.Baukonstruktion
	form.TechnischeAnlagen = req.TechnischeAnlagen
	form.BeschreibungSonstiges = req.BeschreibungSonstiges
	form.Region = req.Region
	form.Konjunktur = req.Konjunktur
	form.Standard = req.Standard
	form.NUF = req.NUF
	form.VF = req.VF
	form.TF = req.TF
	form.BGF = req.BGF
}

func validateFields(req dto.SaveFormRequest) error {
	if !models.ValidOption(req.Region, models.RegionOptions) {
		return appErrors.Clone(appErrors.ErrValidation, "invalid region")
	}
	if !models.ValidOption(req.Konjunktur, models.KonjunkturOptions) {
		return appErrors.Clone(appErrors.ErrValidation, "invalid konjunktur")
	}
	if !models.ValidOption(req.Standard, models.StandardOptions) {
		return appErrors.Clone(appErrors.ErrValidation, "invalid standard")
	}
	for label, raw := range map[string]string{"nuf": req.NUF, "vf": req.VF, "tf": req.TF, "bgf": req.BGF} {
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || v < 0 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a non-negative number", label))
		}
	}
	return nil
}
