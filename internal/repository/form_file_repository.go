package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/baudigital/bauform-api/internal/models"
)

// FormFileRepository persists attachment metadata rows. Rows are insert-only:
// no edit or delete flow exists for attachments.
type FormFileRepository struct {
	db *sqlx.DB
}

// NewFormFileRepository constructs the repository.
func NewFormFileRepository(db *sqlx.DB) *FormFileRepository {
	return &FormFileRepository{db: db}
}

// Create stores metadata for one uploaded attachment.
func (r *FormFileRepository) Create(ctx context.Context, file *models.FormFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO form_files
	(id, form_id, object_key, file_type, file_name, content_type, size_bytes, bucket_id, uploaded_by, uploaded_at)
	VALUES (:id, :form_id, :object_key, :file_type, :file_name, :content_type, :size_bytes, :bucket_id, :uploaded_by, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, file); err != nil {
		return fmt.Errorf("insert form file: %w", err)
	}
	return nil
}

// ListByForm returns all attachment rows of a form, newest first, so the
// first row per file_type is the one consumers should use.
func (r *FormFileRepository) ListByForm(ctx context.Context, formID string) ([]models.FormFile, error) {
	const query = `SELECT id, form_id, object_key, file_type, file_name, content_type, size_bytes, bucket_id, uploaded_by, uploaded_at
	FROM form_files WHERE form_id = $1 ORDER BY uploaded_at DESC`
	var files []models.FormFile
	if err := r.db.SelectContext(ctx, &files, query, formID); err != nil {
		return nil, fmt.Errorf("list form files for %s: %w", formID, err)
	}
	return files, nil
}
