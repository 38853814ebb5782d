package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/baudigital/bauform-api/internal/models"
)

const formColumns = `id, user_id, status, city, objektbezeichnung,
       planungsbeginn, vergabedatum, baubeginn, bauende,
       allgemeine_objektinformation, baukonstruktion, technische_anlagen, beschreibung_sonstiges,
       region, konjunktur, standard, nuf, vf, tf, bgf,
       image_file_path, created_at, updated_at`

// FormRepository persists form records.
type FormRepository struct {
	db *sqlx.DB
}

// NewFormRepository constructs the repository.
func NewFormRepository(db *sqlx.DB) *FormRepository {
	return &FormRepository{db: db}
}

// GetByID retrieves one form row.
func (r *FormRepository) GetByID(ctx context.Context, id string) (*models.Form, error) {
	query := fmt.Sprintf(`SELECT %s FROM forms WHERE id = $1`, formColumns)
	var form models.Form
	if err := r.db.GetContext(ctx, &form, query, id); err != nil {
		return nil, err
	}
	return &form, nil
}

// Insert stores a new form row and assigns its identity.
func (r *FormRepository) Insert(ctx context.Context, form *models.Form) error {
	if form.ID == "" || form.ID == models.NewFormID {
		form.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	form.CreatedAt = now
	form.UpdatedAt = now
	const query = `INSERT INTO forms
	(id, user_id, status, city, objektbezeichnung,
	 planungsbeginn, vergabedatum, baubeginn, bauende,
	 allgemeine_objektinformation, baukonstruktion, technische_anlagen, beschreibung_sonstiges,
	 region, konjunktur, standard, nuf, vf, tf, bgf,
	 image_file_path, created_at, updated_at)
	VALUES (:id, :user_id, :status, :city, :objektbezeichnung,
	 :planungsbeginn, :vergabedatum, :baubeginn, :bauende,
	 :allgemeine_objektinformation, :baukonstruktion, :technische_anlagen, :beschreibung_sonstiges,
	 :region, :konjunktur, :standard, :nuf, :vf, :tf, :bgf,
	 :image_file_path, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, form); err != nil {
		return fmt.Errorf("insert form: %w", err)
	}
	return nil
}

// Update overwrites the full row matched by id. Last write wins; there is no
// optimistic concurrency token.
func (r *FormRepository) Update(ctx context.Context, form *models.Form) error {
	form.UpdatedAt = time.Now().UTC()
	const query = `UPDATE forms SET
	 user_id = :user_id, status = :status, city = :city, objektbezeichnung = :objektbezeichnung,
	 planungsbeginn = :planungsbeginn, vergabedatum = :vergabedatum, baubeginn = :baubeginn, bauende = :bauende,
	 allgemeine_objektinformation = :allgemeine_objektinformation, baukonstruktion = :baukonstruktion,
	 technische_anlagen = :technische_anlagen, beschreibung_sonstiges = :beschreibung_sonstiges,
	 region = :region, konjunktur = :konjunktur, standard = :standard,
	 nuf = :nuf, vf = :vf, tf = :tf, bgf = :bgf,
	 image_file_path = :image_file_path, updated_at = :updated_at
	WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, form); err != nil {
		return fmt.Errorf("update form %s: %w", form.ID, err)
	}
	return nil
}

// ListByUser returns the user's forms, newest first.
func (r *FormRepository) ListByUser(ctx context.Context, userID string) ([]models.Form, error) {
	query := fmt.Sprintf(`SELECT %s FROM forms WHERE user_id = $1 ORDER BY updated_at DESC`, formColumns)
	var forms []models.Form
	if err := r.db.SelectContext(ctx, &forms, query, userID); err != nil {
		return nil, fmt.Errorf("list forms for %s: %w", userID, err)
	}
	return forms, nil
}
