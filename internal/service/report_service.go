package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/baudigital/bauform-api/internal/models"
	appErrors "github.com/baudigital/bauform-api/pkg/errors"
	"github.com/baudigital/bauform-api/pkg/export"
)

type reportFormStore interface {
	GetByID(ctx context.Context, id string) (*models.Form, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ReportService renders one form as a linear PDF summary. Read-only: it never
// mutates the record store.
type ReportService struct {
	forms    reportFormStore
	renderer documentRenderer
	logger   *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(forms reportFormStore, renderer documentRenderer, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewFormPDFRenderer()
	}
	return &ReportService{forms: forms, renderer: renderer, logger: logger}
}

// Render loads the form and produces the PDF bytes plus the deterministic
// download filename.
func (s *ReportService) Render(ctx context.Context, id string) ([]byte, string, error) {
	if id == "" {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "form id is required")
	}
	form, err := s.forms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "form not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "form not found")
	}

	payload, err := s.renderer.Render(buildDocument(form))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return payload, fmt.Sprintf("formular_%s.pdf", form.ID), nil
}

// buildDocument maps the record onto the report layout. Empty values render
// as a literal dash; the on-screen net-area total is deliberately absent.
func buildDocument(form *models.Form) export.Document {
	return export.Document{
		Title: "Formular",
		Sections: []export.Section{
			{
				Fields: []export.Field{
					{Label: "Stadt", Value: orDash(form.City)},
					{Label: "Objektbezeichnung", Value: orDash(form.Objektbezeichnung)},
				},
			},
			{
				Heading: "Termine",
				Fields: []export.Field{
					{Label: "Planungsbeginn", Value: orDash(form.Planungsbeginn)},
					{Label: "Vergabedatum", Value: orDash(form.Vergabedatum)},
					{Label: "Baubeginn", Value: orDash(form.Baubeginn)},
					{Label: "Bauende", Value: orDash(form.Bauende)},
				},
			},
			{
				Heading: "Objektbeschreibung",
				Fields: []export.Field{
					{Label: "Allgemeine Objektinformation", Value: orDash(form.AllgemeineObjektinformation)},
					{Label: "Baukonstruktion", Value: orDash(form.Baukonstruktion)},
					{Label: "Technische Anlagen", Value: orDash(form.TechnischeAnlagen)},
					{Label: "Beschreibung Sonstiges", Value: orDash(form.BeschreibungSonstiges)},
				},
			},
			{
				Heading: "Flächen nach DIN 277",
				Fields: []export.Field{
					{Label: "NUF", Value: orDash(form.NUF)},
					{Label: "VF", Value: orDash(form.VF)},
					{Label: "TF", Value: orDash(form.TF)},
					{Label: "BGF", Value: orDash(form.BGF)},
				},
			},
		},
	}
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
