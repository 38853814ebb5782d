package dto

import "github.com/baudigital/bauform-api/internal/models"

// SaveFormRequest carries the editable form fields of one checkpoint save.
// All fields are optional; files ride alongside as multipart parts named
// after their slot.
type SaveFormRequest struct {
	City              string `form:"city" json:"city"`
	Objektbezeichnung string `form:"objektbezeichnung" json:"objektbezeichnung"`

	Planungsbeginn string `form:"planungsbeginn" json:"planungsbeginn"`
	Vergabedatum   string `form:"vergabedatum" json:"vergabedatum"`
	Baubeginn      string `form:"baubeginn" json:"baubeginn"`
	Bauende        string `form:"bauende" json:"bauende"`

	AllgemeineObjektinformation string `form:"allgemeine_objektinformation" json:"allgemeineObjektinformation"`
	Baukonstruktion             string `form:"baukonstruktion" json:"baukonstruktion"`
	TechnischeAnlagen           string `form:"technische_anlagen" json:"technischeAnlagen"`
	BeschreibungSonstiges       string `form:"beschreibung_sonstiges" json:"beschreibungSonstiges"`

	Region     string `form:"region" json:"region"`
	Konjunktur string `form:"konjunktur" json:"konjunktur"`
	Standard   string `form:"standard" json:"standard"`

	NUF string `form:"nuf" json:"nuf"`
	VF  string `form:"vf" json:"vf"`
	TF  string `form:"tf" json:"tf"`
	BGF string `form:"bgf" json:"bgf"`
}

// AttachmentInfo describes one stored attachment slot in responses.
type AttachmentInfo struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
	UploadedAt  string `json:"uploadedAt"`
}

// FormResponse is the full load result: the record, the derived lock flag and
// net area, plus per-slot preview URLs and attachment metadata.
type FormResponse struct {
	*models.Form
	Locked      bool                      `json:"locked"`
	NetArea     string                    `json:"nettoRaumflaeche"`
	PreviewURLs map[string]string         `json:"previewUrls,omitempty"`
	Attachments map[string]AttachmentInfo `json:"attachments,omitempty"`
}

// FormListItem is one row of the caller's form overview.
type FormListItem struct {
	ID                string            `json:"id"`
	Objektbezeichnung string            `json:"objektbezeichnung"`
	City              string            `json:"city"`
	Status            models.FormStatus `json:"status"`
	UpdatedAt         string            `json:"updatedAt"`
}

// DownloadResponse carries a freshly signed, short-lived download URL.
type DownloadResponse struct {
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expires_in"`
}
