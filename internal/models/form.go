package models

import (
	"strconv"
	"strings"
	"time"

	appErrors "github.com/baudigital/bauform-api/pkg/errors"
)

// FormStatus is the lifecycle state of a form. The only legal transition is
// draft -> submitted, and it is irreversible.
type FormStatus string

const (
	FormStatusDraft     FormStatus = "draft"
	FormStatusSubmitted FormStatus = "submitted"
)

// NewFormID is the sentinel identifier for a form that has not been persisted.
const NewFormID = "new"

// Categorical labels accepted by the cost-influence fields.
var (
	RegionOptions     = []string{"land", "stadt", "großstadt"}
	KonjunkturOptions = []string{"schwach", "mittel", "hoch"}
	StandardOptions   = []string{"schwach", "mittel", "hoch"}
)

// Form is one construction-project submission. Dates and area measurements
// are kept as strings exactly as entered; empty string means unset.
type Form struct {
	ID     string     `db:"id" json:"id"`
	UserID string     `db:"user_id" json:"userId"`
	Status FormStatus `db:"status" json:"status"`

	City              string `db:"city" json:"city"`
	Objektbezeichnung string `db:"objektbezeichnung" json:"objektbezeichnung"`

	Planungsbeginn string `db:"planungsbeginn" json:"planungsbeginn"`
	Vergabedatum   string `db:"vergabedatum" json:"vergabedatum"`
	Baubeginn      string `db:"baubeginn" json:"baubeginn"`
	Bauende        string `db:"bauende" json:"bauende"`

	AllgemeineObjektinformation string `db:"allgemeine_objektinformation" json:"allgemeineObjektinformation"`
	Baukonstruktion             string `db:"baukonstruktion" json:"baukonstruktion"`
	TechnischeAnlagen           string `db:"technische_anlagen" json:"technischeAnlagen"`
	BeschreibungSonstiges       string `db:"beschreibung_sonstiges" json:"beschreibungSonstiges"`

	Region     string `db:"region" json:"region"`
	Konjunktur string `db:"konjunktur" json:"konjunktur"`
	Standard   string `db:"standard" json:"standard"`

	NUF string `db:"nuf" json:"nuf"`
	VF  string `db:"vf" json:"vf"`
	TF  string `db:"tf" json:"tf"`
	BGF string `db:"bgf" json:"bgf"`

	ImageFilePath *string `db:"image_file_path" json:"imageFilePath"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewForm returns the default-shaped record: every expected field present,
// status draft, no identity assigned.
func NewForm() *Form {
	return &Form{ID: NewFormID, Status: FormStatusDraft}
}

// Locked reports whether the form rejects further edits.
func (f *Form) Locked() bool {
	return f.Status == FormStatusSubmitted
}

// EnsureEditable is the single guard consulted by every mutating operation.
func (f *Form) EnsureEditable() error {
	if f.Locked() {
		return appErrors.ErrFormSubmitted
	}
	return nil
}

// NetArea is the derived sum of the four area measurements, formatted with
// two decimals and a comma separator. Non-numeric or empty inputs count as 0.
// It is computed on read and never persisted.
func (f *Form) NetArea() string {
	total := areaValue(f.NUF) + areaValue(f.VF) + areaValue(f.TF) + areaValue(f.BGF)
	return strings.Replace(strconv.FormatFloat(total, 'f', 2, 64), ".", ",", 1)
}

func areaValue(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

// ValidOption reports whether value is empty or one of the allowed labels.
func ValidOption(value string, options []string) bool {
	if value == "" {
		return true
	}
	for _, option := range options {
		if value == option {
			return true
		}
	}
	return false
}
