package models

import "time"

// SlotName identifies an attachment position on a form. Each slot maps to at
// most one stored file at a time.
type SlotName string

const (
	SlotImage        SlotName = "image"
	SlotCalculations SlotName = "calculations"
	SlotDrawings     SlotName = "drawings"
	SlotOther        SlotName = "other"
)

// Slot describes one attachment position: where its objects live, whether an
// inline preview is offered and which media types it accepts.
type Slot struct {
	Name            SlotName
	PreviewEligible bool
	AcceptedPrefix  string
	ImageBucket     bool
	DirectPath      bool
}

// FormSlots is the fixed slot set iterated by the upload and preview paths.
// The image slot stores its object key directly on the form row; the others
// get a form_files metadata row each.
var FormSlots = []Slot{
	{Name: SlotImage, PreviewEligible: true, AcceptedPrefix: "image/", ImageBucket: true, DirectPath: true},
	{Name: SlotCalculations},
	{Name: SlotDrawings},
	{Name: SlotOther},
}

// SlotByName resolves a slot descriptor from its wire name.
func SlotByName(name string) (Slot, bool) {
	for _, slot := range FormSlots {
		if string(slot.Name) == name {
			return slot, true
		}
	}
	return Slot{}, false
}

// FormFile is one uploaded, non-image attachment. Rows are created exactly
// once per successful upload and never updated or deleted.
type FormFile struct {
	ID          string    `db:"id" json:"id"`
	FormID      string    `db:"form_id" json:"formId"`
	ObjectKey   string    `db:"object_key" json:"objectKey"`
	FileType    SlotName  `db:"file_type" json:"fileType"`
	FileName    string    `db:"file_name" json:"fileName"`
	ContentType string    `db:"content_type" json:"contentType"`
	SizeBytes   int64     `db:"size_bytes" json:"sizeBytes"`
	BucketID    string    `db:"bucket_id" json:"bucketId"`
	UploadedBy  string    `db:"uploaded_by" json:"uploadedBy"`
	UploadedAt  time.Time `db:"uploaded_at" json:"uploadedAt"`
}
