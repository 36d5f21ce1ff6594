package schema

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/scriptorium/internal/models"
)

var reportFields = []string{"subjectId", "title", "content", "status", "tags", "linkedDocumentIds"}

type reportCreate struct {
	SubjectID         *int64               `json:"subjectId"`
	Title             *string              `json:"title"`
	Content           *string              `json:"content"`
	Status            *models.ReportStatus `json:"status"`
	Tags              *[]string            `json:"tags"`
	LinkedDocumentIDs *[]int64             `json:"linkedDocumentIds"`
}

func (b *reportCreate) Validate() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.SubjectID, validation.NotNil),
		validation.Field(&b.Title, validation.NotNil),
		validation.Field(&b.Content, validation.NotNil),
		validation.Field(&b.Status, statusRule(b.Status != nil)),
	)
}

// DecodeReportCreate parses and validates a report create body.
func DecodeReportCreate(data []byte) (models.NewReport, error) {
	var b reportCreate
	if err := decode(data, &b); err != nil {
		return models.NewReport{}, err
	}
	if err := fromOzzo(b.Validate(), reportFields); err != nil {
		return models.NewReport{}, err
	}
	return models.NewReport{
		SubjectID:         *b.SubjectID,
		Title:             *b.Title,
		Content:           *b.Content,
		Status:            valueOr(b.Status, models.ReportDraft),
		Tags:              sliceOr(b.Tags),
		LinkedDocumentIDs: sliceOr(b.LinkedDocumentIDs),
	}, nil
}

// DecodeReportPatch parses and validates a partial report update.
func DecodeReportPatch(data []byte) (models.ReportPatch, error) {
	var p models.ReportPatch
	if err := decode(data, &p); err != nil {
		return models.ReportPatch{}, err
	}
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Status, statusRule(p.Status != nil)),
	)
	if err := fromOzzo(err, reportFields); err != nil {
		return models.ReportPatch{}, err
	}
	return p, nil
}

func statusRule(present bool) validation.Rule {
	return optionalIn(present, models.ReportDraft, models.ReportFinal, models.ReportArchived)
}
