package schema

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/scriptorium/internal/models"
)

var documentFields = []string{"subjectId", "title", "description", "fileName", "tags", "linkedReportIds"}

type documentCreate struct {
	SubjectID       *int64    `json:"subjectId"`
	Title           *string   `json:"title"`
	Description     *string   `json:"description"`
	FileName        *string   `json:"fileName"`
	Tags            *[]string `json:"tags"`
	LinkedReportIDs *[]int64  `json:"linkedReportIds"`
}

func (b *documentCreate) Validate() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.SubjectID, validation.NotNil),
		validation.Field(&b.Title, validation.NotNil),
		validation.Field(&b.Description, validation.NotNil),
		validation.Field(&b.FileName, validation.NotNil),
	)
}

// DecodeDocumentCreate parses and validates a document create body.
// The referenced subject is not checked for existence.
func DecodeDocumentCreate(data []byte) (models.NewDocument, error) {
	var b documentCreate
	if err := decode(data, &b); err != nil {
		return models.NewDocument{}, err
	}
	if err := fromOzzo(b.Validate(), documentFields); err != nil {
		return models.NewDocument{}, err
	}
	return models.NewDocument{
		SubjectID:       *b.SubjectID,
		Title:           *b.Title,
		Description:     *b.Description,
		FileName:        *b.FileName,
		Tags:            sliceOr(b.Tags),
		LinkedReportIDs: sliceOr(b.LinkedReportIDs),
	}, nil
}
