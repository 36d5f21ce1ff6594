package schema

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/scriptorium/internal/models"
)

var subjectFields = []string{"title", "description", "coverColor", "visibility", "tags"}

type subjectCreate struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	CoverColor  *string            `json:"coverColor"`
	Visibility  *models.Visibility `json:"visibility"`
	Tags        *[]string          `json:"tags"`
}

func (b *subjectCreate) Validate() error {
	return validation.ValidateStruct(b,
		validation.Field(&b.Title, validation.NotNil),
		validation.Field(&b.Description, validation.NotNil),
		validation.Field(&b.CoverColor, coverColorRules(b.CoverColor != nil)...),
		validation.Field(&b.Visibility, visibilityRule(b.Visibility != nil)),
	)
}

// DecodeSubjectCreate parses and validates a subject create body.
func DecodeSubjectCreate(data []byte) (models.NewSubject, error) {
	var b subjectCreate
	if err := decode(data, &b); err != nil {
		return models.NewSubject{}, err
	}
	if err := fromOzzo(b.Validate(), subjectFields); err != nil {
		return models.NewSubject{}, err
	}
	return models.NewSubject{
		Title:       *b.Title,
		Description: *b.Description,
		CoverColor:  valueOr(b.CoverColor, models.DefaultCoverColor),
		Visibility:  valueOr(b.Visibility, models.VisibilityPrivate),
		Tags:        sliceOr(b.Tags),
	}, nil
}

// DecodeSubjectPatch parses and validates a partial subject update.
func DecodeSubjectPatch(data []byte) (models.SubjectPatch, error) {
	var p models.SubjectPatch
	if err := decode(data, &p); err != nil {
		return models.SubjectPatch{}, err
	}
	err := validation.ValidateStruct(&p,
		validation.Field(&p.CoverColor, coverColorRules(p.CoverColor != nil)...),
		validation.Field(&p.Visibility, visibilityRule(p.Visibility != nil)),
	)
	if err := fromOzzo(err, subjectFields); err != nil {
		return models.SubjectPatch{}, err
	}
	return p, nil
}

func coverColorRules(present bool) []validation.Rule {
	return []validation.Rule{
		validation.When(present, validation.Required),
		validation.Match(hexColorRe).Error("must be a hex color such as #e2e8f0"),
	}
}

func visibilityRule(present bool) validation.Rule {
	return optionalIn(present, models.VisibilityPrivate, models.VisibilityShared, models.VisibilityPublic)
}
