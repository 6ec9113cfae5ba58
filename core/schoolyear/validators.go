package schoolyear

import (
	"github.com/go-playground/validator/v10"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
)

var (
	nameTag  = "schoolyear"
	nameText = "school year must look like 2024-2025 with consecutive years"
)

// register custom validators
func init() {
	_ = core.Validate.RegisterValidation(nameTag, nameValidation)
	core.RegisterCustomTranslation(nameTag, nameText)
}

// nameValidation checks the `YYYY-YYYY` school year format.
func nameValidation(fl validator.FieldLevel) bool {
	return ValidName(fl.Field().String())
}
