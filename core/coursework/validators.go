package coursework

import (
	"github.com/ericlagergren/decimal"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/registro/core"
)

const (
	gradeMaxDigits   = 4
	gradeDecimals    = 2
	gradeIntegerPart = gradeMaxDigits - gradeDecimals
)

var (
	gradeTag  = "grade"
	gradeText = "Introduce un número con como máximo 2 dígitos enteros y 2 decimales."
)

// InitValidators registers the coursework validations & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(gradeTag, gradeValidation)
	core.RegisterCustomTranslation(validate, translator, gradeTag, gradeText)
}

// parseGrade reads s as a finite decimal fitting NUMERIC(4,2), rounded to 2 places.
func parseGrade(s string) (*decimal.Big, bool) {
	d, ok := new(decimal.Big).SetString(s)
	if !ok || !d.IsFinite() {
		return nil, false
	}
	if d.Scale() > gradeDecimals {
		return nil, false
	}
	if d.Precision()-d.Scale() > gradeIntegerPart {
		return nil, false
	}
	return d.Quantize(gradeDecimals), true
}

func gradeValidation(fl validator.FieldLevel) bool {
	_, ok := parseGrade(fl.Field().String())
	return ok
}
