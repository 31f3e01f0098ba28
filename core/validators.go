package core

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	es_translations "github.com/go-playground/validator/v10/translations/es"
)

// DateTimeLocalLayouts are the layouts accepted for <input type="datetime-local"> values.
var DateTimeLocalLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "Este campo no puede estar vacío."

	usernameTag   = "username"
	usernameText  = "Introduce un nombre de usuario válido: letras, números y @/./+/-/_ únicamente."
	usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)

	dateTimeLocalTag  = "datetime_local"
	dateTimeLocalText = "Introduce una fecha y hora válidas."

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "Este campo es obligatorio."

	maxTag  = "max"
	maxText = "Asegúrate de que este valor tenga como máximo {0} caracteres."

	urlTag  = "url"
	urlText = "Introduce una URL válida."

	emailTag  = "email"
	emailText = "Introduce una dirección de correo electrónico válida."

	oneOfTag  = "oneof"
	oneOfText = "Escoge una opción válida."
)

// NewTranslator returns the Spanish translator used for validation messages.
func NewTranslator() ut.Translator {
	_es := es.New()
	uni := ut.New(_es, _es)
	translator, _ := uni.GetTranslator("es")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = es_translations.RegisterDefaultTranslations(validate, translator)

	// Use form field names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	_ = validate.RegisterValidation(usernameTag, usernameValidation)
	RegisterCustomTranslation(validate, translator, usernameTag, usernameText)

	_ = validate.RegisterValidation(dateTimeLocalTag, dateTimeLocalValidation)
	RegisterCustomTranslation(validate, translator, dateTimeLocalTag, dateTimeLocalText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, urlTag, urlText, true)
	RegisterCustomTranslation(validate, translator, emailTag, emailText, true)
	RegisterCustomTranslation(validate, translator, oneOfTag, oneOfText, true)
	registerMaxTranslation(validate, translator)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func registerMaxTranslation(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterTranslation(
		maxTag, translator,
		func(t ut.Translator) error { return t.Add(maxTag, maxText, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(maxTag, fe.Param())
			return s
		},
	)
}

// ParseDateTimeLocal parses s with the first matching DateTimeLocalLayouts layout in loc.
func ParseDateTimeLocal(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range DateTimeLocalLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Custom Global Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

// usernameValidation allows letters, digits and @ . + - _
func usernameValidation(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

func dateTimeLocalValidation(fl validator.FieldLevel) bool {
	_, ok := ParseDateTimeLocal(fl.Field().String(), time.UTC)
	return ok
}
