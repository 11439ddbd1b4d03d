package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	rosterTag   = "roster"
	rosterText  = "{0} must be a roster slug like SP26"
	rosterRegex = regexp.MustCompile(`^(FA|SP|SU|WI)\d{2}$`)

	subjectTag   = "subject"
	subjectText  = "{0} must be a subject code like CS"
	subjectRegex = regexp.MustCompile(`^[A-Z]{2,6}$`)

	catalogNbrTag   = "catalognbr"
	catalogNbrText  = "{0} must be a 4-digit catalog number"
	catalogNbrRegex = regexp.MustCompile(`^\d{4}$`)

	hexColorTag  = "hexcolor"
	hexColorText = "{0} must be a hex color like #1f77b4"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// NewTranslator returns the english translator used for validation errors.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "" {
			tag = fld.Tag.Get("query")
		}
		name := strings.SplitN(tag, ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(rosterTag, regexValidation(rosterRegex))
	RegisterCustomTranslation(validate, translator, rosterTag, rosterText)

	_ = validate.RegisterValidation(subjectTag, regexValidation(subjectRegex))
	RegisterCustomTranslation(validate, translator, subjectTag, subjectText)

	_ = validate.RegisterValidation(catalogNbrTag, regexValidation(catalogNbrRegex))
	RegisterCustomTranslation(validate, translator, catalogNbrTag, catalogNbrText)

	RegisterCustomTranslation(validate, translator, hexColorTag, hexColorText, true)
	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// NewValidator returns a ready to use validator and its translator.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)
	return validate, translator
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

// IsRoster reports whether s looks like a roster slug (eg. SP26).
func IsRoster(s string) bool {
	return rosterRegex.MatchString(s)
}

// Custom Global Validators

func regexValidation(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}
