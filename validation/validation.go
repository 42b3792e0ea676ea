package validation

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/locales/ar"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

const (
	// DefaultLocale is used when no locale (or an unknown one) is requested.
	DefaultLocale = "en"

	// GradeMin and GradeMax bound the optional school grade.
	GradeMin = 1
	GradeMax = 12
)

// LoginInput is the login form payload.
type LoginInput struct {
	Email    string `json:"email" mapstructure:"email" validate:"required,email"`
	Password string `json:"password" mapstructure:"password" validate:"required,min=6"`
}

// RegisterInput is the registration form payload. ConfirmPassword never
// leaves the client; see [RegisterInput.Payload].
type RegisterInput struct {
	FirstName       string `json:"firstName" mapstructure:"firstName" validate:"required,min=2"`
	LastName        string `json:"lastName" mapstructure:"lastName" validate:"required,min=2"`
	Email           string `json:"email" mapstructure:"email" validate:"required,email"`
	Password        string `json:"password" mapstructure:"password" validate:"required,min=8,has_lower,has_upper,has_digit"`
	ConfirmPassword string `json:"confirmPassword" mapstructure:"confirmPassword" validate:"required,eqfield=Password"`
	Grade           *int   `json:"grade,omitempty" mapstructure:"grade" validate:"omitempty,min=1,max=12"`
}

// RegisterPayload is the registration body sent over the wire.
type RegisterPayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Grade     *int   `json:"grade,omitempty"`
}

// Payload strips the confirmation field.
func (in RegisterInput) Payload() RegisterPayload {
	return RegisterPayload{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  in.Password,
		Grade:     in.Grade,
	}
}

// FieldErrors maps a JSON field name to its localized message. A nil or
// empty map means the input was accepted.
type FieldErrors map[string]string

// Error lists the failing fields in a stable order, so FieldErrors can travel
// as an error where needed.
func (fe FieldErrors) Error() string {
	fields := fe.Fields()
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+fe[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field failed.
func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

// Fields returns the failing field names sorted.
func (fe FieldErrors) Fields() []string {
	out := make([]string, 0, len(fe))
	for f := range fe {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

var (
	lowerRe = regexp.MustCompile(`[a-z]`)
	upperRe = regexp.MustCompile(`[A-Z]`)
	digitRe = regexp.MustCompile(`\d`)
)

// Validator checks form payloads and renders messages in one locale. It is
// safe for concurrent use.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New returns a validator for locale. Unknown locales fall back to
// [DefaultLocale].
func New(locale string) *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	_ = validate.RegisterValidation("has_lower", matches(lowerRe))
	_ = validate.RegisterValidation("has_upper", matches(upperRe))
	_ = validate.RegisterValidation("has_digit", matches(digitRe))

	return &Validator{
		validate: validate,
		trans:    translator(locale),
	}
}

// Locale returns the locale messages are rendered in.
func (v *Validator) Locale() string {
	return v.trans.Locale()
}

// Login checks a login payload.
func (v *Validator) Login(in LoginInput) FieldErrors {
	return v.check(in)
}

// Register checks a registration payload. A password mismatch is reported on
// confirmPassword only.
func (v *Validator) Register(in RegisterInput) FieldErrors {
	return v.check(in)
}

// Message renders a catalog key with params in the validator's locale.
func (v *Validator) Message(key string, params ...string) string {
	return render(v.trans, key, params...)
}

func (v *Validator) check(in any) FieldErrors {
	err := v.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"form": v.Message(keyInvalid, v.label("form"))}
	}

	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = v.describe(fe)
	}
	return out
}

func (v *Validator) describe(fe validator.FieldError) string {
	field := fe.Field()
	label := v.label(field)

	switch fe.Tag() {
	case "required":
		return v.Message(keyRequired, label)
	case "email":
		return v.Message(keyEmail, label)
	case "min":
		if field == "grade" {
			return v.Message(keyRange, label, itoa(GradeMin), itoa(GradeMax))
		}
		return v.Message(keyMinLength, label, fe.Param())
	case "max":
		return v.Message(keyRange, label, itoa(GradeMin), itoa(GradeMax))
	case "has_lower", "has_upper", "has_digit":
		return v.Message(keyComplexity, label)
	case "eqfield":
		return v.Message(keyMismatch, label)
	default:
		return v.Message(keyInvalid, label)
	}
}

func (v *Validator) label(field string) string {
	if s, err := v.trans.T(labelPrefix + field); err == nil && s != "" {
		return s
	}
	return field
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true // handled by 'required'
		}
		return re.MatchString(s)
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

var universal = newUniversal()

func newUniversal() *ut.UniversalTranslator {
	fallback := en.New()
	uni := ut.New(fallback, fallback, fr.New(), ar.New())
	for locale, catalog := range catalogs {
		trans, _ := uni.GetTranslator(locale)
		for key, text := range catalog {
			_ = trans.Add(key, text, true)
		}
	}
	return uni
}

func translator(locale string) ut.Translator {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	if locale == "" {
		locale = DefaultLocale
	}
	trans, found := universal.GetTranslator(locale)
	if !found {
		trans, _ = universal.GetTranslator(DefaultLocale)
	}
	return trans
}

// SupportedLocales lists the locales with a message catalog.
func SupportedLocales() []string {
	out := make([]string, 0, len(catalogs))
	for l := range catalogs {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
