package submission

import (
	"errors"
	"path/filepath"
	"strings"

	apperrors "peopleconnect/internal/errors"

	"github.com/go-playground/validator/v10"
)

// Locale keys for validation failures.
const (
	KeyFillAll       = "fill_all"
	KeyBadType       = "bad_type"
	KeyBadMobile     = "bad_mobile"
	KeyBadCoords     = "bad_coords"
	KeyBadAttachment = "bad_attachment"
)

// Mobile numbers must carry this many digits once everything else is stripped.
const (
	MinMobileDigits = 9
	MaxMobileDigits = 15
)

// AllowedExtensions are the attachment types the form accepts.
var AllowedExtensions = []string{".png", ".jpg", ".jpeg", ".pdf", ".doc", ".docx"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return MobileIsValid(fl.Field().String())
	})
	return v
}

// MobileDigits returns only the digit characters of value.
func MobileDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '٠' && r <= '٩': // Arabic-Indic
			b.WriteRune('0' + (r - '٠'))
		case r >= '۰' && r <= '۹': // Extended Arabic-Indic (Kurdish, Persian)
			b.WriteRune('0' + (r - '۰'))
		}
	}
	return b.String()
}

// MobileIsValid reports whether value has between 9 and 15 digits.
func MobileIsValid(value string) bool {
	n := len(MobileDigits(value))
	return n >= MinMobileDigits && n <= MaxMobileDigits
}

// normalize trims every text field in place.
func (c *Candidate) normalize() {
	c.Type = strings.TrimSpace(c.Type)
	c.Department = strings.TrimSpace(c.Department)
	c.Name = strings.TrimSpace(c.Name)
	c.Mobile = strings.TrimSpace(c.Mobile)
	c.Address = strings.TrimSpace(c.Address)
	c.Message = strings.TrimSpace(c.Message)
}

// Validate checks the candidate's fields. Missing fields win over every
// other problem so the visitor sees the same message the form always showed.
func (c *Candidate) Validate() error {
	c.normalize()

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var first error
	for _, fe := range fieldErrs {
		var key string
		switch fe.Tag() {
		case "required":
			return apperrors.NewValidationError(KeyFillAll, fe.Field())
		case "oneof":
			key = KeyBadType
		case "mobile":
			key = KeyBadMobile
		case "gte", "lte":
			key = KeyBadCoords
		default:
			key = KeyFillAll
		}
		if first == nil {
			first = apperrors.NewValidationError(key, fe.Field())
		}
	}
	return first
}

// checkUploads enforces per-file type and size limits.
func checkUploads(files []Upload, maxBytes int64) error {
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Filename))
		allowed := false
		for _, a := range AllowedExtensions {
			if ext == a {
				allowed = true
				break
			}
		}
		if !allowed {
			return apperrors.NewValidationError(KeyBadAttachment, f.Filename)
		}
		if maxBytes > 0 && f.Size > maxBytes {
			return apperrors.NewValidationError(KeyBadAttachment, f.Filename)
		}
	}
	return nil
}
