package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/GDG-UAM/website-sub002/internal/common/errors"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 4000
	MaxAnonIDLength      = 128
	MaxFingerprintLength = 256

	MinTitleLength = 1
)

// Anonymous ids are opaque client tokens, typically a UUID kept in local storage.
var anonIDRegex = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

// Register installs the custom binding rules on gin's validator engine.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return RegisterOn(v)
}

// RegisterOn installs the rules on v and reports fields by their JSON name.
func RegisterOn(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("anonid", func(fl validator.FieldLevel) bool {
		return IsValidAnonID(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("register anonid: %w", err)
	}
	return nil
}

// IsValidAnonID reports whether s can serve as an anonymous identity
func IsValidAnonID(s string) bool {
	return s != "" && len(s) <= MaxAnonIDLength && anonIDRegex.MatchString(s)
}

// ValidateTitle checks a giveaway title
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) < MinTitleLength {
		return fmt.Errorf("title cannot be empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("title cannot exceed %d characters", MaxTitleLength)
	}
	return nil
}

// ValidateDescription checks a giveaway description; it may be empty
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fmt.Errorf("description cannot exceed %d characters", MaxDescriptionLength)
	}
	return nil
}

// FieldErrors converts binding failures into one validation error per field.
// Errors that are not validator errors become a single bad request error.
func FieldErrors(err error) []*errors.AppError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []*errors.AppError{errors.New(errors.ErrCodeBadRequest, "Malformed request body")}
	}

	out := make([]*errors.AppError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, errors.NewValidationError(fieldName(fe), reason(fe)))
	}
	return out
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return fe.StructField()
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "anonid":
		return "is not a valid anonymous id"
	}
	return "failed " + fe.Tag() + " validation"
}
