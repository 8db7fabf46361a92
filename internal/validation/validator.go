// Package validation wraps go-playground/validator with form-field names and
// human readable messages.
package validation

import (
	"errors"
	"fmt"
	"folio/internal/apperr"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate

	usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)
	slugRe     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"form", "json"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return strings.ToLower(fld.Name)
}

func register(v *validator.Validate) {
	v.RegisterTagNameFunc(fieldName)
	// 字母、数字和 @ . + - _
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	// 密码不能全是数字
	_ = v.RegisterValidation("notnumeric", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		_, err := strconv.ParseUint(s, 10, 64)
		return err != nil
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRe.MatchString(fl.Field().String())
	})
	v.RegisterAlias("pwd", "min=8,notnumeric")
	v.RegisterAlias("level", "gte=1,lte=5")
	v.RegisterAlias("day", "datetime=2006-01-02")
}

// Init configures the validator used by gin binding the same way as Struct.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		register(v)
	}
}

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		register(validate)
	})
	return validate
}

// Struct validates s and returns an apperr invalid error carrying one message
// per failing field, or nil.
func Struct(s any) error {
	if err := instance().Struct(s); err != nil {
		return apperr.Invalid(ToDetails(err))
	}
	return nil
}

// ToDetails converts validation or binding errors into field -> message.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			if _, dup := out[fe.Field()]; !dup {
				out[fe.Field()] = formatFieldError(fe)
			}
		}
		return out
	}

	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return map[string]string{"form": "contains an invalid number"}
	}
	return map[string]string{"form": "invalid form submission"}
}

func formatFieldError(fe validator.FieldError) string {
	param := fe.Param()
	// 别名按实际失败的规则给出提示
	switch fe.ActualTag() {
	case "required":
		return "This field is required."
	case "required_if", "required_with":
		return "This field is required here."
	case "excluded_if", "excluded_with":
		return "Leave this field empty here."
	case "min":
		if isNumberKind(fe.Kind()) {
			return "Ensure this value is at least " + param + "."
		}
		return "Ensure this value has at least " + param + " characters."
	case "max":
		if isNumberKind(fe.Kind()) {
			return "Ensure this value is at most " + param + "."
		}
		return "Ensure this value has at most " + param + " characters."
	case "gte":
		return "Ensure this value is greater than or equal to " + param + "."
	case "lte":
		return "Ensure this value is less than or equal to " + param + "."
	case "oneof":
		return "Select one of: " + strings.Join(strings.Fields(param), ", ") + "."
	case "url", "http_url":
		return "Enter a valid URL."
	case "hexcolor":
		return "Enter a hex color such as #6c757d."
	case "datetime":
		return "Enter a valid date (YYYY-MM-DD)."
	case "eqfield":
		return "The two " + strings.ToLower(param) + " fields didn't match."
	case "username":
		return "Enter a valid username. It may contain only letters, numbers, and @/./+/-/_ characters."
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "notnumeric":
		return "This password is entirely numeric."
	default:
		if param != "" {
			return fmt.Sprintf("Failed the %s=%s check.", fe.ActualTag(), param)
		}
		return fmt.Sprintf("Failed the %s check.", fe.ActualTag())
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
