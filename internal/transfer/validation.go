package transfer

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/maheshrc27/contentloop/internal/models"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("platform", func(fl validator.FieldLevel) bool {
			return models.Platform(fl.Field().String()).Valid()
		})

		_ = v.RegisterValidation("post_format", func(fl validator.FieldLevel) bool {
			return models.Format(fl.Field().String()).Valid()
		})

		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			_, _, err := models.ParseTimeOfDay(fl.Field().String())
			return err == nil
		})

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		validateInst = v
	})

	return validateInst
}

// Validate checks a request body and reports the first failing field as
// models.ErrInvalidInput.
func Validate(req interface{}) error {
	err := validatorInstance().Struct(req)
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		ve := ves[0]
		return fmt.Errorf("%w: %s failed validation for tag '%s'", models.ErrInvalidInput, fieldName(ve), ve.Tag())
	}
	return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
}

// fieldName drops the root struct name from the namespace, so
// "ItemCreation.media[0].url" becomes "media[0].url".
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
