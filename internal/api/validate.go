package api

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"tutorhub/internal/principal"
)

const batchMessage = "must be one of Udbhav, Aarambh, Lakshya, Prayas"

var registerOnce sync.Once

// registerValidators installs the batch and role tags on gin's validator and makes field
// errors report json names.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("batch", func(fl validator.FieldLevel) bool {
			_, ok := principal.ParseBatch(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			_, err := principal.ParseRole(fl.Field().String())
			return err == nil
		})
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "batch":
		return batchMessage
	case "role":
		return "must be student or teacher"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "failed " + fe.Tag() + " validation"
}
