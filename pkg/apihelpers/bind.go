package apihelpers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerTagNames sync.Once

func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
}

// BindJSON decodes the request body into obj and runs its binding rules. Rule violations are
// returned as a ValidationError listing every offending field.
func BindJSON(c *gin.Context, obj any) error {
	useJSONFieldNames()

	err := c.ShouldBindJSON(obj)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]FieldError, 0, len(validationErrs))
		for _, fe := range validationErrs {
			details = append(details, FieldError{Field: fe.Field(), Message: describeRule(fe)})
		}
		return ValidationError(details...)
	}
	return &APIError{Status: http.StatusBadRequest, Message: "invalid request body", Err: err}
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return "is invalid"
}
