package http

import (
	"errors"
	"log"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"quizify-service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// errorBody is the payload of every failed request.
type errorBody struct {
	Message string            `json:"message"`
	Kind    domain.Kind       `json:"kind"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindAuthentication:
		return http.StatusUnauthorized
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict, domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnexpected:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// writeError aborts the request with the JSON form of err. Unexpected failures are logged and
// only carry their detail when exposeDetail is set.
func writeError(c *gin.Context, err error, exposeDetail bool) {
	var de *domain.Error
	if errors.As(err, &de) {
		c.AbortWithStatusJSON(statusFor(de.Kind), errorBody{Message: de.Message, Kind: de.Kind})
		return
	}

	log.Printf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	body := errorBody{Message: "Server error", Kind: domain.KindUnexpected}
	if exposeDetail {
		body.Error = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}

// bindingError renders a request decoding failure, listing each invalid field by its JSON name.
func bindingError(err error) errorBody {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errorBody{Message: "Invalid request body", Kind: domain.KindValidation}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fieldReason(fe)
	}
	return errorBody{Message: "Validation failed", Kind: domain.KindValidation, Errors: fields}
}

// fieldPath drops the request struct's own name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid"
}

var tagNameOnce sync.Once

// useJSONFieldNames makes validator report fields under their JSON names.
func useJSONFieldNames() {
	tagNameOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	})
}
