// Package validation wires custom request validators into Gin's binding layer
package validation

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Initialize registers the custom validators the request models bind
// against. Must run before the router serves its first request.
func Initialize() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	for tag, fn := range map[string]validator.Func{
		"nospaces": notOnlySpaces,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
}

// notOnlySpaces rejects whitespace-only values, which "required" alone lets
// through. Used on the person-name fields of registration requests.
func notOnlySpaces(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
