// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// The loader calls `validateStruct` right after it unmarshals the merged
// koanf tree.  Every failing tag becomes a *FieldError carrying
// ErrInvalidFormat, keyed by the koanf path rather than the Go field name.
//
// Custom rules
// ------------
//   - notblank: non-empty after trimming white space.
//   - absurl:   parses, untrimmed, as a URL with both a scheme and a host.

package config

import (
	"errors"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())

	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	must(val.RegisterValidation("notblank", validators.NotBlank))
	must(val.RegisterValidation("absurl", func(fl validator.FieldLevel) bool {
		return isAbsoluteURL(fl.Field().String())
	}))
	return val
}

func must(err error) {
	if err != nil {
		panic("config: register validation: " + err.Error())
	}
}

// isAbsoluteURL checks the value exactly as stored; surrounding white space
// makes it invalid.
func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

// validateStruct returns nil, or every rule violation joined together.
func validateStruct(c *Configuration) error {
	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, invalid(keyOf(fe.Namespace()), reasonOf(fe)))
	}
	return errors.Join(out...)
}

// keyOf drops the leading struct name: "Configuration.http.listen_addr"
// becomes "http.listen_addr".
func keyOf(ns string) string {
	if i := strings.IndexByte(ns, '.'); i != -1 {
		return ns[i+1:]
	}
	return ns
}

func reasonOf(fe validator.FieldError) string {
	switch fe.Tag() {
	case "notblank", "required":
		return "must not be empty"
	case "absurl":
		return "must be an absolute URL"
	case "hostname_port":
		return "must be host:port"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
