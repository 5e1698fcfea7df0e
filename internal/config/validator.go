// internal/config/validator.go
//
// Configuration validation.
//
// Context
// -------
// Load calls validateStruct once the merged tree is unmarshalled and every
// vault: reference is resolved.  Field tags in model.go cover single values.
// Rules that span sections live in checkConfig, registered as a struct-level
// validation so both kinds come back in one error.
//
// Errors name the koanf key ("session.secret"), not the Go field, because
// that is what an operator edits.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	val.RegisterStructValidation(checkConfig, Config{})
	return val
}

// checkConfig holds the cross-section rules.
func checkConfig(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)

	if c.Session.Store == "redis" && c.Redis.Addr == "" {
		sl.ReportError(c.Redis.Addr, "redis.addr", "Addr", "required_with_redis_store", "")
	}
	if placeholderSecret(c.Session.Secret) {
		sl.ReportError(c.Session.Secret, "session.secret", "Secret", "not_placeholder", "")
	}
	if u, err := url.Parse(c.Backend.BaseURL); c.Backend.BaseURL != "" && err == nil && u.Scheme != "http" && u.Scheme != "https" {
		sl.ReportError(c.Backend.BaseURL, "backend.base_url", "BaseURL", "http_url", "")
	}
}

// placeholderSecret catches sample values copied into a deployment.
func placeholderSecret(s string) bool {
	l := strings.ToLower(s)
	for _, p := range []string{"change-me", "changeme", "replace-me", "example", "secret-secret"} {
		if strings.Contains(l, p) {
			return true
		}
	}
	return false
}

// validateStruct returns nil, or one error listing every failed rule.
func validateStruct(c *Config) error {
	err := v.Struct(c)
	var fe validator.ValidationErrors
	if !errors.As(err, &fe) {
		return err
	}
	msgs := make([]error, 0, len(fe))
	for _, e := range fe {
		msgs = append(msgs, fmt.Errorf("%s: %s", keyOf(e), describe(e)))
	}
	return errors.Join(msgs...)
}

// keyOf strips the root struct name from the namespace, "Config.session.secret".
func keyOf(e validator.FieldError) string {
	if _, rest, ok := strings.Cut(e.Namespace(), "."); ok && rest != "" {
		return rest
	}
	return e.Field()
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param() + " long"
	case "oneof":
		return "must be one of " + e.Param()
	case "gt", "gte", "lte":
		return fmt.Sprintf("must be %s %s", e.Tag(), e.Param())
	case "url", "http_url":
		return "must be an http(s) URL"
	case "hostname_port":
		return "must be host:port"
	case "not_placeholder":
		return "still holds a sample value; generate a random secret"
	case "required_with_redis_store":
		return "is required when session.store is redis"
	}
	return "failed " + e.Tag()
}
