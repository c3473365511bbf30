package config

import (
	"reflect"

	amrerr "github.com/AzureManagedRedis/mcp-amr/pkg/errors"
)

// Validator lets a configuration struct carry checks that tags cannot
// express, such as cross-field rules or mode-dependent requirements.
// [Loader.Load] calls Validate after the required-tag pass succeeds.
//
// A returned [*amrerr.Error] passes through unchanged; any other error
// is wrapped with [amrerr.CodeValidation].
//
//	func (c *GatewayConfig) Validate() error {
//	    if c.Port < 1 || c.Port > 65535 {
//	        return amrerr.Newf(amrerr.CodeValidation,
//	            "config: port %d is out of range [1, 65535]", c.Port)
//	    }
//	    return nil
//	}
type Validator interface {
	Validate() error
}

// validate runs the required-tag pass and then the Validator hook. cfg
// is the original interface value so the type assertion sees pointer
// receivers; rv is its dereferenced struct value.
func validate(cfg any, rv reflect.Value) error {
	if err := validateRequired(rv, ""); err != nil {
		return err
	}

	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			if _, isAMR := amrerr.AsError(err); isAMR {
				return err
			}
			return amrerr.Wrap(err, amrerr.CodeValidation,
				"config: custom validation failed")
		}
	}
	return nil
}

// validateRequired walks the struct and fails on the first zero-valued
// field tagged `required:"true"`. path accumulates the dotted field
// path used in the error message, e.g. "Redis.Host".
func validateRequired(rv reflect.Value, path string) error {
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		sf := rt.Field(i)

		if !field.CanSet() {
			continue
		}

		fieldPath := sf.Name
		if path != "" {
			fieldPath = path + "." + sf.Name
		}

		if field.Kind() == reflect.Struct {
			if err := validateRequired(field, fieldPath); err != nil {
				return err
			}
			continue
		}

		if sf.Tag.Get("required") == "true" && field.IsZero() {
			return amrerr.Newf(amrerr.CodeValidationRequired,
				"config: required field %q is empty", fieldPath)
		}
	}
	return nil
}
