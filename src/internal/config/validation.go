package config

import (
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strings"

	"github.com/dnsprotect/dnsprotect/src/internal/injections"
	"github.com/dnsprotect/dnsprotect/src/internal/upstreams"
	"github.com/go-playground/validator/v10"
)

// getValidationMessage returns a human-readable message for a validation error
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("must be >= %s", e.Param())
	case "max":
		return fmt.Sprintf("must be <= %s", e.Param())
	case "ip":
		return "must be a valid IP address"
	case "hostport_or_empty":
		return "must be in format 'host:port' or empty"
	case "forward_method":
		return "must be one of: doh, dot"
	case "lb_strategy":
		return "must be one of: random, round-robin"
	case "dnssec_mode":
		return "must be one of: change, block"
	case "cache_url":
		return "must be a redis://, rediss:// or memory:// URL"
	default:
		return fmt.Sprintf("validation failed: %s", e.Tag())
	}
}

// ValidationError represents a single validation error with context
type ValidationError struct {
	ItemName  string // Name of the item for keyed sections (e.g. a dns_override mapper)
	FieldPath string // Dot-notation field path (e.g. "forward.servers", "general.listen_port")
	Message   string // Human-readable error message
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("validation failed with %d error(s):\n", len(ve)))
	for i, err := range ve {
		if err.ItemName != "" {
			sb.WriteString(fmt.Sprintf("  %d. [%s] %s: %s\n", i+1, err.ItemName, err.FieldPath, err.Message))
		} else {
			sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.FieldPath, err.Message))
		}
	}
	return sb.String()
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Register custom validators
	if err := validate.RegisterValidation("hostport_or_empty", validateHostPortOrEmpty); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("forward_method", validateForwardMethod); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("lb_strategy", validateLBStrategy); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("dnssec_mode", validateDNSSECMode); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("cache_url", validateCacheURL); err != nil {
		panic(err)
	}

	// Register function to get field name from "toml" tag
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validator: host:port format or empty
func validateHostPortOrEmpty(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, _, err := net.SplitHostPort(value)
	return err == nil
}

func validateForwardMethod(fl validator.FieldLevel) bool {
	_, err := upstreams.ParseMethod(fl.Field().String())
	return err == nil
}

func validateLBStrategy(fl validator.FieldLevel) bool {
	_, err := upstreams.ParseStrategy(fl.Field().String())
	return err == nil
}

func validateDNSSECMode(fl validator.FieldLevel) bool {
	_, err := injections.ParseDNSSECMode(fl.Field().String())
	return err == nil
}

// Custom validator: cache store URL
func validateCacheURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "redis", "rediss":
		return u.Host != ""
	case "memory":
		return true
	default:
		return false
	}
}
