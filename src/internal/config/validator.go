package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidateConfig validates the entire configuration and returns all validation errors
func (c *Config) ValidateConfig() error {
	var validationErrors ValidationErrors

	if c.General == nil {
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: "general",
			Message:   "configuration must contain 'general' section",
		})
		return validationErrors
	}

	if err := validate.Struct(c.General); err != nil {
		validationErrors = append(validationErrors, convertValidatorErrors(err, "general", "")...)
	}

	if c.Forward == nil {
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: "forward",
			Message:   "configuration must contain 'forward' section",
		})
	} else {
		validationErrors = append(validationErrors, c.validateForward()...)
	}

	validationErrors = append(validationErrors, c.validateRedirect()...)

	if c.API.IsEnabled() {
		if err := validate.Struct(c.API); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, "api", "")...)
		}
	}

	if c.Injections != nil {
		validationErrors = append(validationErrors, c.validateInjections()...)
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}

	return nil
}

func (c *Config) validateForward() ValidationErrors {
	var validationErrors ValidationErrors

	if err := validate.Struct(c.Forward); err != nil {
		validationErrors = append(validationErrors, convertValidatorErrors(err, "forward", "")...)
	}

	seen := make(map[string]bool)
	for _, server := range c.Forward.Servers {
		key := strings.ToLower(strings.TrimSpace(server))
		if key == "" {
			continue
		}
		if seen[key] {
			validationErrors = append(validationErrors, ValidationError{
				FieldPath: "forward.servers",
				Message:   fmt.Sprintf("duplicate server: %s", server),
			})
		}
		seen[key] = true
	}

	return validationErrors
}

func (c *Config) validateRedirect() ValidationErrors {
	var validationErrors ValidationErrors

	if !c.Redirect.IsEnabled() {
		return nil
	}

	if err := validate.Struct(c.Redirect); err != nil {
		validationErrors = append(validationErrors, convertValidatorErrors(err, "redirect", "")...)
	}

	if len(c.Redirect.Interfaces) == 0 {
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: "redirect.interfaces",
			Message:   "must specify at least one interface when redirect is enabled",
		})
	}

	seenIfaces := make(map[string]bool)
	for _, iface := range c.Redirect.Interfaces {
		if seenIfaces[iface] {
			validationErrors = append(validationErrors, ValidationError{
				FieldPath: "redirect.interfaces",
				Message:   fmt.Sprintf("duplicate interface: %s", iface),
			})
		}
		seenIfaces[iface] = true
	}

	rule := strings.Join(c.Redirect.Rule, " ")
	if !strings.Contains(rule, "{{port}}") {
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: "redirect.rule",
			Message:   "rule must reference {{port}}",
		})
	}

	return validationErrors
}

func (c *Config) validateInjections() ValidationErrors {
	var validationErrors ValidationErrors
	inj := c.Injections

	if inj.DomainBlocklist != nil {
		validationErrors = append(validationErrors, c.validateDomainList("injections.domain_blocklist", inj.DomainBlocklist)...)
	}
	if inj.DomainAllowlist != nil {
		validationErrors = append(validationErrors, c.validateDomainList("injections.domain_allowlist", inj.DomainAllowlist)...)
	}

	if inj.DNSOverride != nil {
		if len(inj.DNSOverride.Mappers) == 0 {
			validationErrors = append(validationErrors, ValidationError{
				FieldPath: "injections.dns_override.mappers",
				Message:   "must specify at least one mapper",
			})
		}

		names := make([]string, 0, len(inj.DNSOverride.Mappers))
		for name := range inj.DNSOverride.Mappers {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if err := validate.Struct(inj.DNSOverride.Mappers[name]); err != nil {
				validationErrors = append(validationErrors, convertValidatorErrors(err, "injections.dns_override.mappers", name)...)
			}
		}
	}

	if inj.DNSSEC != nil {
		if err := validate.Struct(inj.DNSSEC); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, "injections.dnssec", "")...)
		}
	}

	if inj.Cache != nil {
		if err := validate.Struct(inj.Cache); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, "injections.cache", "")...)
		}
	}

	return validationErrors
}

func (c *Config) validateDomainList(fieldPrefix string, list *DomainListConfig) ValidationErrors {
	var validationErrors ValidationErrors

	if err := validate.Struct(list); err != nil {
		validationErrors = append(validationErrors, convertValidatorErrors(err, fieldPrefix, "")...)
	}

	// Validate files exist
	for _, path := range list.Lists {
		if path == "" {
			continue
		}
		file := c.ResolvePath(path)
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			validationErrors = append(validationErrors, ValidationError{
				FieldPath: fieldPrefix + ".lists",
				Message:   fmt.Sprintf("file does not exist: %s", file),
			})
		}
	}

	return validationErrors
}

// convertValidatorErrors converts go-playground/validator errors to our ValidationError format
func convertValidatorErrors(err error, fieldPrefix string, itemName string) ValidationErrors {
	var validationErrors ValidationErrors

	var validatorErrs validator.ValidationErrors
	if errors.As(err, &validatorErrs) {
		for _, e := range validatorErrs {
			fieldPath := fieldPrefix
			if e.Field() != "" {
				// e.Field() returns the TOML tag name because of the registered TagNameFunc
				if fieldPrefix != "" {
					fieldPath = fieldPrefix + "." + e.Field()
				} else {
					fieldPath = e.Field()
				}
			}

			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: fieldPath,
				Message:   getValidationMessage(e),
			})
		}
	}

	return validationErrors
}
