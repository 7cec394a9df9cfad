package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks a fully loaded configuration. Missing credentials are not a
// validation failure here; they surface when a credential strategy is resolved.
func Validate(c HelixConfig) ValidationErrors {
	var errs ValidationErrors

	if _, err := ParseCloudType(string(c.CloudType)); err != nil {
		errs.Add("cloudType", err.Error(), c.CloudType)
	}

	switch c.Server.Transport {
	case MCPTransportStdio, MCPTransportStreamableHTTP, MCPTransportSSE:
	default:
		errs.Add("server.transport", fmt.Sprintf("must be one of %s, %s, %s",
			MCPTransportStdio, MCPTransportStreamableHTTP, MCPTransportSSE), c.Server.Transport)
	}

	if c.Server.Transport != MCPTransportStdio && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs.Add("server.port", "must be between 1 and 65535", c.Server.Port)
	}

	if c.EnabledTools != "" {
		if _, err := regexp.Compile(c.EnabledTools); err != nil {
			errs.Add("enabledTools", fmt.Sprintf("invalid regular expression: %v", err), c.EnabledTools)
		}
	}

	return errs
}
