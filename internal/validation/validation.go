// Package validation provides input validation for the risk API.
package validation

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxBatchSize is the maximum number of accounts per batch request.
const MaxBatchSize = 100

var (
	// entityIDRegex matches ledger entity IDs in shard.realm.num form (e.g. 0.0.1234).
	entityIDRegex = regexp.MustCompile(`^\d{1,10}\.\d{1,10}\.\d{1,19}$`)
	// evmAliasRegex matches 20-byte hex account aliases.
	evmAliasRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidAccountID checks for an entity ID (0.0.1234) or an EVM alias (0x + 40 hex).
func IsValidAccountID(id string) bool {
	return entityIDRegex.MatchString(id) || evmAliasRegex.MatchString(id)
}

// SanitizeAccountID trims whitespace and lowercases EVM aliases.
func SanitizeAccountID(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "0x") || strings.HasPrefix(id, "0X") {
		return strings.ToLower(id)
	}
	return id
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate validates a request and returns errors
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errors ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errors = append(errors, *err)
		}
	}
	return errors
}

// Required checks if a field is non-empty
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// ValidAccountID checks if a field is a valid account ID
func ValidAccountID(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil // Use Required for required fields
		}
		if !IsValidAccountID(value) {
			return &ValidationError{Field: field, Message: "must be an entity ID (0.0.1234) or EVM alias (0x...)"}
		}
		return nil
	}
}

// ValidAccountIDs checks a non-empty, bounded list of account IDs.
func ValidAccountIDs(field string, values []string) func() *ValidationError {
	return func() *ValidationError {
		if len(values) == 0 {
			return &ValidationError{Field: field, Message: "at least one account ID is required"}
		}
		if len(values) > MaxBatchSize {
			return &ValidationError{Field: field, Message: fmt.Sprintf("at most %d account IDs per request", MaxBatchSize)}
		}
		for i, v := range values {
			if !IsValidAccountID(v) {
				return &ValidationError{Field: fmt.Sprintf("%s[%d]", field, i), Message: "invalid account ID"}
			}
		}
		return nil
	}
}

// AccountParamMiddleware validates the :account URL parameter on routes that use it.
func AccountParamMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("account")
		if id != "" && !IsValidAccountID(SanitizeAccountID(id)) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_account",
				"message": "account must be an entity ID (0.0.1234) or EVM alias (0x + 40 hex chars)",
			})
			return
		}
		c.Next()
	}
}
