package mcp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/trackboard/internal/domain/project"
)

// APIError represents an MCP tool error.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

// MapError maps request layer errors to tool error codes. Unknown errors are
// returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var verr *project.ValidationError
	switch {
	case errors.As(err, &verr):
		return &APIError{
			Code:         "VALIDATION_FAILED",
			Message:      "missing or invalid fields: " + strings.Join(verr.Fields, ", "),
			RecoveryHint: "Supply every field in the documented format",
		}
	case errors.Is(err, project.ErrNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found", RecoveryHint: "Call list_projects for current ids"}
	case errors.Is(err, project.ErrTransient):
		return &APIError{Code: "TRANSIENT", Message: err.Error(), RecoveryHint: "Retry the call once"}
	default:
		return err
	}
}
