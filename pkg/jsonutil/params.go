package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Dimash999666/data-quality-platform/pkg/apperrors"
)

// ParseParameters parses rule parameters typed by the operator.
// Blank input yields an empty object; anything that is not a JSON object is
// rejected with an error wrapping apperrors.ErrLocalValidation.
func ParseParameters(input string) (map[string]any, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return map[string]any{}, nil
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(trimmed), &params); err != nil {
		return nil, fmt.Errorf("%w: parameters must be a JSON object: %v", apperrors.ErrLocalValidation, err)
	}
	if params == nil {
		return nil, fmt.Errorf("%w: parameters must be a JSON object, got null", apperrors.ErrLocalValidation)
	}

	return params, nil
}
