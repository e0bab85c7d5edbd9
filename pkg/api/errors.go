package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Dimash999666/data-quality-platform/pkg/apperrors"
	"github.com/Dimash999666/data-quality-platform/pkg/jsonutil"
)

// Kind classifies an Error.
type Kind string

const (
	// KindLocal is a request rejected before any network call.
	KindLocal Kind = "local"
	// KindTransport covers unreachable service, timeouts and malformed responses.
	KindTransport Kind = "transport"
	// KindService is a non-2xx response carrying a plain message.
	KindService Kind = "service"
	// KindStructured is a non-2xx response carrying a diagnostic object.
	KindStructured Kind = "structured"
	// KindDependencyConflict is a delete blocked by dependent versions.
	KindDependencyConflict Kind = "dependency_conflict"
)

// DependentVersionsCode is the typed code a service may send for a blocked delete.
const DependentVersionsCode = "dependent_versions"

// dependentVersionsPattern matches the service's free-text delete refusal,
// used only when no typed code is present.
var dependentVersionsPattern = regexp.MustCompile(`(?i)version\(s\) depend|depend(s|ent)? on this dataset|dependent versions`)

// Detail is the structured diagnostic the service attaches to a rejection.
// Every field is optional except Error.
type Detail struct {
	Error       string                   `json:"error"`
	Reason      string                   `json:"reason,omitempty"`
	Explanation string                   `json:"explanation,omitempty"`
	FoundIssues jsonutil.FlexibleStrings `json:"found_issues,omitempty"`
	HowToFix    string                   `json:"how_to_fix,omitempty"`
	Code        string                   `json:"code,omitempty"`
}

// Error is the single error type returned by the gateway.
type Error struct {
	Kind       Kind    // Classification of the error
	StatusCode int     // HTTP status code, 0 when no response was received
	Message    string  // One-line human-readable message
	Detail     *Detail // Structured diagnostic, nil unless Kind is structured (or local with detail)
	Method     string  // Request method if known
	Path       string  // Request path if known
	Cause      error   // Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Kind))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Method != "" && e.Path != "" {
		parts = append(parts, e.Method+" "+e.Path)
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is maps kinds and statuses onto the shared sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case apperrors.ErrLocalValidation:
		return e.Kind == KindLocal
	case apperrors.ErrDependentVersions:
		return e.Kind == KindDependencyConflict
	case apperrors.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// HasDetail reports whether a structured diagnostic is attached.
func (e *Error) HasDetail() bool {
	return e.Detail != nil
}

// NewLocalError creates an error for a request rejected before any network call.
func NewLocalError(message string, detail *Detail) *Error {
	return &Error{
		Kind:    KindLocal,
		Message: message,
		Detail:  detail,
	}
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// decodeError turns a non-2xx response into an *Error.
// The service wraps payloads as {"detail": ...} where detail is a string, a
// diagnostic object, or a list of field errors. A bare diagnostic object at
// the top level is accepted too. Anything else falls back to "<status> <statusText>".
func decodeError(statusCode int, status string, body []byte) *Error {
	fallback := &Error{
		Kind:       KindService,
		StatusCode: statusCode,
		Message:    statusLine(statusCode, status),
	}

	if len(body) == 0 || !gjson.ValidBytes(body) {
		return fallback
	}

	root := gjson.ParseBytes(body)
	detail := root.Get("detail")
	if !detail.Exists() {
		if root.IsObject() && root.Get("error").Type == gjson.String {
			detail = root
		} else {
			return fallback
		}
	}

	switch {
	case detail.Type == gjson.String:
		msg := strings.TrimSpace(detail.String())
		if msg == "" {
			return fallback
		}
		return &Error{Kind: KindService, StatusCode: statusCode, Message: msg}

	case detail.IsObject():
		var d Detail
		if err := json.Unmarshal([]byte(detail.Raw), &d); err != nil || strings.TrimSpace(d.Error) == "" {
			if msg := detail.Get("message").String(); msg != "" {
				return &Error{Kind: KindService, StatusCode: statusCode, Message: msg}
			}
			return fallback
		}
		return &Error{Kind: KindStructured, StatusCode: statusCode, Message: d.Error, Detail: &d}

	case detail.IsArray():
		var msgs []string
		detail.ForEach(func(_, item gjson.Result) bool {
			msg := item.Get("msg").String()
			if msg == "" {
				return true
			}
			var loc []string
			item.Get("loc").ForEach(func(_, part gjson.Result) bool {
				loc = append(loc, part.String())
				return true
			})
			if len(loc) > 0 {
				msg = strings.Join(loc, ".") + ": " + msg
			}
			msgs = append(msgs, msg)
			return true
		})
		if len(msgs) == 0 {
			return fallback
		}
		return &Error{Kind: KindService, StatusCode: statusCode, Message: strings.Join(msgs, "; ")}
	}

	return fallback
}

// classifyDeleteError upgrades a delete refusal to KindDependencyConflict.
// A typed code wins; the message match covers services that only send text.
func classifyDeleteError(apiErr *Error) *Error {
	if apiErr == nil || apiErr.Kind == KindTransport || apiErr.Kind == KindLocal {
		return apiErr
	}

	if apiErr.Detail != nil && apiErr.Detail.Code == DependentVersionsCode {
		apiErr.Kind = KindDependencyConflict
		return apiErr
	}

	if (apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusConflict) &&
		dependentVersionsPattern.MatchString(apiErr.Message) {
		apiErr.Kind = KindDependencyConflict
	}
	return apiErr
}

// statusLine renders "<status> <statusText>".
func statusLine(statusCode int, status string) string {
	status = strings.TrimSpace(status)
	if status != "" {
		// net/http already formats Status as "422 Unprocessable Entity"
		if strings.HasPrefix(status, fmt.Sprintf("%d", statusCode)) {
			return status
		}
		return fmt.Sprintf("%d %s", statusCode, status)
	}
	if text := http.StatusText(statusCode); text != "" {
		return fmt.Sprintf("%d %s", statusCode, text)
	}
	return fmt.Sprintf("%d", statusCode)
}
