package instagram

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

var (
	// ErrMissingAccessToken is returned when a token response carries no access_token.
	ErrMissingAccessToken = errors.New("instagram: response missing access_token")
	// ErrNotAuthenticated is returned when no token is stored yet.
	ErrNotAuthenticated = errors.New("instagram: no access token stored")
	// ErrMissingData is returned when the media listing has no data field.
	ErrMissingData = errors.New("instagram: media response missing data")
	// ErrInvalidCount is returned for a non-positive media count.
	ErrInvalidCount = errors.New("instagram: count must be positive")
)

// ErrCodeInvalidToken is the Graph API code for an expired or revoked token.
const ErrCodeInvalidToken = 190

// APIError is a non-2xx response from the OAuth or Graph host.
type APIError struct {
	StatusCode int
	Endpoint   string
	Type       string
	Code       int
	Message    string
	TraceID    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "instagram api error: %s: status %d", e.Endpoint, e.StatusCode)
	if e.Type != "" {
		fmt.Fprintf(&b, ": %s", e.Type)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, " (code %d)", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

// IsTokenError reports whether err says the access token was rejected.
func IsTokenError(err error) bool {
	apiErr, ok := errors.AsType[*APIError](err)
	if !ok {
		return false
	}
	return apiErr.Code == ErrCodeInvalidToken ||
		apiErr.Type == "OAuthException" && apiErr.StatusCode == http.StatusUnauthorized
}

// The Graph host nests the error object; the OAuth host returns it flat.
type errorEnvelope struct {
	Error *struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
	ErrorType    string `json:"error_type"`
	Code         int    `json:"code"`
	ErrorMessage string `json:"error_message"`
}

func decodeAPIError(endpoint string, status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Endpoint: endpoint}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		apiErr.Message = truncateBody(body)
		return apiErr
	}
	switch {
	case env.Error != nil:
		apiErr.Type = env.Error.Type
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.TraceID = env.Error.FBTraceID
	case env.ErrorType != "" || env.ErrorMessage != "":
		apiErr.Type = env.ErrorType
		apiErr.Code = env.Code
		apiErr.Message = env.ErrorMessage
	default:
		apiErr.Message = truncateBody(body)
	}
	return apiErr
}

func truncateBody(body []byte) string {
	const limit = 256
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		return text[:cut] + "..."
	}
	return text
}
