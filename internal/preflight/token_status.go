package preflight

import (
	"context"
	"fmt"
	"time"
)

// TokenSource is the view of the token controller the status output needs.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	LastRefreshed(ctx context.Context) (time.Time, bool, error)
	NeedsTokenRefresh(ctx context.Context) bool
}

// TokenStatus reports the current token snapshot.
type TokenStatus struct {
	Present       bool
	Token         string
	LastRefreshed time.Time
	HasTimestamp  bool
	Age           time.Duration
	NeedsRefresh  bool
	Err           error
}

// ProbeToken reads the token state from src without contacting the API.
func ProbeToken(ctx context.Context, src TokenSource, now time.Time) TokenStatus {
	token, err := src.AccessToken(ctx)
	if err != nil {
		return TokenStatus{Err: err}
	}
	status := TokenStatus{
		Present:      token != "",
		Token:        token,
		NeedsRefresh: src.NeedsTokenRefresh(ctx),
	}
	last, ok, err := src.LastRefreshed(ctx)
	if err != nil {
		status.Err = err
		return status
	}
	if ok {
		status.HasTimestamp = true
		status.LastRefreshed = last
		status.Age = now.Sub(last)
	}
	return status
}

// Days returns the token age in whole days.
func (s TokenStatus) Days() int {
	return int(s.Age / (24 * time.Hour))
}

// Detail renders a display-friendly summary for status UIs.
func (s TokenStatus) Detail() string {
	switch {
	case s.Err != nil:
		return fmt.Sprintf("token store error (%v)", s.Err)
	case !s.Present:
		return "No token linked"
	case !s.HasTimestamp:
		return "Token linked, refresh time unknown (refresh due)"
	case s.NeedsRefresh:
		return fmt.Sprintf("Token refreshed %d days ago (refresh due)", s.Days())
	default:
		return fmt.Sprintf("Token refreshed %d days ago", s.Days())
	}
}

// Result converts the snapshot into a preflight Result.
func (s TokenStatus) Result() Result {
	return Result{
		Name:   "Access token",
		Passed: s.Err == nil && s.Present,
		Detail: s.Detail(),
	}
}
