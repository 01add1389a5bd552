package metrics

import (
	"time"

	obserrors "github.com/savitara/savitara-api/internal/observability/errors"
	"github.com/savitara/savitara-api/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultDenied  = "denied"
)

// Flow constants identify which sign-in path produced an event.
const (
	FlowGooglePopup    = "google_popup"
	FlowGoogleRedirect = "google_redirect"
	FlowPassword       = "password"
	FlowRefresh        = "refresh"
	FlowRegister       = "register"
)

// AuthEvent captures details about a sign-in lifecycle event for metric emission.
type AuthEvent struct {
	Flow     string
	Stage    string // begin, complete, cancel, login, rotate
	Result   string
	Duration time.Duration
	Err      error
}

// EmitAuthEvent emits standardised sign-in lifecycle metrics.
func EmitAuthEvent(sink statsd.Sink, in AuthEvent) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"flow":   in.Flow,
		"stage":  in.Stage,
		"result": in.Result,
	}

	if in.Err != nil && in.Result != ResultSuccess {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("auth.event", 1, tags)

	if in.Duration > 0 {
		sink.Timing("auth.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
