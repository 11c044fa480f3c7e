package models

import "fmt"

// TargetKind discriminates what a report points at.
type TargetKind string

const (
	TargetThread   TargetKind = "thread"
	TargetResponse TargetKind = "response"
	TargetProfile  TargetKind = "profile"
)

// Target identifies the single subject of a report: a thread, a response,
// or a user profile. Construct it through the helpers below so that exactly
// one kind is ever set.
type Target struct {
	Kind TargetKind
	ID   string
}

// ThreadTarget points at a board thread.
func ThreadTarget(threadID string) Target {
	return Target{Kind: TargetThread, ID: threadID}
}

// ResponseTarget points at a single response inside a thread.
func ResponseTarget(responseID string) Target {
	return Target{Kind: TargetResponse, ID: responseID}
}

// ProfileTarget points at a user profile; the ID is the reported user's ID.
func ProfileTarget(userID string) Target {
	return Target{Kind: TargetProfile, ID: userID}
}

// ParseTarget rebuilds a Target from a kind string and an id, e.g. from CLI
// arguments. Returns an error for unknown kinds or empty ids.
func ParseTarget(kind, id string) (Target, error) {
	if id == "" {
		return Target{}, fmt.Errorf("target id must not be empty")
	}
	switch TargetKind(kind) {
	case TargetThread:
		return ThreadTarget(id), nil
	case TargetResponse:
		return ResponseTarget(id), nil
	case TargetProfile:
		return ProfileTarget(id), nil
	default:
		return Target{}, fmt.Errorf("unknown target kind %q", kind)
	}
}

// IsZero reports whether the target was never set.
func (t Target) IsZero() bool {
	return t.Kind == "" || t.ID == ""
}

// String renders the target as "kind:id", used for cache keys and log fields.
func (t Target) String() string {
	return string(t.Kind) + ":" + t.ID
}
