// Package events defines the domain events carried on the broker.
//
// Each event kind has its own payload schema. Payloads are validated on
// decode and rejected when malformed; an unknown kind is an error, never
// silently coerced.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindLinkRedirect   Kind = "LINK_REDIRECT"
	KindAccountsMerged Kind = "USER_ACCOUNTS_MERGED"
	KindUserDeleted    Kind = "USER_DELETED"
)

// Subject maps an event kind to its broker subject.
func (k Kind) Subject() string {
	switch k {
	case KindLinkRedirect:
		return "events.link_redirect"
	case KindAccountsMerged:
		return "events.user_accounts_merged"
	case KindUserDeleted:
		return "events.user_deleted"
	}
	return ""
}

var (
	ErrUnknownKind    = errors.New("unknown event kind")
	ErrInvalidPayload = errors.New("invalid event payload")
)

// LinkRedirectEvent announces that a short link was visited. Either LinkID
// or LinkStatsID identifies the stats row to update; at least one must be
// set. UserAgent and IP may be absent.
type LinkRedirectEvent struct {
	LinkID      int64     `json:"link_id,omitempty"`
	LinkStatsID int64     `json:"link_stats_id,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	IP          string    `json:"ip,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e LinkRedirectEvent) Validate() error {
	if e.LinkID <= 0 && e.LinkStatsID <= 0 {
		return fmt.Errorf("%w: link redirect needs link_id or link_stats_id", ErrInvalidPayload)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: link redirect needs a timestamp", ErrInvalidPayload)
	}
	return nil
}

type AccountsMergedEvent struct {
	SourceUserID int64 `json:"source_user_id"`
	TargetUserID int64 `json:"target_user_id"`
}

func (e AccountsMergedEvent) Validate() error {
	if e.SourceUserID <= 0 || e.TargetUserID <= 0 {
		return fmt.Errorf("%w: merge needs positive source and target user ids", ErrInvalidPayload)
	}
	if e.SourceUserID == e.TargetUserID {
		return fmt.Errorf("%w: merge source and target must differ", ErrInvalidPayload)
	}
	return nil
}

type UserDeletedEvent struct {
	UserID int64 `json:"user_id"`
}

func (e UserDeletedEvent) Validate() error {
	if e.UserID <= 0 {
		return fmt.Errorf("%w: deletion needs a positive user id", ErrInvalidPayload)
	}
	return nil
}

// Decode unmarshals and validates the payload for the given kind.
// The returned value is one of LinkRedirectEvent, AccountsMergedEvent or
// UserDeletedEvent.
func Decode(kind Kind, data []byte) (any, error) {
	switch kind {
	case KindLinkRedirect:
		var ev LinkRedirectEvent
		if err := unmarshalPayload(data, &ev); err != nil {
			return nil, err
		}
		if err := ev.Validate(); err != nil {
			return nil, err
		}
		return ev, nil

	case KindAccountsMerged:
		var ev AccountsMergedEvent
		if err := unmarshalPayload(data, &ev); err != nil {
			return nil, err
		}
		if err := ev.Validate(); err != nil {
			return nil, err
		}
		return ev, nil

	case KindUserDeleted:
		var ev UserDeletedEvent
		if err := unmarshalPayload(data, &ev); err != nil {
			return nil, err
		}
		if err := ev.Validate(); err != nil {
			return nil, err
		}
		return ev, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
}

func unmarshalPayload(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
