package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLinkRedirect(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr error
		check   func(t *testing.T, ev LinkRedirectEvent)
	}{
		{
			name:    "by link id",
			payload: `{"link_id":42,"user_agent":"Mozilla/5.0","ip":"8.8.8.8","timestamp":"2024-05-01T12:00:00Z"}`,
			check: func(t *testing.T, ev LinkRedirectEvent) {
				assert.Equal(t, int64(42), ev.LinkID)
				assert.Equal(t, "8.8.8.8", ev.IP)
				assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), ev.Timestamp)
			},
		},
		{
			name:    "by stats id, no user agent or ip",
			payload: `{"link_stats_id":7,"timestamp":"2024-05-01T12:00:00Z"}`,
			check: func(t *testing.T, ev LinkRedirectEvent) {
				assert.Equal(t, int64(7), ev.LinkStatsID)
				assert.Empty(t, ev.UserAgent)
				assert.Empty(t, ev.IP)
			},
		},
		{
			name:    "missing both identifiers",
			payload: `{"timestamp":"2024-05-01T12:00:00Z"}`,
			wantErr: ErrInvalidPayload,
		},
		{
			name:    "missing timestamp",
			payload: `{"link_id":42}`,
			wantErr: ErrInvalidPayload,
		},
		{
			name:    "not json",
			payload: `{"link_id":`,
			wantErr: ErrInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(KindLinkRedirect, []byte(tt.payload))

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			ev, ok := got.(LinkRedirectEvent)
			require.True(t, ok)
			tt.check(t, ev)
		})
	}
}

func TestDecodeAccountsMerged(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{name: "valid", payload: `{"source_user_id":10,"target_user_id":20}`},
		{name: "missing target", payload: `{"source_user_id":10}`, wantErr: true},
		{name: "same user", payload: `{"source_user_id":10,"target_user_id":10}`, wantErr: true},
		{name: "negative id", payload: `{"source_user_id":-1,"target_user_id":20}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(KindAccountsMerged, []byte(tt.payload))

			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPayload)
				return
			}

			require.NoError(t, err)
			ev := got.(AccountsMergedEvent)
			assert.Equal(t, int64(10), ev.SourceUserID)
			assert.Equal(t, int64(20), ev.TargetUserID)
		})
	}
}

func TestDecodeUserDeleted(t *testing.T) {
	got, err := Decode(KindUserDeleted, []byte(`{"user_id":5}`))
	require.NoError(t, err)
	assert.Equal(t, UserDeletedEvent{UserID: 5}, got)

	_, err = Decode(KindUserDeleted, []byte(`{"user_id":0}`))
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode(Kind("LINK_EXPIRED"), []byte(`{}`))
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestKindSubjects(t *testing.T) {
	assert.Equal(t, "events.link_redirect", KindLinkRedirect.Subject())
	assert.Equal(t, "events.user_accounts_merged", KindAccountsMerged.Subject())
	assert.Equal(t, "events.user_deleted", KindUserDeleted.Subject())
	assert.Empty(t, Kind("bogus").Subject())
}
