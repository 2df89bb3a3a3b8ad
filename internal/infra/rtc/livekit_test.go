package rtc

import (
	"testing"
	"time"

	"github.com/livekit/protocol/livekit"
	"github.com/stretchr/testify/assert"
	"github.com/vocespace/spacekeeper/internal/modules/model"
)

func TestSessionsFromRooms(t *testing.T) {
	rooms := []*livekit.Room{
		{Name: "alpha", NumParticipants: 2},
		{Name: ""},
		{Name: "beta"},
	}
	assert.Equal(t, []model.Session{{ID: "alpha"}, {ID: "beta"}}, sessionsFromRooms(rooms))
	assert.Empty(t, sessionsFromRooms(nil))
}

func TestParticipantsFromInfo(t *testing.T) {
	infos := []*livekit.ParticipantInfo{
		{Identity: "A", Kind: livekit.ParticipantInfo_STANDARD},
		{Identity: "EG_recorder", Kind: livekit.ParticipantInfo_EGRESS},
		{Identity: "agent-1", Kind: livekit.ParticipantInfo_AGENT},
		{Identity: "B", Kind: livekit.ParticipantInfo_STANDARD},
		{Identity: "", Kind: livekit.ParticipantInfo_STANDARD},
	}
	got := participantsFromInfo(infos)
	assert.Equal(t, []model.SessionParticipant{{Identity: "A"}, {Identity: "B"}}, got)
}

func TestRecordingPath(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "alpha/20260304-050607.mp4", recordingPath("alpha", ts))
}
