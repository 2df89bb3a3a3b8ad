// Package rtc adapts the LiveKit server API to the session provider and
// recorder ports used by the space services.
package rtc

import (
	"context"
	"fmt"
	"time"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/vocespace/spacekeeper/internal/config"
	"github.com/vocespace/spacekeeper/internal/modules/model"
)

// Provider lists live rooms and their participants.
type Provider struct {
	rooms *lksdk.RoomServiceClient
}

func NewProvider(cfg *config.Config) *Provider {
	return &Provider{
		rooms: lksdk.NewRoomServiceClient(cfg.LiveKit.URL, cfg.LiveKit.APIKey, cfg.LiveKit.APISecret),
	}
}

func (p *Provider) ListActiveSessions(ctx context.Context) ([]model.Session, error) {
	res, err := p.rooms.ListRooms(ctx, &livekit.ListRoomsRequest{})
	if err != nil {
		return nil, fmt.Errorf("livekit list rooms: %w", err)
	}
	return sessionsFromRooms(res.GetRooms()), nil
}

func (p *Provider) ListParticipants(ctx context.Context, sessionID string) ([]model.SessionParticipant, error) {
	res, err := p.rooms.ListParticipants(ctx, &livekit.ListParticipantsRequest{Room: sessionID})
	if err != nil {
		return nil, fmt.Errorf("livekit list participants of %s: %w", sessionID, err)
	}
	return participantsFromInfo(res.GetParticipants()), nil
}

func sessionsFromRooms(rooms []*livekit.Room) []model.Session {
	out := make([]model.Session, 0, len(rooms))
	for _, r := range rooms {
		if r.GetName() == "" {
			continue
		}
		out = append(out, model.Session{ID: r.GetName()})
	}
	return out
}

// participantsFromInfo keeps human participants only. Egress, ingress and
// agent participants never own a cached ParticipantSettings entry.
func participantsFromInfo(infos []*livekit.ParticipantInfo) []model.SessionParticipant {
	out := make([]model.SessionParticipant, 0, len(infos))
	for _, p := range infos {
		if p.GetKind() != livekit.ParticipantInfo_STANDARD || p.GetIdentity() == "" {
			continue
		}
		out = append(out, model.SessionParticipant{Identity: p.GetIdentity()})
	}
	return out
}

// Recorder captures a room through LiveKit egress into the configured bucket.
type Recorder struct {
	egress *lksdk.EgressClient
	s3     config.S3Cfg
	now    func() time.Time
}

func NewRecorder(cfg *config.Config) *Recorder {
	return &Recorder{
		egress: lksdk.NewEgressClient(cfg.LiveKit.URL, cfg.LiveKit.APIKey, cfg.LiveKit.APISecret),
		s3:     cfg.S3,
		now:    time.Now,
	}
}

func (r *Recorder) StartRecording(ctx context.Context, spaceID string) (string, string, error) {
	path := recordingPath(spaceID, r.now())
	out := &livekit.EncodedFileOutput{
		FileType: livekit.EncodedFileType_MP4,
		Filepath: path,
	}
	if r.s3.Bucket != "" {
		out.Output = &livekit.EncodedFileOutput_S3{S3: &livekit.S3Upload{
			AccessKey:      r.s3.AccessKey,
			Secret:         r.s3.SecretKey,
			Region:         r.s3.Region,
			Endpoint:       r.s3.Endpoint,
			Bucket:         r.s3.Bucket,
			ForcePathStyle: r.s3.UsePathStyle,
		}}
	}

	info, err := r.egress.StartRoomCompositeEgress(ctx, &livekit.RoomCompositeEgressRequest{
		RoomName:    spaceID,
		Layout:      "grid",
		FileOutputs: []*livekit.EncodedFileOutput{out},
	})
	if err != nil {
		return "", "", fmt.Errorf("livekit start egress for %s: %w", spaceID, err)
	}
	return info.GetEgressId(), path, nil
}

func (r *Recorder) StopRecording(ctx context.Context, egressID string) error {
	if _, err := r.egress.StopEgress(ctx, &livekit.StopEgressRequest{EgressId: egressID}); err != nil {
		return fmt.Errorf("livekit stop egress %s: %w", egressID, err)
	}
	return nil
}

func recordingPath(spaceID string, t time.Time) string {
	return fmt.Sprintf("%s/%s.mp4", spaceID, t.UTC().Format("20060102-150405"))
}
