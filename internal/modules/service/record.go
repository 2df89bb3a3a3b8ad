package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vocespace/spacekeeper/internal/modules/model"
	"go.uber.org/zap"
)

// Recorder starts and stops an external capture of a space's room.
type Recorder interface {
	StartRecording(ctx context.Context, spaceID string) (egressID, filePath string, err error)
	StopRecording(ctx context.Context, egressID string) error
}

// FileSigner turns a stored recording path into a time-limited download URL.
type FileSigner interface {
	PresignGet(ctx context.Context, key string, expire time.Duration) (string, error)
}

type RecordService interface {
	Start(ctx context.Context, spaceID, requesterID string) (*model.Space, error)
	Stop(ctx context.Context, spaceID, requesterID string) (*model.Space, error)
	DownloadURL(ctx context.Context, spaceID string) (string, error)
}

type recordService struct {
	spaces   SpaceService
	recorder Recorder
	signer   FileSigner
	expire   func() time.Duration
	log      *zap.Logger
}

// NewRecordService accepts a nil signer when no bucket is configured.
func NewRecordService(spaces SpaceService, recorder Recorder, signer FileSigner, expire func() time.Duration, log *zap.Logger) RecordService {
	return &recordService{
		spaces:   spaces,
		recorder: recorder,
		signer:   signer,
		expire:   expire,
		log:      log,
	}
}

func (s *recordService) owned(ctx context.Context, spaceID, requesterID string) (*model.Space, error) {
	sp, err := s.spaces.GetSpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if sp.OwnerID != requesterID {
		return nil, fmt.Errorf("%w: only the owner can control recording", ErrForbidden)
	}
	return sp, nil
}

func (s *recordService) Start(ctx context.Context, spaceID, requesterID string) (*model.Space, error) {
	sp, err := s.owned(ctx, spaceID, requesterID)
	if err != nil {
		return nil, err
	}
	if sp.Record.Active {
		return nil, alreadyExists("recording in space %s", spaceID)
	}

	egressID, filePath, err := s.recorder.StartRecording(ctx, spaceID)
	if err != nil {
		return nil, fmt.Errorf("%w: start recording: %v", ErrUnknown, err)
	}

	active := true
	updated, err := s.spaces.UpdateRecordSettings(ctx, spaceID, model.RecordPatch{
		Active:   &active,
		EgressID: &egressID,
		FilePath: &filePath,
	})
	if err != nil {
		// do not leave an untracked capture running
		if stopErr := s.recorder.StopRecording(ctx, egressID); stopErr != nil {
			s.log.Error("failed to stop untracked recording",
				zap.String("space_id", spaceID), zap.String("egress_id", egressID), zap.Error(stopErr))
		}
		return nil, err
	}

	s.log.Info("recording started", zap.String("space_id", spaceID), zap.String("egress_id", egressID))
	return updated, nil
}

// Stop trusts the cached egress id; it does not check that the capture is
// still running on the provider side.
func (s *recordService) Stop(ctx context.Context, spaceID, requesterID string) (*model.Space, error) {
	sp, err := s.owned(ctx, spaceID, requesterID)
	if err != nil {
		return nil, err
	}
	if !sp.Record.Active {
		return nil, notFound("active recording in space %s", spaceID)
	}

	if err := s.recorder.StopRecording(ctx, sp.Record.EgressID); err != nil {
		return nil, fmt.Errorf("%w: stop recording: %v", ErrUnknown, err)
	}

	active := false
	updated, err := s.spaces.UpdateRecordSettings(ctx, spaceID, model.RecordPatch{Active: &active})
	if err != nil {
		return nil, err
	}

	s.log.Info("recording stopped", zap.String("space_id", spaceID), zap.String("egress_id", sp.Record.EgressID))
	return updated, nil
}

func (s *recordService) DownloadURL(ctx context.Context, spaceID string) (string, error) {
	sp, err := s.spaces.GetSpace(ctx, spaceID)
	if err != nil {
		return "", err
	}
	if sp.Record.FilePath == "" {
		return "", notFound("recording file for space %s", spaceID)
	}
	if s.signer == nil {
		return "", notFound("recording storage is not configured")
	}

	url, err := s.signer.PresignGet(ctx, sp.Record.FilePath, s.expire())
	if err != nil {
		return "", fmt.Errorf("%w: presign recording: %v", ErrUnknown, err)
	}
	return url, nil
}
