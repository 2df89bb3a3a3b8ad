package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vocespace/spacekeeper/internal/config"
	"github.com/vocespace/spacekeeper/internal/modules/model"
	"github.com/vocespace/spacekeeper/internal/modules/repo"
	"github.com/vocespace/spacekeeper/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SessionProvider is the external real-time provider. Its roster is the
// ground truth for who is actually connected.
type SessionProvider interface {
	ListActiveSessions(ctx context.Context) ([]model.Session, error)
	ListParticipants(ctx context.Context, sessionID string) ([]model.SessionParticipant, error)
}

// Reconciler heals drift between the provider roster and cached spaces.
type Reconciler interface {
	Run(ctx context.Context) error
	Tick(ctx context.Context) (*ReconcileReport, error)
	ReconcileSession(ctx context.Context, sessionID string) (*SessionReport, error)
}

type SessionReport struct {
	SpaceID string   `json:"spaceId"`
	Skipped bool     `json:"skipped,omitempty"`
	Removed []string `json:"removed"`
	Reinit  []string `json:"reinit"`
	Errors  []string `json:"errors,omitempty"`
}

type ReconcileReport struct {
	Sessions []SessionReport `json:"sessions"`
	Failed   int             `json:"failed"`
}

type reconciler struct {
	provider    SessionProvider
	r           repo.SpaceRepo
	spaces      SpaceService
	notify      Notifier
	log         *zap.Logger
	interval    time.Duration
	concurrency int
}

func NewReconciler(provider SessionProvider, r repo.SpaceRepo, spaces SpaceService, notify Notifier, cfg *config.Config, log *zap.Logger) Reconciler {
	if notify == nil {
		notify = NopNotifier()
	}
	interval := cfg.Reconciler.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	concurrency := cfg.Reconciler.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &reconciler{
		provider:    provider,
		r:           r,
		spaces:      spaces,
		notify:      notify,
		log:         log,
		interval:    interval,
		concurrency: concurrency,
	}
}

// Run ticks until ctx is cancelled. A failed pass is logged; the next tick
// starts from scratch.
func (rc *reconciler) Run(ctx context.Context) error {
	rc.log.Info("reconciler started", zap.Duration("interval", rc.interval))
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rc.log.Info("reconciler stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := rc.Tick(ctx); err != nil {
				rc.log.Error("reconcile pass failed", zap.Error(err))
			}
		}
	}
}

func (rc *reconciler) Tick(ctx context.Context) (*ReconcileReport, error) {
	start := time.Now()
	sessions, err := rc.provider.ListActiveSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}

	reports := make([]SessionReport, len(sessions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rc.concurrency)
	for i, sess := range sessions {
		g.Go(func() error {
			rep, err := rc.ReconcileSession(gctx, sess.ID)
			if err != nil {
				rc.log.Error("reconcile session failed", zap.String("space_id", sess.ID), zap.Error(err))
				reports[i] = SessionReport{SpaceID: sess.ID, Errors: []string{err.Error()}}
				return nil
			}
			reports[i] = *rep
			return nil
		})
	}
	_ = g.Wait()

	out := &ReconcileReport{Sessions: reports}
	var removed, reinit int
	for _, rep := range reports {
		if len(rep.Errors) > 0 {
			out.Failed++
		}
		removed += len(rep.Removed)
		reinit += len(rep.Reinit)
	}
	telemetry.RecordReconcilePass(ctx, float64(time.Since(start).Milliseconds()), int64(removed), int64(reinit), int64(out.Failed))

	rc.log.Info("reconcile pass finished",
		zap.Int("sessions", len(sessions)),
		zap.Int("removed", removed),
		zap.Int("reinit", reinit),
		zap.Int("failed", out.Failed),
	)
	return out, nil
}

// ReconcileSession diffs one provider roster against the cached space.
// Cached-only participants are removed; provider-only participants are asked
// to resend their state. A session with no cached space, or whose name is
// not a valid space id, is skipped.
func (rc *reconciler) ReconcileSession(ctx context.Context, sessionID string) (*SessionReport, error) {
	rep := &SessionReport{SpaceID: sessionID, Removed: []string{}, Reinit: []string{}}
	if !model.ValidSpaceID(sessionID) {
		rc.log.Warn("skipping session with invalid space id", zap.String("space_id", sessionID))
		rep.Skipped = true
		return rep, nil
	}

	roster, err := rc.provider.ListParticipants(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	sp, err := rc.r.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repo.ErrSpaceNotFound) {
			rep.Skipped = true
			return rep, nil
		}
		return nil, wrapStore("reconcile", err)
	}

	live := make(map[string]struct{}, len(roster))
	for _, p := range roster {
		live[p.Identity] = struct{}{}
	}

	cachedOnly, providerOnly := diffRosters(sp.Participants, live)

	for _, pid := range cachedOnly {
		if _, err := rc.spaces.RemoveParticipant(ctx, sessionID, pid); err != nil {
			if errors.Is(err, ErrNotFound) {
				// removed concurrently; already converged
				continue
			}
			rc.log.Warn("stale participant removal failed",
				zap.String("space_id", sessionID), zap.String("participant_id", pid), zap.Error(err))
			rep.Errors = append(rep.Errors, err.Error())
			continue
		}
		rep.Removed = append(rep.Removed, pid)
	}

	for _, pid := range providerOnly {
		rc.notify.Emit(ctx, model.Event{
			Name:      model.EventReinit,
			SpaceID:   sessionID,
			Recipient: pid,
			Payload:   map[string]any{"spaceId": sessionID, "participantId": pid},
		})
		rep.Reinit = append(rep.Reinit, pid)
	}

	return rep, nil
}

// diffRosters returns cached−live and live−cached, both sorted.
func diffRosters(cached map[string]model.ParticipantSettings, live map[string]struct{}) (cachedOnly, liveOnly []string) {
	for id := range cached {
		if _, ok := live[id]; !ok {
			cachedOnly = append(cachedOnly, id)
		}
	}
	for id := range live {
		if _, ok := cached[id]; !ok {
			liveOnly = append(liveOnly, id)
		}
	}
	sort.Strings(cachedOnly)
	sort.Strings(liveOnly)
	return cachedOnly, liveOnly
}
