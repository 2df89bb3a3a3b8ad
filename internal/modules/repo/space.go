package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/vocespace/spacekeeper/internal/infra/cache"
	"github.com/vocespace/spacekeeper/internal/modules/model"
)

var (
	ErrSpaceNotFound = errors.New("space not found")
	// ErrUsageNotClosed means the space was deleted but its usage interval
	// could not be written. The deletion itself is not rolled back.
	ErrUsageNotClosed = errors.New("space deleted but usage interval not closed")
)

// SpaceRepo is the record store for spaces. Detail record and index set are
// written with separate calls; a crash in between can leave a detail record
// without an index entry.
type SpaceRepo interface {
	Ready() error
	Get(ctx context.Context, spaceID string) (*model.Space, error)
	Set(ctx context.Context, spaceID string, s *model.Space) error
	Delete(ctx context.Context, spaceID string, startedAt int64) error
	ListAll(ctx context.Context) (map[string]*model.Space, error)

	OpenUsage(ctx context.Context, spaceID string, start int64) error
	Usage(ctx context.Context, spaceID string) ([]model.TimeRecord, error)
	AllUsage(ctx context.Context) (map[string][]model.TimeRecord, error)

	AppendChat(ctx context.Context, spaceID string, msg model.ChatMessage) error
	Chat(ctx context.Context, spaceID string) ([]model.ChatMessage, error)
}

type spaceRepo struct {
	kv     cache.KV
	prefix string
	now    func() time.Time
}

func NewSpaceRepo(kv cache.KV, keyPrefix string) SpaceRepo {
	if keyPrefix == "" {
		keyPrefix = "vocespace"
	}
	return &spaceRepo{kv: kv, prefix: keyPrefix, now: time.Now}
}

func (r *spaceRepo) detailKey(id string) string { return r.prefix + ":space:" + id }
func (r *spaceRepo) chatKey(id string) string   { return r.prefix + ":space:" + id + ":chat" }
func (r *spaceRepo) usageKey(id string) string  { return r.prefix + ":space:" + id + ":usage" }
func (r *spaceRepo) indexKey() string           { return r.prefix + ":spaces" }

func (r *spaceRepo) Ready() error {
	if r.kv == nil {
		return cache.ErrStoreUnavailable
	}
	return r.kv.Ready()
}

func (r *spaceRepo) Get(ctx context.Context, spaceID string) (*model.Space, error) {
	b, err := r.kv.Get(ctx, r.detailKey(spaceID))
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return nil, ErrSpaceNotFound
		}
		return nil, err
	}

	s := &model.Space{}
	if err := sonic.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("decode space %s: %w", spaceID, err)
	}
	s.ID = spaceID
	s.Normalize()
	return s, nil
}

func (r *spaceRepo) Set(ctx context.Context, spaceID string, s *model.Space) error {
	b, err := sonic.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode space %s: %w", spaceID, err)
	}
	if err := r.kv.Set(ctx, r.detailKey(spaceID), b); err != nil {
		return err
	}
	return r.kv.SAdd(ctx, r.indexKey(), spaceID)
}

func (r *spaceRepo) Delete(ctx context.Context, spaceID string, startedAt int64) error {
	err := r.kv.Pipeline(ctx,
		cache.DelOp(r.detailKey(spaceID)),
		cache.SRemOp(r.indexKey(), spaceID),
		cache.DelOp(r.chatKey(spaceID)),
	)
	if err != nil {
		return err
	}

	if err := r.closeUsage(ctx, spaceID, startedAt); err != nil {
		return fmt.Errorf("%w: %v", ErrUsageNotClosed, err)
	}
	return nil
}

func (r *spaceRepo) ListAll(ctx context.Context) (map[string]*model.Space, error) {
	ids, err := r.kv.SMembers(ctx, r.indexKey())
	if err != nil {
		return nil, err
	}

	out := make(map[string]*model.Space, len(ids))
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrSpaceNotFound) {
				continue
			}
			return nil, err
		}
		out[id] = s
	}
	return out, nil
}

func (r *spaceRepo) OpenUsage(ctx context.Context, spaceID string, start int64) error {
	records, err := r.Usage(ctx, spaceID)
	if err != nil {
		return err
	}
	records = append(records, model.TimeRecord{Start: start})
	return r.writeUsage(ctx, spaceID, records)
}

// closeUsage ends the open interval that began at startedAt, or appends a
// closed one when no matching open interval exists.
func (r *spaceRepo) closeUsage(ctx context.Context, spaceID string, startedAt int64) error {
	records, err := r.Usage(ctx, spaceID)
	if err != nil {
		return err
	}

	end := r.now().UnixMilli()
	closed := false
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].End == nil && records[i].Start == startedAt {
			records[i].End = &end
			closed = true
			break
		}
	}
	if !closed {
		records = append(records, model.TimeRecord{Start: startedAt, End: &end})
	}
	return r.writeUsage(ctx, spaceID, records)
}

func (r *spaceRepo) Usage(ctx context.Context, spaceID string) ([]model.TimeRecord, error) {
	b, err := r.kv.Get(ctx, r.usageKey(spaceID))
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return []model.TimeRecord{}, nil
		}
		return nil, err
	}
	var records []model.TimeRecord
	if err := sonic.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("decode usage %s: %w", spaceID, err)
	}
	return records, nil
}

func (r *spaceRepo) writeUsage(ctx context.Context, spaceID string, records []model.TimeRecord) error {
	b, err := sonic.Marshal(records)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, r.usageKey(spaceID), b)
}

func (r *spaceRepo) AllUsage(ctx context.Context) (map[string][]model.TimeRecord, error) {
	keys, err := r.kv.Scan(ctx, r.usageKey("*"))
	if err != nil {
		return nil, err
	}

	head, tail := r.prefix+":space:", ":usage"
	out := make(map[string][]model.TimeRecord, len(keys))
	for _, k := range keys {
		id := strings.TrimSuffix(strings.TrimPrefix(k, head), tail)
		records, err := r.Usage(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = records
	}
	return out, nil
}

func (r *spaceRepo) AppendChat(ctx context.Context, spaceID string, msg model.ChatMessage) error {
	msgs, err := r.Chat(ctx, spaceID)
	if err != nil {
		return err
	}
	msgs = append(msgs, msg)
	b, err := sonic.Marshal(msgs)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, r.chatKey(spaceID), b)
}

func (r *spaceRepo) Chat(ctx context.Context, spaceID string) ([]model.ChatMessage, error) {
	b, err := r.kv.Get(ctx, r.chatKey(spaceID))
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return []model.ChatMessage{}, nil
		}
		return nil, err
	}
	var msgs []model.ChatMessage
	if err := sonic.Unmarshal(b, &msgs); err != nil {
		return nil, fmt.Errorf("decode chat %s: %w", spaceID, err)
	}
	return msgs, nil
}
