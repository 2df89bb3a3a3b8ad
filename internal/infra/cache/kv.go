package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrKeyNotFound is returned by Get when the key does not exist.
	ErrKeyNotFound = errors.New("key not found")
	// ErrStoreUnavailable is returned when no redis client is configured or
	// the server cannot be reached.
	ErrStoreUnavailable = errors.New("key-value store unavailable")
)

// KV is the narrow set of key-value operations the space store needs.
// Only single-key operations are atomic. Pipeline groups writes into one
// round trip but is not a transaction: some ops may apply while others fail.
type KV interface {
	Ready() error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SAdd(ctx context.Context, setKey string, member string) error
	SRem(ctx context.Context, setKey string, member string) error
	SMembers(ctx context.Context, setKey string) ([]string, error)
	Pipeline(ctx context.Context, ops ...Op) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

type OpKind int

const (
	OpSet OpKind = iota
	OpDel
	OpSAdd
	OpSRem
)

// Op is one write inside a Pipeline call.
type Op struct {
	Kind   OpKind
	Key    string
	Member string
	Value  []byte
}

func SetOp(key string, val []byte) Op { return Op{Kind: OpSet, Key: key, Value: val} }
func DelOp(key string) Op             { return Op{Kind: OpDel, Key: key} }
func SAddOp(setKey, member string) Op { return Op{Kind: OpSAdd, Key: setKey, Member: member} }
func SRemOp(setKey, member string) Op { return Op{Kind: OpSRem, Key: setKey, Member: member} }

type redisKV struct {
	rdb *redis.Client
}

// NewKV wraps a go-redis client. A nil client yields a KV whose every call
// fails with ErrStoreUnavailable; so does a live client whose server is
// unreachable, until go-redis manages to redial.
func NewKV(rdb *redis.Client) KV {
	return &redisKV{rdb: rdb}
}

func (s *redisKV) Ready() error {
	if s == nil || s.rdb == nil {
		return ErrStoreUnavailable
	}
	return nil
}

// classify marks connection-level failures as ErrStoreUnavailable and keeps
// the cause in the chain. Redis error replies pass through untouched.
func classify(err error) error {
	if err == nil || errors.Is(err, redis.Nil) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	if unreachable(err) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}

func unreachable(err error) bool {
	var (
		opErr  *net.OpError
		netErr net.Error
	)
	switch {
	case errors.As(err, &opErr),
		errors.Is(err, redis.ErrClosed),
		errors.Is(err, redis.ErrPoolTimeout),
		errors.Is(err, redis.ErrPoolExhausted),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET):
		return true
	case errors.As(err, &netErr):
		return netErr.Timeout()
	}
	return false
}

func (s *redisKV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.Ready(); err != nil {
		return nil, err
	}
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	return b, classify(err)
}

func (s *redisKV) Set(ctx context.Context, key string, val []byte) error {
	if err := s.Ready(); err != nil {
		return err
	}
	return classify(s.rdb.Set(ctx, key, val, 0).Err())
}

func (s *redisKV) Del(ctx context.Context, keys ...string) error {
	if err := s.Ready(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return classify(s.rdb.Del(ctx, keys...).Err())
}

func (s *redisKV) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.Ready(); err != nil {
		return false, err
	}
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

func (s *redisKV) SAdd(ctx context.Context, setKey string, member string) error {
	if err := s.Ready(); err != nil {
		return err
	}
	return classify(s.rdb.SAdd(ctx, setKey, member).Err())
}

func (s *redisKV) SRem(ctx context.Context, setKey string, member string) error {
	if err := s.Ready(); err != nil {
		return err
	}
	return classify(s.rdb.SRem(ctx, setKey, member).Err())
}

func (s *redisKV) SMembers(ctx context.Context, setKey string) ([]string, error) {
	if err := s.Ready(); err != nil {
		return nil, err
	}
	members, err := s.rdb.SMembers(ctx, setKey).Result()
	return members, classify(err)
}

func (s *redisKV) Pipeline(ctx context.Context, ops ...Op) error {
	if err := s.Ready(); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	cmds, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			switch op.Kind {
			case OpSet:
				pipe.Set(ctx, op.Key, op.Value, 0)
			case OpDel:
				pipe.Del(ctx, op.Key)
			case OpSAdd:
				pipe.SAdd(ctx, op.Key, op.Member)
			case OpSRem:
				pipe.SRem(ctx, op.Key, op.Member)
			default:
				return fmt.Errorf("unknown pipeline op kind %d", op.Kind)
			}
		}
		return nil
	})
	if len(cmds) == 0 {
		return classify(err)
	}

	var errs []error
	for _, cmd := range cmds {
		if cerr := cmd.Err(); cerr != nil && !errors.Is(cerr, redis.Nil) {
			errs = append(errs, fmt.Errorf("%s: %w", cmd.Name(), classify(cerr)))
		}
	}
	return errors.Join(errs...)
}

func (s *redisKV) Scan(ctx context.Context, pattern string) ([]string, error) {
	if err := s.Ready(); err != nil {
		return nil, err
	}
	var keys []string
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, classify(iter.Err())
}
