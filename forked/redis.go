package forked

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/go-redis/redis/v8"
)

// RedisFactory creates streams that capture response bodies in Redis. Each
// capture is appended to a string key derived from the request's query
// parameters; aborting a capture deletes the key.
type RedisFactory struct {
	Logger *log.Logger
	Client *redis.Client

	// KeyParam is the query parameter that names the capture. If the
	// parameter is absent from the request, a sequential name is used.
	KeyParam string

	// KeyPrefix is prepended to every capture key.
	KeyPrefix string

	// Expire, when non-zero, is applied to the capture key once the
	// capture completes.
	Expire time.Duration

	seq uint64
}

// NewStream creates a Redis-backed stream for a single request. The key for
// any previous capture under the same name is removed first.
func (f *RedisFactory) NewStream(params Params) (Stream, error) {
	name := params.Get(f.keyParam())
	if name == "" {
		name = fmt.Sprintf("capture-%d", atomic.AddUint64(&f.seq, 1))
	}

	ctx := context.Background()
	key := f.KeyPrefix + name

	if err := f.Client.Del(ctx, key).Err(); err != nil {
		return nil, err
	}

	return &redisStream{
		ctx:    ctx,
		client: f.Client,
		key:    key,
		expire: f.Expire,
		logger: f.Logger,
	}, nil
}

func (f *RedisFactory) keyParam() string {
	if f.KeyParam != "" {
		return f.KeyParam
	}

	return DefaultKeyParam
}

type redisStream struct {
	ctx     context.Context
	client  *redis.Client
	key     string
	expire  time.Duration
	logger  *log.Logger
	pending []byte
	size    int64
	aborted bool
	closed  bool
}

func (s *redisStream) Write(buffer []byte) (int, error) {
	s.pending = append(s.pending, buffer...)
	return len(buffer), nil
}

// Flush appends the buffered chunks to the capture key.
func (s *redisStream) Flush() error {
	if len(s.pending) == 0 {
		return nil
	}

	err := s.client.Append(s.ctx, s.key, string(s.pending)).Err()
	if err != nil {
		return err
	}

	s.size += int64(len(s.pending))
	s.pending = s.pending[:0]

	return nil
}

// Abort discards the capture, deleting the key.
func (s *redisStream) Abort() {
	if s.aborted || s.closed {
		return
	}

	s.aborted = true
	s.pending = nil

	if err := s.client.Del(s.ctx, s.key).Err(); err != nil && s.logger != nil {
		s.logger.Printf("capture: unable to discard %s: %v", s.key, err)
	}
}

// Close completes the capture, flushing any buffered chunks and applying
// the configured expiry. It is a no-op after Abort.
func (s *redisStream) Close() error {
	if s.aborted || s.closed {
		return nil
	}

	s.closed = true

	if err := s.Flush(); err != nil {
		s.client.Del(s.ctx, s.key)
		return err
	}

	if s.expire > 0 {
		if err := s.client.Expire(s.ctx, s.key, s.expire).Err(); err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Printf(
			"capture: wrote %s to %s",
			humanize.IBytes(uint64(s.size)),
			s.key,
		)
	}

	return nil
}
