// Package redisstore implements the session store on Redis. Hashes hold
// machines and sessions, a per-machine holder key enforces the
// one-session-per-machine reservation, and a sorted set indexes active
// sessions by scheduled end for the reaper. Every multi-key invariant
// is guarded by a Lua script so it holds across processes.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/washpoint/washpoint/session"
)

// Config holds the Redis connection settings.
type Config struct {
	// Addr is the host:port of the Redis server.
	Addr     string
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Store is a Redis-backed session.Store.
type Store struct {
	client *redis.Client

	createSession  *redis.Script
	transition     *redis.Script
	releaseMachine *redis.Script
}

var _ session.Store = (*Store)(nil)

// Open connects to Redis and verifies the connection with a ping.
func Open(cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{
		client:         client,
		createSession:  redis.NewScript(createSessionScript),
		transition:     redis.NewScript(transitionScript),
		releaseMachine: redis.NewScript(releaseMachineScript),
	}, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func machineKey(id string) string { return "wp:machine:" + id }
func holderKey(id string) string  { return "wp:machine:" + id + ":holder" }
func sessionKey(id string) string { return "wp:session:" + id }

const activeSetKey = "wp:sessions:active"

// GetMachine returns the machine or session.ErrMachineNotFound.
func (s *Store) GetMachine(ctx context.Context, id string) (*session.Machine, error) {
	data, err := s.client.HGetAll(ctx, machineKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, session.ErrMachineNotFound
	}
	return parseMachine(data)
}

// PutMachine creates or replaces a machine.
func (s *Store) PutMachine(ctx context.Context, m *session.Machine) error {
	return s.client.HSet(ctx, machineKey(m.ID), machineFields(m)...).Err()
}

// CreateSession writes the session and reserves its machine atomically,
// returning session.ErrMachineHeld when the machine already has one.
func (s *Store) CreateSession(ctx context.Context, sess *session.Session) error {
	keys := []string{holderKey(sess.MachineID), sessionKey(sess.ID)}
	args := append([]interface{}{sess.ID}, sessionFields(sess)...)

	ok, err := s.createSession.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return session.ErrMachineHeld
	}
	return nil
}

// GetSession returns the session or session.ErrSessionNotFound.
func (s *Store) GetSession(ctx context.Context, id string) (*session.Session, error) {
	data, err := s.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, session.ErrSessionNotFound
	}
	return parseSession(data)
}

// Transition compare-and-swaps the session status. The mutation runs on
// a snapshot in this process; the script only commits it when the
// stored status still matches from, so concurrent movers lose with
// session.ErrStaleStatus.
func (s *Store) Transition(ctx context.Context, id string, from session.Status, mutate func(*session.Session)) (*session.Session, error) {
	cur, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Status != from {
		return nil, session.ErrStaleStatus
	}

	updated := cur.Clone()
	mutate(updated)

	due := int64(0)
	if updated.Status == session.StatusActive {
		due = updated.ScheduledEnd().Unix()
	}

	keys := []string{sessionKey(id), activeSetKey}
	args := []interface{}{string(from), string(updated.Status), due, id}
	args = append(args, sessionFields(updated)...)

	res, err := s.transition.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return nil, err
	}
	switch res {
	case -1:
		return nil, session.ErrSessionNotFound
	case 0:
		return nil, session.ErrStaleStatus
	}
	return updated, nil
}

// ReleaseMachine drops the reservation if held by sessionID.
func (s *Store) ReleaseMachine(ctx context.Context, machineID, sessionID string) error {
	keys := []string{holderKey(machineID)}
	return s.releaseMachine.Run(ctx, s.client, keys, sessionID).Err()
}

// ListActiveBefore returns active sessions due at or before cutoff,
// straight off the scheduled-end index.
func (s *Store) ListActiveBefore(ctx context.Context, cutoff time.Time) ([]*session.Session, error) {
	ids, err := s.client.ZRangeByScore(ctx, activeSetKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff.Unix()),
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, sessionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	sessions := make([]*session.Session, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}
		sess, err := parseSession(data)
		if err != nil {
			continue
		}
		if sess.Status != session.StatusActive {
			continue
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}
