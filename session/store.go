package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when the cache cannot be reached or a command fails in transport.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned when no record exists for a token. It also matches redis.Nil.
var ErrSessionNotFound = errors.Join(redis.Nil, errors.New("session not found"))

// ErrSessionExpired is returned when a record was found past its expiry and removed.
// It also matches redis.Nil.
var ErrSessionExpired = errors.Join(redis.Nil, errors.New("session expired"))

// ErrSessionCorrupt is returned when a stored record cannot be decoded.
var ErrSessionCorrupt = errors.New("session corrupt")

// ErrSessionConflict is returned when a record kept changing under a renewal
// and no write went through.
var ErrSessionConflict = errors.New("session changed concurrently")

// errRecordChanged means the record no longer holds the bytes it was read with.
var errRecordChanged = errors.New("session record changed")

const (
	scanBatch = 500

	// casAttempts bounds the read-modify-write retries of Get and Renew.
	casAttempts = 3
)

// saveSessionScript writes the record with its TTL and adds the token to the
// owner index. The index TTL only ever grows.
const saveSessionScript = `
local ttl = tonumber(ARGV[2])
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
redis.call("SADD", KEYS[2], ARGV[3])
local current = redis.call("PTTL", KEYS[2])
if current < ttl then
  redis.call("PEXPIRE", KEYS[2], ARGV[2])
end
return 1
`

// rewriteSessionScript replaces a record only while it still holds the value
// it was read with (ARGV[5]). Returns 0 when the record disappeared and -1
// when another writer changed it.
const rewriteSessionScript = `
local stored = redis.call("GET", KEYS[1])
if not stored then
  return 0
end
if stored ~= ARGV[5] then
  return -1
end
local ttl = tonumber(ARGV[2])
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
if ARGV[4] == "1" then
  redis.call("SADD", KEYS[2], ARGV[3])
  local current = redis.call("PTTL", KEYS[2])
  if current < ttl then
    redis.call("PEXPIRE", KEYS[2], ARGV[2])
  end
end
return 1
`

const deleteSessionScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
end
return existed
`

const deleteAllScript = `
local tokens = redis.call("SMEMBERS", KEYS[1])
local removed = 0
for _, token in ipairs(tokens) do
  removed = removed + redis.call("DEL", ARGV[1] .. token)
end
redis.call("DEL", KEYS[1])
return removed
`

var (
	saveSessionLua    = redis.NewScript(saveSessionScript)
	rewriteSessionLua = redis.NewScript(rewriteSessionScript)
	deleteSessionLua  = redis.NewScript(deleteSessionScript)
	deleteAllLua      = redis.NewScript(deleteAllScript)
)

// Store persists sessions in Redis.
type Store struct {
	redis       redis.UniversalClient
	prefix      string
	indexPrefix string
	now         func() time.Time
}

// NewStore creates a session [Store] backed by the given Redis client.
// Records live under "<prefix>:<token>" and owner indexes under
// "<indexPrefix>:<account>". A nil now uses time.Now.
func NewStore(client redis.UniversalClient, prefix, indexPrefix string, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		redis:       client,
		prefix:      prefix,
		indexPrefix: indexPrefix,
		now:         now,
	}
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) key(token string) string {
	return s.prefix + ":" + token
}

func (s *Store) indexKey(account string) string {
	return s.indexPrefix + ":" + account
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}

func ttlMillis(ttl time.Duration) int64 {
	ms := ttl.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return ms
}

// Save writes a new session record with the given TTL and indexes its token
// under the owner account in one script call.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess == nil || sess.Token == "" {
		return errors.New("session token is empty")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}

	data, err := Encode(sess)
	if err != nil {
		return err
	}

	err = saveSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sess.Token), s.indexKey(sess.UserAccount)},
		data,
		ttlMillis(ttl),
		sess.Token,
	).Err()
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, token string) (*Session, error) {
	sess, _, err := s.readRaw(ctx, token)
	return sess, err
}

// readRaw returns the decoded session along with the stored bytes.
func (s *Store) readRaw(ctx context.Context, token string) (*Session, []byte, error) {
	key := s.key(token)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, unavailable(err)
	}

	sess, err := Decode(data)
	if err != nil {
		if delErr := s.redis.Del(ctx, key).Err(); delErr != nil {
			return nil, nil, unavailable(delErr)
		}
		return nil, nil, err
	}
	sess.Token = token
	return sess, data, nil
}

// rewrite stores sess under its existing key with ttl, provided the key still
// holds prev. extendIndex re-adds the token to the owner index and grows the
// index TTL when needed.
func (s *Store) rewrite(ctx context.Context, sess *Session, prev []byte, ttl time.Duration, extendIndex bool) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	flag := "0"
	if extendIndex {
		flag = "1"
	}

	res, err := rewriteSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sess.Token), s.indexKey(sess.UserAccount)},
		data,
		ttlMillis(ttl),
		sess.Token,
		flag,
		prev,
	).Int()
	if err != nil {
		return unavailable(err)
	}
	switch res {
	case 0:
		return ErrSessionNotFound
	case -1:
		return errRecordChanged
	}
	return nil
}

func (s *Store) expire(ctx context.Context, sess *Session) error {
	if _, err := s.deleteIndexed(ctx, sess.UserAccount, sess.Token); err != nil {
		return err
	}
	return ErrSessionExpired
}

func (s *Store) deleteIndexed(ctx context.Context, account, token string) (bool, error) {
	existed, err := deleteSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(token), s.indexKey(account)},
		token,
	).Int()
	if err != nil {
		return false, unavailable(err)
	}
	return existed == 1, nil
}

// Get returns the live session for token and records the access time.
//
// The record keeps its remaining lifetime; a read never extends expiry. A
// record past its expiry is deleted together with its index entry and
// ErrSessionExpired is returned.
//
// The access time is written only if the record is unchanged since it was
// read; a concurrent writer wins and the record is read again. If it keeps
// changing, the latest read is returned without a write.
func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	var sess *Session
	for attempt := 0; attempt < casAttempts; attempt++ {
		var (
			prev []byte
			err  error
		)
		sess, prev, err = s.readRaw(ctx, token)
		if err != nil {
			return nil, err
		}

		now := s.now()
		if sess.ExpiredAt(now) {
			return nil, s.expire(ctx, sess)
		}

		sess.LastActivity = now
		err = s.rewrite(ctx, sess, prev, sess.Remaining(now), false)
		if !errors.Is(err, errRecordChanged) {
			if err != nil {
				return nil, err
			}
			return sess, nil
		}
	}
	return sess, nil
}

// Renew extends the session by additional when its remaining lifetime is
// at or below lowWater. Otherwise only the access time is refreshed. The returned
// bool reports whether expiry moved.
//
// The decision is re-made against a fresh read whenever another writer
// changed the record in between. ErrSessionConflict is returned when that
// keeps happening.
func (s *Store) Renew(ctx context.Context, token string, additional, lowWater time.Duration) (*Session, bool, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		sess, extended, err := s.renewOnce(ctx, token, additional, lowWater)
		if !errors.Is(err, errRecordChanged) {
			return sess, extended, err
		}
	}
	return nil, false, ErrSessionConflict
}

func (s *Store) renewOnce(ctx context.Context, token string, additional, lowWater time.Duration) (*Session, bool, error) {
	sess, prev, err := s.readRaw(ctx, token)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	if sess.ExpiredAt(now) {
		return nil, false, s.expire(ctx, sess)
	}

	sess.LastActivity = now
	remaining := sess.Remaining(now)
	if remaining > lowWater || additional <= 0 {
		if err := s.rewrite(ctx, sess, prev, remaining, false); err != nil {
			return nil, false, err
		}
		return sess, false, nil
	}

	sess.ExpiresAt = sess.ExpiresAt.Add(additional)
	if err := s.rewrite(ctx, sess, prev, sess.Remaining(now), true); err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// Delete removes the record for token and its owner index entry. It reports
// whether a record existed. A corrupt record is removed and reported as absent.
func (s *Store) Delete(ctx context.Context, token string) (bool, error) {
	sess, err := s.read(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionCorrupt) {
			return false, nil
		}
		return false, err
	}
	return s.deleteIndexed(ctx, sess.UserAccount, token)
}

// DeleteAll removes every session indexed under account and the index
// itself. It returns the number of records actually removed.
func (s *Store) DeleteAll(ctx context.Context, account string) (int, error) {
	removed, err := deleteAllLua.Run(
		ctx,
		s.redis,
		[]string{s.indexKey(account)},
		s.prefix+":",
	).Int()
	if err != nil {
		return 0, unavailable(err)
	}
	return removed, nil
}

// Tokens lists the tokens currently indexed under account. Entries may be stale.
func (s *Store) Tokens(ctx context.Context, account string) ([]string, error) {
	tokens, err := s.redis.SMembers(ctx, s.indexKey(account)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	return tokens, nil
}

// Unindex drops token from the owner index of account without touching the record.
func (s *Store) Unindex(ctx context.Context, account, token string) error {
	if err := s.redis.SRem(ctx, s.indexKey(account), token).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Cleanup scans every session record and removes the ones that are expired
// or cannot be decoded. It returns the number of records removed.
// This is O(n) over the keyspace and is meant for periodic sweeps.
func (s *Store) Cleanup(ctx context.Context) (int, error) {
	pattern := s.prefix + ":*"
	var (
		cursor  uint64
		removed int
	)

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return removed, unavailable(err)
		}

		now := s.now()
		for _, key := range keys {
			token := strings.TrimPrefix(key, s.prefix+":")
			sess, err := s.read(ctx, token)
			switch {
			case errors.Is(err, ErrSessionNotFound):
				continue
			case errors.Is(err, ErrSessionCorrupt):
				removed++
				continue
			case err != nil:
				return removed, err
			}

			if !sess.ExpiredAt(now) {
				continue
			}
			existed, err := s.deleteIndexed(ctx, sess.UserAccount, token)
			if err != nil {
				return removed, err
			}
			if existed {
				removed++
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return removed, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), unavailable(err)
	}
	return time.Since(start), nil
}
