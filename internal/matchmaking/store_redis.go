package matchmaking

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const queueKey = "matchmaking:queue"

func searchKey(playerID string) string { return "matchmaking:search_start:" + strings.TrimSpace(playerID) }
func roomKey(code string) string       { return "matchmaking:private_rooms:" + code }

// queueStore wraps the Redis layout: a zset of ratings plus one expiring
// search-start key per player.
type queueStore struct {
	rdb      *redis.Client
	entryTTL time.Duration
}

func (s *queueStore) add(ctx context.Context, e Entry) error {
	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, queueKey, redis.Z{Score: float64(e.Rating), Member: e.PlayerID})
	pipe.Set(ctx, searchKey(e.PlayerID), strconv.FormatInt(e.EnqueuedAt.UnixMilli(), 10), s.entryTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *queueStore) remove(ctx context.Context, playerID string) error {
	pipe := s.rdb.TxPipeline()
	pipe.ZRem(ctx, queueKey, playerID)
	pipe.Del(ctx, searchKey(playerID))
	_, err := pipe.Exec(ctx)
	return err
}

// restore re-adds claimed entries without resetting their wait time.
func (s *queueStore) restore(ctx context.Context, now time.Time, entries ...Entry) error {
	pipe := s.rdb.TxPipeline()
	for _, e := range entries {
		ttl := s.entryTTL - now.Sub(e.EnqueuedAt)
		if ttl <= 0 {
			continue
		}
		pipe.ZAdd(ctx, queueKey, redis.Z{Score: float64(e.Rating), Member: e.PlayerID})
		pipe.Set(ctx, searchKey(e.PlayerID), strconv.FormatInt(e.EnqueuedAt.UnixMilli(), 10), ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *queueStore) inQueue(ctx context.Context, playerID string) (bool, error) {
	_, err := s.rdb.ZScore(ctx, queueKey, playerID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return err == nil, err
}

func (s *queueStore) size(ctx context.Context) (int64, error) {
	return s.rdb.ZCard(ctx, queueKey).Result()
}

func (s *queueStore) startedAt(ctx context.Context, playerID string) (time.Time, bool, error) {
	raw, err := s.rdb.Get(ctx, searchKey(playerID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}

// snapshot returns live entries and the ids whose search key has expired.
func (s *queueStore) snapshot(ctx context.Context) ([]Entry, []string, error) {
	zs, err := s.rdb.ZRangeWithScores(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return nil, nil, err
	}
	if len(zs) == 0 {
		return nil, nil, nil
	}
	keys := make([]string, 0, len(zs))
	for _, z := range zs {
		keys = append(keys, searchKey(z.Member.(string)))
	}
	starts, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}
	var (
		live  []Entry
		stale []string
	)
	for i, z := range zs {
		id := z.Member.(string)
		raw, ok := starts[i].(string)
		if !ok {
			stale = append(stale, id)
			continue
		}
		ms, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			stale = append(stale, id)
			continue
		}
		live = append(live, Entry{PlayerID: id, Rating: int(z.Score), EnqueuedAt: time.UnixMilli(ms)})
	}
	return live, stale, nil
}

var errClaimLost = errors.New("queue entry no longer present")

// claim removes both players only if both are still queued.
func (s *queueStore) claim(ctx context.Context, a, b string) error {
	return s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		for _, id := range []string{a, b} {
			if _, err := tx.ZScore(ctx, queueKey, id).Result(); err != nil {
				if errors.Is(err, redis.Nil) {
					return errClaimLost
				}
				return err
			}
		}
		pipe := tx.TxPipeline()
		pipe.ZRem(ctx, queueKey, a, b)
		pipe.Del(ctx, searchKey(a), searchKey(b))
		_, err := pipe.Exec(ctx)
		return err
	}, queueKey)
}

func (s *queueStore) createRoom(ctx context.Context, code string, rec roomRecord, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, roomKey(code), raw, ttl).Result()
}

// takeRoom atomically reads and deletes the room unless check rejects it.
func (s *queueStore) takeRoom(ctx context.Context, code string, check func(roomRecord) error) (roomRecord, error) {
	var rec roomRecord
	key := roomKey(code)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		if err := check(rec); err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Del(ctx, key)
		_, err = pipe.Exec(ctx)
		return err
	}, key)
	return rec, err
}

func codeGen() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}

func validCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
