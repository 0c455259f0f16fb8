package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/pkg/chessdto"
)

const defaultSnapshotTTL = time.Hour

// Snapshot mirrors a hot session into Redis so another process (or this one
// after a restart) can resume it, move tokens included.
type Snapshot struct {
	Game      *domain.Game           `json:"game"`
	Moves     []domain.Move          `json:"moves"`
	Replies   map[string]ReplyRecord `json:"replies,omitempty"`
	DrawOffer *DrawOffer             `json:"drawOffer,omitempty"`
}

type ReplyRecord struct {
	Result  *chessdto.MoveResult `json:"result,omitempty"`
	ErrCode string               `json:"errCode,omitempty"`
}

// Cache is advisory: callers fall back to the store on any miss or error.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func snapshotKey(gameID string) string { return "game:state:" + gameID }

// Load returns nil without error on a miss.
func (c *Cache) Load(ctx context.Context, gameID string) (*Snapshot, error) {
	if c == nil || c.rdb == nil {
		return nil, nil
	}
	raw, err := c.rdb.Get(ctx, snapshotKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Game == nil || snap.Game.ID != gameID {
		return nil, fmt.Errorf("snapshot for %s is malformed", gameID)
	}
	return &snap, nil
}

func (c *Cache) Save(ctx context.Context, snap *Snapshot) error {
	if c == nil || c.rdb == nil || snap == nil || snap.Game == nil {
		return nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return c.rdb.Set(ctx, snapshotKey(snap.Game.ID), raw, c.ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, gameID string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, snapshotKey(gameID)).Err()
}

func (s *session) snapshot() *Snapshot {
	snap := &Snapshot{
		Game:  s.game.Clone(),
		Moves: append([]domain.Move{}, s.moves...),
	}
	if len(s.replies) > 0 {
		snap.Replies = make(map[string]ReplyRecord, len(s.replies))
		for id, r := range s.replies {
			rec := ReplyRecord{Result: r.result}
			if r.err != nil {
				rec.ErrCode = r.err.Code
			}
			snap.Replies[id] = rec
		}
	}
	if s.offer != nil {
		o := *s.offer
		snap.DrawOffer = &o
	}
	return snap
}

func restoreReplies(in map[string]ReplyRecord) map[string]reply {
	out := make(map[string]reply, len(in))
	for id, rec := range in {
		r := reply{result: rec.Result}
		if rec.ErrCode != "" {
			r.err = errorFromCode(rec.ErrCode)
		}
		out[id] = r
	}
	return out
}
