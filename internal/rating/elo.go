// Package rating implements the Elo update applied when a rated game ends.
package rating

import (
	"math"
	"time"

	"github.com/park285/chess-arena/internal/domain"
)

const (
	KFactor = 32
	// Initial is the rating assigned to a player without a record.
	Initial = 1200
)

// Delta returns the rating change for the winner; the loser moves by the
// negation. With draw set, winner is the nominal first seat.
func Delta(winner, loser float64, draw bool) float64 {
	expected := 1 / (1 + math.Pow(10, (loser-winner)/400))
	actual := 1.0
	if draw {
		actual = 0.5
	}
	return KFactor * (actual - expected)
}

// Settle returns integer ratings for both sides. Delta is rounded once so the
// persisted pair stays zero-sum.
func Settle(winner, loser int, draw bool) (int, int) {
	d := int(math.Round(Delta(float64(winner), float64(loser), draw)))
	return winner + d, loser - d
}

// Apply updates both records for a finished game. For draws the winner
// argument is white's record and neither gamesWon counter moves.
func Apply(winner, loser domain.RatingRecord, draw bool, now time.Time) (domain.RatingRecord, domain.RatingRecord) {
	winner.Rating, loser.Rating = Settle(winner.Rating, loser.Rating, draw)
	winner.GamesPlayed++
	loser.GamesPlayed++
	if !draw {
		winner.GamesWon++
	}
	winner.UpdatedAt = now
	loser.UpdatedAt = now
	return winner, loser
}

// ChangeOf is the increment that turns before into after.
func ChangeOf(before, after domain.RatingRecord) domain.RatingChange {
	return domain.RatingChange{
		PlayerID: after.PlayerID,
		Delta:    after.Rating - before.Rating,
		Won:      after.GamesWon > before.GamesWon,
		At:       after.UpdatedAt,
	}
}

// Fresh returns the record used for a player seen for the first time.
func Fresh(playerID string, now time.Time) domain.RatingRecord {
	return domain.RatingRecord{PlayerID: playerID, Rating: Initial, UpdatedAt: now}
}
