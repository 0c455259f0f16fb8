package rating

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/park285/chess-arena/internal/domain"
)

func TestDeltaEqualRatings(t *testing.T) {
	require.InDelta(t, 16.0, Delta(1500, 1500, false), 1e-9)
	require.InDelta(t, 0.0, Delta(1500, 1500, true), 1e-9)
}

func TestDeltaUpsetIsLarger(t *testing.T) {
	upset := Delta(1200, 1600, false)
	expected := Delta(1600, 1200, false)
	require.Greater(t, upset, expected)
	require.InDelta(t, 32.0, upset+expected, 1e-9)
}

func TestDrawIsAntisymmetric(t *testing.T) {
	cases := [][2]float64{{1200, 1250}, {1500, 1100}, {2400, 800}, {1000, 1000}}
	for _, c := range cases {
		a := Delta(c[0], c[1], true)
		b := Delta(c[1], c[0], true)
		require.InDeltaf(t, -a, b, 1e-9, "ratings %v", c)
	}
}

func TestSettleIsZeroSum(t *testing.T) {
	for w := 800; w <= 2400; w += 137 {
		for l := 800; l <= 2400; l += 211 {
			for _, draw := range []bool{false, true} {
				nw, nl := Settle(w, l, draw)
				require.Equal(t, w+l, nw+nl, "w=%d l=%d draw=%v", w, l, draw)
			}
		}
	}
}

func TestApplyCounters(t *testing.T) {
	now := time.Unix(1700000000, 0)
	w := domain.RatingRecord{PlayerID: "a", Rating: 1200}
	l := domain.RatingRecord{PlayerID: "b", Rating: 1200}

	nw, nl := Apply(w, l, false, now)
	require.Equal(t, 1216, nw.Rating)
	require.Equal(t, 1184, nl.Rating)
	require.Equal(t, 1, nw.GamesPlayed)
	require.Equal(t, 1, nl.GamesPlayed)
	require.Equal(t, 1, nw.GamesWon)
	require.Equal(t, 0, nl.GamesWon)
	require.Equal(t, now, nl.UpdatedAt)

	dw, dl := Apply(w, l, true, now)
	require.Equal(t, 0, dw.GamesWon+dl.GamesWon)
	require.Equal(t, 1200, dw.Rating)
	require.Equal(t, 1200, dl.Rating)
}

func TestDeltaBounded(t *testing.T) {
	for _, r := range []float64{0, 400, 4000} {
		d := Delta(1500, 1500+r, false)
		require.True(t, d > 0 && d <= KFactor && !math.IsNaN(d))
	}
}

func TestChangeOfMatchesApply(t *testing.T) {
	now := time.Unix(1700000000, 0)
	w := domain.RatingRecord{PlayerID: "a", Rating: 1300, GamesPlayed: 4, GamesWon: 2}
	l := domain.RatingRecord{PlayerID: "b", Rating: 1250, GamesPlayed: 9, GamesWon: 5}
	nw, nl := Apply(w, l, false, now)

	cw, cl := ChangeOf(w, nw), ChangeOf(l, nl)
	require.Equal(t, domain.RatingChange{PlayerID: "a", Delta: nw.Rating - 1300, Won: true, At: now}, cw)
	require.Equal(t, domain.RatingChange{PlayerID: "b", Delta: nl.Rating - 1250, At: now}, cl)
	require.Equal(t, 0, cw.Delta+cl.Delta)
}
