package matchmaker_test

import (
	"testing"

	"arena-server/internal/matchmaker"
)

func TestApplyEloEqualRatingsWinnerGains(t *testing.T) {
	results := matchmaker.ApplyElo(
		[]string{"winner", "loser"},
		[]int{1000, 1000},
		[]int{1, 2},
	)
	if results[0].NewElo <= results[0].OldElo {
		t.Errorf("winner should gain rating: %+v", results[0])
	}
	if results[1].NewElo >= results[1].OldElo {
		t.Errorf("loser should lose rating: %+v", results[1])
	}
	if results[0].Delta != -results[1].Delta {
		t.Errorf("two-player deltas should be symmetric: got %d and %d", results[0].Delta, results[1].Delta)
	}
}

func TestApplyEloUnderdogWinGainsMore(t *testing.T) {
	upset := matchmaker.ApplyElo([]string{"a", "b"}, []int{900, 1300}, []int{1, 2})
	evenMatch := matchmaker.ApplyElo([]string{"a", "b"}, []int{1000, 1000}, []int{1, 2})

	if upset[0].Delta <= evenMatch[0].Delta {
		t.Errorf("an underdog win should gain more than an even match: upset=%d even=%d", upset[0].Delta, evenMatch[0].Delta)
	}
}

func TestApplyEloNeverGoesNegative(t *testing.T) {
	results := matchmaker.ApplyElo([]string{"a", "b"}, []int{5, 2000}, []int{2, 1})
	if results[0].NewElo < 0 {
		t.Errorf("ELO should clamp at 0, got %d", results[0].NewElo)
	}
}

func TestApplyEloFourPlayerFreeForAll(t *testing.T) {
	results := matchmaker.ApplyElo(
		[]string{"first", "second", "third", "fourth"},
		[]int{1000, 1000, 1000, 1000},
		[]int{1, 2, 3, 4},
	)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if results[0].Delta <= results[3].Delta {
		t.Errorf("first place should gain more than last place: first=%d last=%d", results[0].Delta, results[3].Delta)
	}
	// Ratings started identical and equally spaced in rank; zero-sum should
	// hold exactly before independent rounding, and closely after.
	sum := 0
	for _, r := range results {
		sum += r.Delta
	}
	if sum < -4 || sum > 4 {
		t.Errorf("four-player FFA deltas should sum close to zero, got %d", sum)
	}
}

func TestApplyEloSinglePlayerIsNoOp(t *testing.T) {
	results := matchmaker.ApplyElo([]string{"solo"}, []int{1200}, []int{1})
	if len(results) != 1 || results[0].NewElo != 1200 || results[0].Delta != 0 {
		t.Errorf("a single participant should have no rating change, got %+v", results)
	}
}
