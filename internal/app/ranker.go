package app

import (
	"regexp"
	"sort"

	"github.com/yourusername/songdl-go/internal/domain"
)

// DefaultMaxDurationSeconds keeps albums and podcasts out of the results
const DefaultMaxDurationSeconds = 900

const (
	minSongSeconds = 90
	maxSongSeconds = 420
)

var (
	// Titles that usually mean the plain audio track
	audioPattern = regexp.MustCompile(`(?i)(official\s*audio|lyrics?\s*video|audio|lyric|official\s*music\s*video)`)

	// Titles that are almost never what the user asked for
	rejectPattern = regexp.MustCompile(`(?i)\b(live|concert|reaction|cover|tutorial|karaoke|remix|slowed|reverb|sped\s*up|bass\s*boosted|instrumental|behind[\s-]*the[\s-]*scenes|interview|making[\s-]*of)\b`)
)

// Ranker scores search results and picks the most song-like one
type Ranker struct {
	maxDuration int
}

// NewRanker creates a ranker. A non-positive maxDuration uses the default.
func NewRanker(maxDuration int) *Ranker {
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDurationSeconds
	}
	return &Ranker{maxDuration: maxDuration}
}

// Score returns the heuristic score of a single candidate
func (r *Ranker) Score(c domain.Candidate) int {
	score := 0
	if audioPattern.MatchString(c.Title) {
		score += 3
	}
	if rejectPattern.MatchString(c.Title) {
		score -= 10
	}
	if c.DurationSeconds >= minSongSeconds && c.DurationSeconds <= maxSongSeconds {
		score++
	}
	if c.DurationSeconds > r.maxDuration {
		score -= 5
	}
	return score
}

// Rank returns the best candidate. Ties keep the original order and the top
// entry is returned even when every score is negative.
func (r *Ranker) Rank(candidates []domain.Candidate, query string) (domain.Candidate, error) {
	if len(candidates) == 0 {
		return domain.Candidate{}, domain.ErrNoCandidates
	}

	scored := r.ScoreAll(candidates)
	return scored[0].Candidate, nil
}

// ScoredCandidate pairs a candidate with its score
type ScoredCandidate struct {
	domain.Candidate
	Score int `json:"score"`
}

// ScoreAll scores every candidate and sorts them best first
func (r *Ranker) ScoreAll(candidates []domain.Candidate) []ScoredCandidate {
	scored := make([]ScoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = ScoredCandidate{Candidate: c, Score: r.Score(c)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}
