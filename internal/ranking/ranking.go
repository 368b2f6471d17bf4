// Package ranking orders videos for the "top videos" listing.
package ranking

import (
	"sort"
	"time"

	"github.com/chotuve/appserver/internal/models"
)

// TopLimit is the number of videos returned by the top listing.
const TopLimit = 10

const (
	sinceWeight        = 0.2
	approvalWeight     = 0.5
	videoCountWeight   = 0.05
	commentCountWeight = 0.4
)

// Candidate is a video annotated with the signals used for scoring.
type Candidate struct {
	Video            models.Video
	Reactions        models.ReactionCounts
	AuthorVideoCount int
	CommentCount     int
}

// maxima holds the per-batch normalisation denominators. Every field is
// floored at 1 so no component divides by zero.
type maxima struct {
	sinceSeconds float64
	approval     float64
	videoCount   float64
	commentCount float64
}

func batchMaxima(candidates []Candidate, now time.Time) maxima {
	m := maxima{sinceSeconds: 1, approval: 1, videoCount: 1, commentCount: 1}
	for _, c := range candidates {
		if s := sinceSeconds(c, now); s > m.sinceSeconds {
			m.sinceSeconds = s
		}
		if a := float64(c.Reactions.Approval()); a > m.approval {
			m.approval = a
		}
		if v := float64(c.AuthorVideoCount); v > m.videoCount {
			m.videoCount = v
		}
		if n := float64(c.CommentCount); n > m.commentCount {
			m.commentCount = n
		}
	}
	return m
}

func sinceSeconds(c Candidate, now time.Time) float64 {
	return now.Sub(c.Video.CreatedAt).Seconds()
}

func (m maxima) score(c Candidate, now time.Time) float64 {
	since := 1 - sinceSeconds(c, now)/m.sinceSeconds
	approval := float64(c.Reactions.Approval()) / m.approval
	videoCountPenalty := -(float64(c.AuthorVideoCount) / m.videoCount)
	comments := float64(c.CommentCount) / m.commentCount

	return sinceWeight*since +
		approvalWeight*approval +
		videoCountWeight*videoCountPenalty +
		commentCountWeight*comments
}

// Scores returns the score of every candidate, normalised against the batch.
func Scores(candidates []Candidate, now time.Time) []float64 {
	if len(candidates) == 0 {
		return nil
	}
	m := batchMaxima(candidates, now)
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = m.score(c, now)
	}
	return scores
}

// Rank sorts candidates by descending score and keeps at most limit of them.
// Ties keep their input order. The input slice is not modified.
func Rank(candidates []Candidate, now time.Time, limit int) []Candidate {
	if len(candidates) == 0 || limit <= 0 {
		return []Candidate{}
	}

	scores := Scores(candidates, now)
	idx := make([]int, len(candidates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	if len(idx) > limit {
		idx = idx[:limit]
	}

	ranked := make([]Candidate, len(idx))
	for i, j := range idx {
		ranked[i] = candidates[j]
	}
	return ranked
}
