package scoring

import (
	"math"

	"github.com/google/uuid"
	"github.com/prepdesk/prepdesk-backend/internal/examcfg"
)

// Key pairs a question with its correct option index.
type Key struct {
	QuestionID   uuid.UUID
	CorrectIndex int
}

// Outcome is the result of grading one session against the full question set.
type Outcome struct {
	Correct    int
	Wrong      int
	Skipped    int
	Score      float64
	Percentage int
}

// Unanswered is the sentinel selected index for a question the student
// never answered. It grades the same as a missing answer entry.
const Unanswered = -1

// Grade applies the exam's scoring rule to every question. answers maps
// question id to the selected option index; questions absent from the map
// are skipped. The displayed percentage is clamped to be non-negative and
// rounds correct/total to the nearest integer.
func Grade(rule examcfg.ScoringRule, keys []Key, answers map[uuid.UUID]int) Outcome {
	var out Outcome

	for _, k := range keys {
		selected, ok := answers[k.QuestionID]
		switch {
		case !ok || selected == Unanswered:
			out.Skipped++
			out.Score += rule.Skipped
		case selected == k.CorrectIndex:
			out.Correct++
			out.Score += rule.Correct
		default:
			out.Wrong++
			out.Score += rule.Incorrect
		}
	}

	if len(keys) > 0 {
		pct := math.Round(float64(out.Correct) / float64(len(keys)) * 100)
		out.Percentage = int(math.Max(0, pct))
	}
	return out
}
