package scoring

import (
	"testing"

	"github.com/google/uuid"
	"github.com/prepdesk/prepdesk-backend/internal/examcfg"
)

func makeKeys(n int) []Key {
	keys := make([]Key, n)
	for i := range keys {
		keys[i] = Key{QuestionID: uuid.New(), CorrectIndex: 0}
	}
	return keys
}

func TestGradeNegativeMarking(t *testing.T) {
	rule := examcfg.ScoringRule{Correct: 1, Incorrect: -0.25, Skipped: 0}
	keys := makeKeys(10)

	// 6 correct, 2 wrong, 2 skipped.
	answers := make(map[uuid.UUID]int)
	for i := 0; i < 6; i++ {
		answers[keys[i].QuestionID] = 0
	}
	for i := 6; i < 8; i++ {
		answers[keys[i].QuestionID] = 2
	}

	got := Grade(rule, keys, answers)

	if got.Correct != 6 || got.Wrong != 2 || got.Skipped != 2 {
		t.Fatalf("tally = %d/%d/%d, want 6/2/2", got.Correct, got.Wrong, got.Skipped)
	}
	if got.Score != 5.5 {
		t.Errorf("score = %v, want 5.5", got.Score)
	}
	if got.Percentage != 60 {
		t.Errorf("percentage = %d, want 60", got.Percentage)
	}
}

func TestGradePercentageClamped(t *testing.T) {
	// All wrong under heavy negative marking: raw score goes negative but
	// the displayed percentage never does.
	rule := examcfg.ScoringRule{Correct: 1, Incorrect: -2, Skipped: 0}
	keys := makeKeys(4)

	answers := make(map[uuid.UUID]int)
	for _, k := range keys {
		answers[k.QuestionID] = 3
	}

	got := Grade(rule, keys, answers)
	if got.Score != -8 {
		t.Errorf("score = %v, want -8", got.Score)
	}
	if got.Percentage != 0 {
		t.Errorf("percentage = %d, want 0", got.Percentage)
	}
}

func TestGradeUnansweredSentinel(t *testing.T) {
	rule := examcfg.ScoringRule{Correct: 2, Incorrect: -1, Skipped: 0.5}
	keys := makeKeys(3)

	answers := map[uuid.UUID]int{
		keys[0].QuestionID: 0,          // correct
		keys[1].QuestionID: Unanswered, // explicit sentinel counts as skipped
		// keys[2] missing entirely
	}

	got := Grade(rule, keys, answers)
	if got.Correct != 1 || got.Wrong != 0 || got.Skipped != 2 {
		t.Fatalf("tally = %d/%d/%d, want 1/0/2", got.Correct, got.Wrong, got.Skipped)
	}
	if got.Score != 3 {
		t.Errorf("score = %v, want 3", got.Score)
	}
}

func TestGradeEmptyQuestionSet(t *testing.T) {
	got := Grade(examcfg.ScoringRule{Correct: 1}, nil, nil)
	if got.Score != 0 || got.Percentage != 0 {
		t.Errorf("empty grade = %+v, want zero outcome", got)
	}
}

func TestGradeAnswersForUnknownQuestionsIgnored(t *testing.T) {
	rule := examcfg.ScoringRule{Correct: 1}
	keys := makeKeys(2)

	answers := map[uuid.UUID]int{
		keys[0].QuestionID: 0,
		uuid.New():         0, // not part of the exam
	}

	got := Grade(rule, keys, answers)
	if got.Correct != 1 || got.Skipped != 1 {
		t.Fatalf("tally = %d correct / %d skipped, want 1/1", got.Correct, got.Skipped)
	}
}
