package model

import "testing"

func TestSectionCompleted(t *testing.T) {
	s := &ExamSession{
		Status:            SessionStatusInProgress,
		CurrentSection:    3,
		CompletedSections: []int32{1, 2},
	}

	if !s.SectionCompleted(1) || !s.SectionCompleted(2) {
		t.Error("sections 1 and 2 should be completed")
	}
	if s.SectionCompleted(3) {
		t.Error("current section should not be completed")
	}
}

func TestCanAnswer(t *testing.T) {
	tests := []struct {
		name    string
		session ExamSession
		section int
		want    bool
	}{
		{
			name:    "current section of in-progress session",
			session: ExamSession{Status: SessionStatusInProgress, CurrentSection: 2, CompletedSections: []int32{1}},
			section: 2,
			want:    true,
		},
		{
			name:    "completed section never answerable again",
			session: ExamSession{Status: SessionStatusInProgress, CurrentSection: 2, CompletedSections: []int32{1}},
			section: 1,
			want:    false,
		},
		{
			name:    "future section not yet answerable",
			session: ExamSession{Status: SessionStatusInProgress, CurrentSection: 2},
			section: 3,
			want:    false,
		},
		{
			name:    "finished session rejects all answers",
			session: ExamSession{Status: SessionStatusCompleted, CurrentSection: 2},
			section: 2,
			want:    false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.session.CanAnswer(tc.section); got != tc.want {
				t.Errorf("CanAnswer(%d) = %v, want %v", tc.section, got, tc.want)
			}
		})
	}
}

func TestCompletedSectionsBehindPointer(t *testing.T) {
	// Forward-only invariant: every completed section number is strictly
	// below the current pointer.
	s := &ExamSession{CurrentSection: 4, CompletedSections: []int32{1, 2, 3}}
	for _, n := range s.CompletedSections {
		if int(n) >= s.CurrentSection {
			t.Errorf("completed section %d not behind current_section %d", n, s.CurrentSection)
		}
	}
}
