package examcfg

import "testing"

func TestSectionCountsSumToTotal(t *testing.T) {
	for _, cfg := range All() {
		sum := 0
		for _, s := range cfg.Sections {
			sum += s.QuestionCount
		}
		if sum != cfg.TotalQuestions {
			t.Errorf("exam %s: section counts sum to %d, total is %d", cfg.ID, sum, cfg.TotalQuestions)
		}
	}
}

func TestSectionNumbersContiguous(t *testing.T) {
	for _, cfg := range All() {
		for i, s := range cfg.Sections {
			if s.Number != i+1 {
				t.Errorf("exam %s: section at index %d numbered %d", cfg.ID, i, s.Number)
			}
			if s.DurationMinutes <= 0 {
				t.Errorf("exam %s: section %q has duration %d", cfg.ID, s.Name, s.DurationMinutes)
			}
		}
	}
}

func TestGetUnknownExam(t *testing.T) {
	if _, err := Get("gmat"); err == nil {
		t.Fatal("expected error for unknown exam type, got nil")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	a, err := Get("ielts")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	a.Sections[0].DurationMinutes = 999

	b, _ := Get("ielts")
	if b.Sections[0].DurationMinutes == 999 {
		t.Fatal("registry mutated through a Get copy")
	}
}

func TestSectionLookup(t *testing.T) {
	cfg, _ := Get("imat")

	tests := []struct {
		number  int
		wantErr bool
	}{
		{number: 0, wantErr: true},
		{number: 1, wantErr: false},
		{number: 4, wantErr: false},
		{number: 5, wantErr: true},
	}
	for _, tc := range tests {
		_, err := cfg.Section(tc.number)
		if (err != nil) != tc.wantErr {
			t.Errorf("Section(%d): err = %v, wantErr = %v", tc.number, err, tc.wantErr)
		}
	}

	if !cfg.LastSection(4) {
		t.Error("section 4 should be the last IMAT section")
	}
	if cfg.LastSection(3) {
		t.Error("section 3 is not the last IMAT section")
	}
}

func TestTotalMinutes(t *testing.T) {
	cfg, _ := Get("sat")
	if got := cfg.TotalMinutes(); got != 134 {
		t.Errorf("sat total minutes = %d, want 134", got)
	}
}
