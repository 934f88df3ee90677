// Package progress tracks per-surface accuracy, streaks and exam history
// for the learner record.
package progress

import (
	"sort"
	"time"
)

// Stats is cumulative progress on one surface.
type Stats struct {
	Attempts      int       `json:"attempts"`
	Correct       int       `json:"correct"`
	Accuracy      float64   `json:"accuracy"` // Correct / Attempts (computed)
	Streak        int       `json:"streak"`
	BestStreak    int       `json:"best_streak"`
	LastPracticed time.Time `json:"last_practiced,omitzero"`
}

// Record adds one answer result. It returns the streak milestone reached
// by this answer, or 0.
func (s *Stats) Record(correct bool, now time.Time) int {
	s.Attempts++
	s.LastPracticed = now
	if correct {
		s.Correct++
		s.Streak++
	} else {
		s.Streak = 0
	}
	if s.Streak > s.BestStreak {
		s.BestStreak = s.Streak
	}
	if s.Attempts > 0 {
		s.Accuracy = float64(s.Correct) / float64(s.Attempts)
	}
	if s.Streak > 0 && NextStreakThreshold(s.Streak-1) == s.Streak {
		return s.Streak
	}
	return 0
}

// NextStreakThreshold returns the next streak milestone above the current streak length.
func NextStreakThreshold(current int) int {
	thresholds := []int{5, 10, 15, 20}
	for _, t := range thresholds {
		if t > current {
			return t
		}
	}
	// Beyond 20, every 5.
	return ((current / 5) + 1) * 5
}

// ExamResult is one graded exam.
type ExamResult struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Questions int       `json:"questions"`
	Score     int       `json:"score"`
	TakenAt   time.Time `json:"taken_at"`
}

// maxExamHistory bounds the stored exam history.
const maxExamHistory = 50

// Tracker holds progress for every surface.
type Tracker struct {
	Surfaces map[string]*Stats `json:"surfaces"`
	Exams    []ExamResult      `json:"exams"`
}

// Record adds one answer result for a surface and returns any streak
// milestone reached.
func (t *Tracker) Record(surface string, correct bool, now time.Time) int {
	if t.Surfaces == nil {
		t.Surfaces = make(map[string]*Stats)
	}
	s, ok := t.Surfaces[surface]
	if !ok {
		s = &Stats{}
		t.Surfaces[surface] = s
	}
	return s.Record(correct, now)
}

// RecordExam appends a graded exam, keeping the most recent ones.
func (t *Tracker) RecordExam(r ExamResult) {
	t.Exams = append(t.Exams, r)
	if len(t.Exams) > maxExamHistory {
		t.Exams = t.Exams[len(t.Exams)-maxExamHistory:]
	}
}

// Get returns a copy of a surface's stats.
func (t Tracker) Get(surface string) Stats {
	if s, ok := t.Surfaces[surface]; ok {
		return *s
	}
	return Stats{}
}

// Totals sums attempts and correct answers across surfaces.
func (t Tracker) Totals() Stats {
	var total Stats
	for _, s := range t.Surfaces {
		total.Attempts += s.Attempts
		total.Correct += s.Correct
		if s.BestStreak > total.BestStreak {
			total.BestStreak = s.BestStreak
		}
		if s.LastPracticed.After(total.LastPracticed) {
			total.LastPracticed = s.LastPracticed
		}
	}
	if total.Attempts > 0 {
		total.Accuracy = float64(total.Correct) / float64(total.Attempts)
	}
	return total
}

// SurfaceNames returns surfaces with recorded progress, sorted.
func (t Tracker) SurfaceNames() []string {
	names := make([]string, 0, len(t.Surfaces))
	for name := range t.Surfaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AverageExamScore returns the mean score of stored exams, or 0.
func (t Tracker) AverageExamScore() float64 {
	if len(t.Exams) == 0 {
		return 0
	}
	sum := 0
	for _, e := range t.Exams {
		sum += e.Score
	}
	return float64(sum) / float64(len(t.Exams))
}
