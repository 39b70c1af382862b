package workouts

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/2beens/fitlog/internal/fitness/exercises"
)

var (
	ErrWorkoutLogNotFound = errors.New("workout log not found")
	ErrInvalidSet         = errors.New("invalid set")
	ErrInvalidListParams  = errors.New("invalid list params")
)

// WorkoutLog is one logged set.
// IsPR is decided once, when the set is logged, and is never re-evaluated.
type WorkoutLog struct {
	ID           int       `json:"id"`
	ExerciseID   int       `json:"exerciseId"`
	Date         time.Time `json:"date"`
	Weight       *float64  `json:"weight"`
	Reps         *int      `json:"reps"`
	RPE          *float64  `json:"rpe"`
	DurationMins *float64  `json:"durationMins"`
	Notes        *string   `json:"notes"`
	SetNumber    int       `json:"setNumber"`
	IsPR         bool      `json:"isPr"`
}

type ExerciseRef struct {
	Name     string             `json:"name"`
	Category exercises.Category `json:"category"`
}

// LogEntry is a workout log joined with its exercise.
type LogEntry struct {
	WorkoutLog
	Exercise ExerciseRef `json:"exercise"`
}

type LogSetInput struct {
	ExerciseID        int        `json:"exerciseId"`
	RoutineExerciseID *int       `json:"routineExerciseId,omitempty"`
	Date              *time.Time `json:"date,omitempty"`
	Weight            *float64   `json:"weight,omitempty"`
	Reps              *int       `json:"reps,omitempty"`
	RPE               *float64   `json:"rpe,omitempty"`
	DurationMins      *float64   `json:"durationMins,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
	SetNumber         int        `json:"setNumber"`
}

type LogResult struct {
	Log   *WorkoutLog `json:"log"`
	NewPR bool        `json:"newPR"`
}

// SetPatch holds a correction of a logged set. Nil fields are left unchanged.
type SetPatch struct {
	Date         *time.Time `json:"date,omitempty"`
	Weight       *float64   `json:"weight,omitempty"`
	Reps         *int       `json:"reps,omitempty"`
	RPE          *float64   `json:"rpe,omitempty"`
	DurationMins *float64   `json:"durationMins,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	SetNumber    *int       `json:"setNumber,omitempty"`
}

func (p SetPatch) apply(l WorkoutLog) WorkoutLog {
	if p.Date != nil {
		l.Date = *p.Date
	}
	if p.Weight != nil {
		l.Weight = p.Weight
	}
	if p.Reps != nil {
		l.Reps = p.Reps
	}
	if p.RPE != nil {
		l.RPE = p.RPE
	}
	if p.DurationMins != nil {
		l.DurationMins = p.DurationMins
	}
	if p.Notes != nil {
		l.Notes = p.Notes
	}
	if p.SetNumber != nil {
		l.SetNumber = *p.SetNumber
	}
	return l
}

func (l WorkoutLog) validate() error {
	if l.ExerciseID <= 0 {
		return fmt.Errorf("%w: exercise id must be positive", ErrInvalidSet)
	}
	if err := nonNegative("weight", l.Weight); err != nil {
		return err
	}
	if l.Reps != nil && *l.Reps < 0 {
		return fmt.Errorf("%w: reps must not be negative", ErrInvalidSet)
	}
	if err := nonNegative("duration", l.DurationMins); err != nil {
		return err
	}
	if l.RPE != nil && (math.IsNaN(*l.RPE) || *l.RPE < 1 || *l.RPE > 10) {
		return fmt.Errorf("%w: rpe must be between 1 and 10", ErrInvalidSet)
	}
	if l.SetNumber < 1 {
		return fmt.Errorf("%w: set number must be at least 1", ErrInvalidSet)
	}
	if l.Date.IsZero() {
		return fmt.Errorf("%w: date missing", ErrInvalidSet)
	}
	return nil
}

func nonNegative(field string, v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidSet, field)
	}
	return nil
}
