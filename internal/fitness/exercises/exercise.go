package exercises

import (
	"strings"
	"time"
)

// Category is the closed set of exercise categories.
// Anything not recognized is kept as CategoryUnknown instead of being dropped.
type Category string

const (
	CategoryUpperBody  Category = "UpperBody"
	CategoryLowerBody  Category = "LowerBody"
	CategoryCardio     Category = "Cardio"
	CategoryFunctional Category = "Functional"
	CategoryUnknown    Category = "Unknown"
)

// Categories lists the known categories in their canonical order.
var Categories = []Category{
	CategoryUpperBody,
	CategoryLowerBody,
	CategoryCardio,
	CategoryFunctional,
}

// ParseCategory maps a stored/requested category string to a Category.
// Matching ignores case and surrounding whitespace.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c
		}
	}
	return CategoryUnknown
}

func (c Category) String() string {
	return string(c)
}

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryUpperBody,
		CategoryLowerBody,
		CategoryCardio,
		CategoryFunctional:
		return true
	default:
		return false
	}
}

// Exercise is an entry of the master exercise catalog.
// PersonalRecord is the best weight ever logged and never decreases.
type Exercise struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Category       Category  `json:"category"`
	PersonalRecord float64   `json:"personalRecord"`
	CreatedAt      time.Time `json:"createdAt"`
}

// RoutineExercise is an exercise attached to a routine, carrying
// the defaults used when a set is logged from that routine.
type RoutineExercise struct {
	ID                  int      `json:"id"`
	RoutineID           int      `json:"routineId"`
	ExerciseID          int      `json:"exerciseId"`
	DefaultSets         *int     `json:"defaultSets,omitempty"`
	DefaultReps         *int     `json:"defaultReps,omitempty"`
	DefaultWeight       *float64 `json:"defaultWeight,omitempty"`
	DefaultDurationMins *float64 `json:"defaultDurationMins,omitempty"`
	Notes               *string  `json:"notes,omitempty"`
	SortOrder           int      `json:"sortOrder"`
}
