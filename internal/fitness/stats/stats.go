package stats

import (
	"time"

	"github.com/2beens/fitlog/internal/fitness/calendar"
	"github.com/2beens/fitlog/internal/fitness/exercises"
)

const (
	WeekDays        = 7
	TrendWeeks      = 12
	ConsistencyDays = 90
	MaxRecentPRs    = 5
	MaxConsistency  = 4
)

// FitnessStats is the report derived from the full log history for one calendar day.
// TrainingSplitWindowDays is the number of days the split covers, 0 means the whole history.
type FitnessStats struct {
	WeeklyFrequency         []DayFrequency   `json:"weeklyFrequency"`
	RecentPRs               []RecentPR       `json:"recentPRs"`
	TotalWorkouts           int              `json:"totalWorkouts"`
	CurrentStreak           int              `json:"currentStreak"`
	WeeklyAvgRpe            float64          `json:"weeklyAvgRpe"`
	TrainingSplit           []CategoryCount  `json:"trainingSplit"`
	TrainingSplitWindowDays int              `json:"trainingSplitWindowDays"`
	Trend                   []TrendWeek      `json:"trend"`
	Consistency             []ConsistencyDay `json:"consistency"`
	Day                     calendar.Day     `json:"day"`
	Timezone                string           `json:"timezone"`
}

// DayFrequency tells if there was any workout on the given day.
type DayFrequency struct {
	Day     calendar.Day `json:"day"`
	DayName string       `json:"dayName"`
	Count   int          `json:"count"`
}

type RecentPR struct {
	Exercise string    `json:"exercise"`
	Weight   float64   `json:"weight"`
	Date     time.Time `json:"date"`
}

type CategoryCount struct {
	Category exercises.Category `json:"category"`
	Count    int                `json:"count"`
}

type CategoryCounts struct {
	UpperBody  int `json:"upperBody"`
	LowerBody  int `json:"lowerBody"`
	Cardio     int `json:"cardio"`
	Functional int `json:"functional"`
	Unknown    int `json:"unknown,omitempty"`
}

func (c *CategoryCounts) add(category exercises.Category) {
	switch category {
	case exercises.CategoryUpperBody:
		c.UpperBody++
	case exercises.CategoryLowerBody:
		c.LowerBody++
	case exercises.CategoryCardio:
		c.Cardio++
	case exercises.CategoryFunctional:
		c.Functional++
	default:
		c.Unknown++
	}
}

// TrendWeek holds set counts per category for the week starting on Monday Week.
type TrendWeek struct {
	Week  calendar.Day `json:"week"`
	Label string       `json:"label"`
	CategoryCounts
}

type ConsistencyDay struct {
	Date       calendar.Day         `json:"date"`
	Count      int                  `json:"count"`
	Level      int                  `json:"level"`
	Categories []exercises.Category `json:"categories"`
}

// ConsistencyLevel maps a day's set count to a heatmap level in 0..4.
// Every started group of 3 sets adds a level.
func ConsistencyLevel(count int) int {
	if count <= 0 {
		return 0
	}
	return min((count+2)/3, MaxConsistency)
}
