package stats

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/2beens/fitlog/internal/fitness/calendar"
	"github.com/2beens/fitlog/internal/fitness/exercises"
	"github.com/2beens/fitlog/internal/fitness/workouts"
)

type Options struct {
	Calendar calendar.Calendar
	// SplitWindowDays limits the training split to the last N days, 0 means the whole history.
	SplitWindowDays int
}

// categoryOrder is the canonical order of categories in the split and the heatmap.
var categoryOrder = append(slices.Clone(exercises.Categories), exercises.CategoryUnknown)

type consistencyAcc struct {
	count      int
	categories map[exercises.Category]bool
}

// Compute builds the fitness report from the given logs as of now.
// It has no side effects and depends on now only through its calendar day.
func Compute(logs []workouts.LogEntry, now time.Time, opts Options) FitnessStats {
	cal := opts.Calendar
	today := cal.Day(now)
	weekFrom := today.AddDays(-(WeekDays - 1))
	heatFrom := today.AddDays(-(ConsistencyDays - 1))
	splitFrom := today.AddDays(-(opts.SplitWindowDays - 1))

	uniqueDays := make(map[calendar.Day]bool)
	rpeSum, rpeCount := 0.0, 0
	split := make(map[exercises.Category]int)
	weeks := make(map[calendar.Day]*CategoryCounts)
	heat := make(map[calendar.Day]*consistencyAcc)

	for _, l := range logs {
		day := cal.Day(l.Date)
		category := l.Exercise.Category
		if !category.IsValid() {
			category = exercises.CategoryUnknown
		}

		uniqueDays[day] = true

		if l.RPE != nil && day.Within(weekFrom, today) {
			rpeSum += *l.RPE
			rpeCount++
		}

		if opts.SplitWindowDays <= 0 || day.Within(splitFrom, today) {
			split[category]++
		}

		if day.Within(heatFrom, today) {
			week, ok := weeks[day.Monday()]
			if !ok {
				week = &CategoryCounts{}
				weeks[day.Monday()] = week
			}
			week.add(category)

			acc, ok := heat[day]
			if !ok {
				acc = &consistencyAcc{categories: make(map[exercises.Category]bool)}
				heat[day] = acc
			}
			acc.count++
			acc.categories[category] = true
		}
	}

	stats := FitnessStats{
		WeeklyFrequency:         weeklyFrequency(uniqueDays, today),
		RecentPRs:               recentPRs(logs),
		TotalWorkouts:           len(uniqueDays),
		CurrentStreak:           streak(uniqueDays, today),
		TrainingSplit:           trainingSplit(split),
		TrainingSplitWindowDays: max(opts.SplitWindowDays, 0),
		Trend:                   trend(weeks, today),
		Consistency:             consistency(heat, heatFrom),
		Day:                     today,
		Timezone:                cal.Name(),
	}
	if rpeCount > 0 {
		stats.WeeklyAvgRpe = math.Round(rpeSum/float64(rpeCount)*10) / 10
	}

	return stats
}

func weeklyFrequency(uniqueDays map[calendar.Day]bool, today calendar.Day) []DayFrequency {
	freq := make([]DayFrequency, 0, WeekDays)
	for d := today.AddDays(-(WeekDays - 1)); d <= today; d = d.AddDays(1) {
		count := 0
		if uniqueDays[d] {
			count = 1
		}
		freq = append(freq, DayFrequency{
			Day:     d,
			DayName: d.ShortName(),
			Count:   count,
		})
	}
	return freq
}

// streak counts consecutive workout days ending today or yesterday.
func streak(uniqueDays map[calendar.Day]bool, today calendar.Day) int {
	if len(uniqueDays) == 0 {
		return 0
	}

	days := make([]calendar.Day, 0, len(uniqueDays))
	for d := range uniqueDays {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] > days[j] })

	if days[0] != today && days[0] != today.AddDays(-1) {
		return 0
	}

	count := 1
	for i := 1; i < len(days); i++ {
		if days[i-1].Sub(days[i]) != 1 {
			break
		}
		count++
	}
	return count
}

func recentPRs(logs []workouts.LogEntry) []RecentPR {
	sorted := slices.Clone(logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	prs := make([]RecentPR, 0, MaxRecentPRs)
	seen := make(map[string]bool)
	for _, l := range sorted {
		if len(prs) == MaxRecentPRs {
			break
		}
		if !l.IsPR || l.Weight == nil || seen[l.Exercise.Name] {
			continue
		}
		seen[l.Exercise.Name] = true
		prs = append(prs, RecentPR{
			Exercise: l.Exercise.Name,
			Weight:   *l.Weight,
			Date:     l.Date,
		})
	}
	return prs
}

func trainingSplit(split map[exercises.Category]int) []CategoryCount {
	counts := make([]CategoryCount, 0, len(split))
	for _, c := range categoryOrder {
		if split[c] == 0 {
			continue
		}
		counts = append(counts, CategoryCount{
			Category: c,
			Count:    split[c],
		})
	}
	return counts
}

func trend(weeks map[calendar.Day]*CategoryCounts, today calendar.Day) []TrendWeek {
	thisMonday := today.Monday()
	out := make([]TrendWeek, 0, TrendWeeks)
	for i := TrendWeeks - 1; i >= 0; i-- {
		monday := thisMonday.AddDays(-7 * i)
		week := TrendWeek{
			Week:  monday,
			Label: monday.Label(),
		}
		if counts, ok := weeks[monday]; ok {
			week.CategoryCounts = *counts
		}
		out = append(out, week)
	}
	return out
}

func consistency(heat map[calendar.Day]*consistencyAcc, from calendar.Day) []ConsistencyDay {
	days := make([]ConsistencyDay, 0, ConsistencyDays)
	for i := 0; i < ConsistencyDays; i++ {
		d := from.AddDays(i)
		day := ConsistencyDay{
			Date:       d,
			Categories: []exercises.Category{},
		}
		if acc, ok := heat[d]; ok {
			day.Count = acc.count
			day.Level = ConsistencyLevel(acc.count)
			for _, c := range categoryOrder {
				if acc.categories[c] {
					day.Categories = append(day.Categories, c)
				}
			}
		}
		days = append(days, day)
	}
	return days
}
