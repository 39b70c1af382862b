package workouts

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/2beens/fitlog/internal/fitness/exercises"
)

// MemoryStore is an in-memory log store with the same PR semantics as Repo.
// Used in tests and local tooling.
type MemoryStore struct {
	mutex sync.Mutex

	lastExerciseID   int
	lastLogID        int
	exercises        map[int]exercises.Exercise
	routineExercises map[int]exercises.RoutineExercise
	logs             map[int]WorkoutLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		exercises:        make(map[int]exercises.Exercise),
		routineExercises: make(map[int]exercises.RoutineExercise),
		logs:             make(map[int]WorkoutLog),
	}
}

// AddExercise stores the exercise, assigning an id when it has none.
func (s *MemoryStore) AddExercise(e exercises.Exercise) exercises.Exercise {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if e.ID == 0 {
		s.lastExerciseID++
		e.ID = s.lastExerciseID
	} else if e.ID > s.lastExerciseID {
		s.lastExerciseID = e.ID
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s.exercises[e.ID] = e
	return e
}

func (s *MemoryStore) AddRoutineExercise(re exercises.RoutineExercise) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.routineExercises[re.ID] = re
}

func (s *MemoryStore) GetExercise(_ context.Context, id int) (*exercises.Exercise, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, ok := s.exercises[id]
	if !ok {
		return nil, exercises.ErrExerciseNotFound
	}
	return &e, nil
}

func (s *MemoryStore) GetRoutineExercise(_ context.Context, id int) (*exercises.RoutineExercise, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	re, ok := s.routineExercises[id]
	if !ok {
		return nil, exercises.ErrRoutineExerciseNotFound
	}
	return &re, nil
}

func (s *MemoryStore) LogSet(_ context.Context, wl WorkoutLog) (*WorkoutLog, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, ok := s.exercises[wl.ExerciseID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", exercises.ErrExerciseNotFound, wl.ExerciseID)
	}

	wl.IsPR = IsNewPR(wl.Weight, e.PersonalRecord)
	if wl.IsPR {
		e.PersonalRecord = *wl.Weight
		s.exercises[e.ID] = e
	}

	s.lastLogID++
	wl.ID = s.lastLogID
	s.logs[wl.ID] = wl

	return &wl, nil
}

func (s *MemoryStore) Get(_ context.Context, id int) (*WorkoutLog, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	wl, ok := s.logs[id]
	if !ok {
		return nil, ErrWorkoutLogNotFound
	}
	return &wl, nil
}

func (s *MemoryStore) Update(_ context.Context, wl WorkoutLog) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stored, ok := s.logs[wl.ID]
	if !ok {
		return ErrWorkoutLogNotFound
	}
	wl.ExerciseID = stored.ExerciseID
	wl.IsPR = stored.IsPR
	s.logs[wl.ID] = wl
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.logs[id]; !ok {
		return ErrWorkoutLogNotFound
	}
	delete(s.logs, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context, params ListParams) ([]WorkoutLog, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var logs []WorkoutLog
	for _, wl := range s.sortedLogs() {
		if params.ExerciseID != 0 && wl.ExerciseID != params.ExerciseID {
			continue
		}
		logs = append(logs, wl)
	}

	if params.Offset >= len(logs) {
		return []WorkoutLog{}, nil
	}
	logs = logs[params.Offset:]
	if params.Limit > 0 && params.Limit < len(logs) {
		logs = logs[:params.Limit]
	}
	return logs, nil
}

func (s *MemoryStore) ListAllWithExercise(_ context.Context) ([]LogEntry, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entries := make([]LogEntry, 0, len(s.logs))
	for _, wl := range s.sortedLogs() {
		e, ok := s.exercises[wl.ExerciseID]
		if !ok {
			continue
		}
		entries = append(entries, LogEntry{
			WorkoutLog: wl,
			Exercise: ExerciseRef{
				Name:     e.Name,
				Category: e.Category,
			},
		})
	}
	return entries, nil
}

// sortedLogs returns logs newest first, must be called with the mutex held.
func (s *MemoryStore) sortedLogs() []WorkoutLog {
	logs := make([]WorkoutLog, 0, len(s.logs))
	for _, wl := range s.logs {
		logs = append(logs, wl)
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].Date.Equal(logs[j].Date) {
			return logs[i].Date.After(logs[j].Date)
		}
		return logs[i].ID > logs[j].ID
	})
	return logs
}
