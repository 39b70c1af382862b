package workouts_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/2beens/fitlog/internal/fitness/exercises"
	"github.com/2beens/fitlog/internal/fitness/workouts"
	"github.com/2beens/fitlog/internal/telemetry/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// docker client keep-alive connections of the integration tests
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func ptr[T any](v T) *T {
	return &v
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func newTestLogger(t *testing.T) (*workouts.SetLogger, *workouts.MemoryStore, exercises.Exercise, *metrics.Manager) {
	t.Helper()
	store := workouts.NewMemoryStore()
	bench := store.AddExercise(exercises.Exercise{
		Name:     "Bench Press",
		Category: exercises.CategoryUpperBody,
	})
	m := metrics.NewTestManager()
	logger := workouts.NewSetLogger(store, store, nil, m)
	return logger, store, bench, m
}

func TestIsNewPR(t *testing.T) {
	assert.True(t, workouts.IsNewPR(ptr(50.0), 0))
	assert.True(t, workouts.IsNewPR(ptr(50.5), 50))
	assert.False(t, workouts.IsNewPR(ptr(50.0), 50))
	assert.False(t, workouts.IsNewPR(ptr(40.0), 50))
	assert.False(t, workouts.IsNewPR(nil, 0))
	assert.False(t, workouts.IsNewPR(ptr(0.0), 0))
}

func TestSetLogger_LogSet_PRFlags(t *testing.T) {
	ctx := context.Background()
	logger, store, bench, m := newTestLogger(t)

	res, err := logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: bench.ID, Weight: ptr(50.0), Reps: ptr(5)})
	require.NoError(t, err)
	require.NotNil(t, res.Log)
	assert.True(t, res.NewPR)
	assert.True(t, res.Log.IsPR)
	assert.Equal(t, 1, res.Log.SetNumber)

	res, err = logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: bench.ID, Weight: ptr(40.0), Reps: ptr(8), SetNumber: 2})
	require.NoError(t, err)
	assert.False(t, res.NewPR)
	assert.Equal(t, 2, res.Log.SetNumber)

	// a tie is not a new record
	res, err = logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: bench.ID, Weight: ptr(50.0), Reps: ptr(5)})
	require.NoError(t, err)
	assert.False(t, res.NewPR)

	// sets without weight never count
	res, err = logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: bench.ID, Reps: ptr(20)})
	require.NoError(t, err)
	assert.False(t, res.NewPR)

	e, err := store.GetExercise(ctx, bench.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, e.PersonalRecord)

	assert.Equal(t, 4.0, counterValue(t, m.CounterSetsLogged))
	assert.Equal(t, 1.0, counterValue(t, m.CounterNewPRs))
	assert.Equal(t, 0.0, counterValue(t, m.CounterSetsLogFailed))
}

func TestSetLogger_LogSet_Monotonic(t *testing.T) {
	ctx := context.Background()
	logger, store, bench, _ := newTestLogger(t)

	faker := gofakeit.New(42)
	best := 0.0
	for i := 0; i < 200; i++ {
		var weight *float64
		if faker.Number(0, 9) > 0 {
			weight = ptr(faker.Float64Range(0, 200))
		}

		res, err := logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: bench.ID, Weight: weight})
		require.NoError(t, err)

		wantPR := weight != nil && *weight > best
		assert.Equal(t, wantPR, res.NewPR, "set %d", i)
		if wantPR {
			best = *weight
		}

		e, err := store.GetExercise(ctx, bench.ID)
		require.NoError(t, err)
		require.Equal(t, best, e.PersonalRecord)
	}
}

func TestSetLogger_LogSet_Concurrent(t *testing.T) {
	ctx := context.Background()
	logger, store, bench, _ := newTestLogger(t)

	faker := gofakeit.New(7)
	weights := make([]float64, 100)
	maxWeight := 0.0
	for i := range weights {
		weights[i] = faker.Float64Range(1, 300)
		if weights[i] > maxWeight {
			maxWeight = weights[i]
		}
	}

	var wg sync.WaitGroup
	results := make([]workouts.LogResult, len(weights))
	for i, w := range weights {
		wg.Add(1)
		go func(i int, w float64) {
			defer wg.Done()
			res, err := logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: bench.ID, Weight: ptr(w)})
			assert.NoError(t, err)
			results[i] = res
		}(i, w)
	}
	wg.Wait()

	e, err := store.GetExercise(ctx, bench.ID)
	require.NoError(t, err)
	assert.Equal(t, maxWeight, e.PersonalRecord)

	// in log order, every PR beats all sets logged before it
	logs := make([]*workouts.WorkoutLog, len(results)+1)
	for _, res := range results {
		require.NotNil(t, res.Log)
		logs[res.Log.ID] = res.Log
	}
	best := 0.0
	for _, wl := range logs[1:] {
		assert.Equal(t, *wl.Weight > best, wl.IsPR, "log %d", wl.ID)
		if *wl.Weight > best {
			best = *wl.Weight
		}
	}
}

func TestSetLogger_LogSet_Invalid(t *testing.T) {
	ctx := context.Background()
	logger, store, bench, m := newTestLogger(t)

	for _, tc := range []struct {
		name  string
		input workouts.LogSetInput
	}{
		{"no exercise", workouts.LogSetInput{Weight: ptr(10.0)}},
		{"negative weight", workouts.LogSetInput{ExerciseID: bench.ID, Weight: ptr(-1.0)}},
		{"negative reps", workouts.LogSetInput{ExerciseID: bench.ID, Reps: ptr(-3)}},
		{"negative duration", workouts.LogSetInput{ExerciseID: bench.ID, DurationMins: ptr(-5.0)}},
		{"rpe too low", workouts.LogSetInput{ExerciseID: bench.ID, RPE: ptr(0.5)}},
		{"rpe too high", workouts.LogSetInput{ExerciseID: bench.ID, RPE: ptr(11.0)}},
		{"negative set number", workouts.LogSetInput{ExerciseID: bench.ID, SetNumber: -1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, err := logger.LogSet(ctx, tc.input)
			require.ErrorIs(t, err, workouts.ErrInvalidSet)
			assert.Nil(t, res.Log)
			assert.False(t, res.NewPR)
		})
	}

	logs, err := store.ListAllWithExercise(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Equal(t, 0.0, counterValue(t, m.CounterSetsLogFailed))
}

func TestSetLogger_LogSet_UnknownExercise(t *testing.T) {
	ctx := context.Background()
	logger, _, _, m := newTestLogger(t)

	res, err := logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: 999, Weight: ptr(100.0)})
	require.ErrorIs(t, err, exercises.ErrExerciseNotFound)
	assert.Nil(t, res.Log)
	assert.False(t, res.NewPR)
	assert.Equal(t, 1.0, counterValue(t, m.CounterSetsLogFailed))
}

func TestSetLogger_LogSet_DefaultsDateToClock(t *testing.T) {
	ctx := context.Background()
	logger, _, bench, _ := newTestLogger(t)
	now := time.Date(2026, 10, 17, 18, 30, 0, 0, time.UTC)
	logger.WithClock(func() time.Time { return now })

	res, err := logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: bench.ID, Weight: ptr(20.0)})
	require.NoError(t, err)
	assert.True(t, now.Equal(res.Log.Date))

	explicit := now.Add(-48 * time.Hour)
	res, err = logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: bench.ID, Weight: ptr(20.0), Date: &explicit})
	require.NoError(t, err)
	assert.True(t, explicit.Equal(res.Log.Date))
}

func TestSetLogger_LogSet_RoutineDefaults(t *testing.T) {
	ctx := context.Background()
	logger, store, bench, _ := newTestLogger(t)
	squat := store.AddExercise(exercises.Exercise{Name: "Squat", Category: exercises.CategoryLowerBody})

	store.AddRoutineExercise(exercises.RoutineExercise{
		ID:            11,
		RoutineID:     1,
		ExerciseID:    bench.ID,
		DefaultReps:   ptr(8),
		DefaultWeight: ptr(60.0),
		Notes:         ptr("pause at the bottom"),
	})

	res, err := logger.LogSet(ctx, workouts.LogSetInput{
		ExerciseID:        bench.ID,
		RoutineExerciseID: ptr(11),
		Reps:              ptr(6),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Log.Weight)
	assert.Equal(t, 60.0, *res.Log.Weight)
	assert.Equal(t, 6, *res.Log.Reps)
	assert.Equal(t, "pause at the bottom", *res.Log.Notes)
	assert.True(t, res.NewPR)

	_, err = logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: squat.ID, RoutineExerciseID: ptr(11)})
	assert.ErrorIs(t, err, workouts.ErrInvalidSet)

	_, err = logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: bench.ID, RoutineExerciseID: ptr(404)})
	assert.ErrorIs(t, err, exercises.ErrRoutineExerciseNotFound)
}

func TestSetLogger_LogSet_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	storeMock := NewMocklogStore(ctrl)
	invalidatorMock := NewMockstatsInvalidator(ctrl)
	m := metrics.NewTestManager()
	logger := workouts.NewSetLogger(storeMock, nil, invalidatorMock, m)

	storeMock.EXPECT().
		LogSet(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection reset"))
	invalidatorMock.EXPECT().Invalidate(gomock.Any()).Times(0)

	res, err := logger.LogSet(context.Background(), workouts.LogSetInput{ExerciseID: 1, Weight: ptr(100.0)})
	require.Error(t, err)
	assert.Nil(t, res.Log)
	assert.False(t, res.NewPR)
	assert.Equal(t, 1.0, counterValue(t, m.CounterSetsLogFailed))
	assert.Equal(t, 0.0, counterValue(t, m.CounterSetsLogged))
}

func TestSetLogger_InvalidatesStats(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := workouts.NewMemoryStore()
	bench := store.AddExercise(exercises.Exercise{Name: "Bench Press", Category: exercises.CategoryUpperBody})
	invalidatorMock := NewMockstatsInvalidator(ctrl)
	logger := workouts.NewSetLogger(store, store, invalidatorMock, metrics.NewTestManager())

	// log, correct, delete; an invalidation failure does not fail the write
	invalidatorMock.EXPECT().Invalidate(gomock.Any()).Return(nil).Times(2)
	invalidatorMock.EXPECT().Invalidate(gomock.Any()).Return(errors.New("redis down")).Times(1)

	res, err := logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: bench.ID, Weight: ptr(10.0)})
	require.NoError(t, err)
	_, err = logger.CorrectSet(ctx, res.Log.ID, workouts.SetPatch{Reps: ptr(3)})
	require.NoError(t, err)
	require.NoError(t, logger.DeleteSet(ctx, res.Log.ID))
}

func TestSetLogger_CorrectSet(t *testing.T) {
	ctx := context.Background()
	logger, store, bench, _ := newTestLogger(t)

	first, err := logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: bench.ID, Weight: ptr(100.0), Reps: ptr(3)})
	require.NoError(t, err)
	require.True(t, first.NewPR)

	// lowering the weight of the record set keeps both the flag and the watermark
	corrected, err := logger.CorrectSet(ctx, first.Log.ID, workouts.SetPatch{Weight: ptr(90.0), RPE: ptr(8.5)})
	require.NoError(t, err)
	assert.Equal(t, 90.0, *corrected.Weight)
	assert.Equal(t, 3, *corrected.Reps)
	assert.Equal(t, 8.5, *corrected.RPE)
	assert.True(t, corrected.IsPR)

	stored, err := store.Get(ctx, first.Log.ID)
	require.NoError(t, err)
	assert.Equal(t, 90.0, *stored.Weight)
	assert.True(t, stored.IsPR)

	e, err := store.GetExercise(ctx, bench.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, e.PersonalRecord)

	// raising a non-record set above the watermark does not make it a record
	second, err := logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: bench.ID, Weight: ptr(50.0)})
	require.NoError(t, err)
	corrected, err = logger.CorrectSet(ctx, second.Log.ID, workouts.SetPatch{Weight: ptr(150.0)})
	require.NoError(t, err)
	assert.False(t, corrected.IsPR)
	e, err = store.GetExercise(ctx, bench.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, e.PersonalRecord)

	_, err = logger.CorrectSet(ctx, first.Log.ID, workouts.SetPatch{RPE: ptr(12.0)})
	assert.ErrorIs(t, err, workouts.ErrInvalidSet)

	_, err = logger.CorrectSet(ctx, 404, workouts.SetPatch{Reps: ptr(1)})
	assert.ErrorIs(t, err, workouts.ErrWorkoutLogNotFound)
}

func TestSetLogger_CorrectSet_AboveWatermark(t *testing.T) {
	ctx := context.Background()
	logger, store, bench, m := newTestLogger(t)

	record, err := logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: bench.ID, Weight: ptr(100.0)})
	require.NoError(t, err)
	require.True(t, record.NewPR)

	// the record set is corrected upwards, the watermark is not
	corrected, err := logger.CorrectSet(ctx, record.Log.ID, workouts.SetPatch{Weight: ptr(120.0)})
	require.NoError(t, err)
	assert.Equal(t, 120.0, *corrected.Weight)
	assert.True(t, corrected.IsPR)

	e, err := store.GetExercise(ctx, bench.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, e.PersonalRecord)
	assert.Equal(t, 1.0, counterValue(t, m.CounterNewPRs))

	// so a later set between the old watermark and the corrected weight is still a PR
	next, err := logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: bench.ID, Weight: ptr(110.0)})
	require.NoError(t, err)
	assert.True(t, next.NewPR)
	e, err = store.GetExercise(ctx, bench.ID)
	require.NoError(t, err)
	assert.Equal(t, 110.0, e.PersonalRecord)

	stored, err := store.Get(ctx, record.Log.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPR)
}

func TestSetLogger_DeleteSet(t *testing.T) {
	ctx := context.Background()
	logger, store, bench, _ := newTestLogger(t)

	res, err := logger.LogSet(ctx, workouts.LogSetInput{ExerciseID: bench.ID, Weight: ptr(100.0)})
	require.NoError(t, err)

	require.NoError(t, logger.DeleteSet(ctx, res.Log.ID))
	_, err = store.Get(ctx, res.Log.ID)
	assert.ErrorIs(t, err, workouts.ErrWorkoutLogNotFound)

	// the watermark survives the deletion of the record set
	e, err := store.GetExercise(ctx, bench.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, e.PersonalRecord)

	assert.ErrorIs(t, logger.DeleteSet(ctx, res.Log.ID), workouts.ErrWorkoutLogNotFound)
}
