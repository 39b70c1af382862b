package workouts

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/fitlog/internal/fitness/exercises"
	"github.com/2beens/fitlog/internal/telemetry/metrics"
	"github.com/2beens/fitlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=logger_mocks_test.go -package=workouts_test

type logStore interface {
	LogSet(ctx context.Context, wl WorkoutLog) (*WorkoutLog, error)
	Get(ctx context.Context, id int) (*WorkoutLog, error)
	Update(ctx context.Context, wl WorkoutLog) error
	Delete(ctx context.Context, id int) error
}

type routineExercisesRepo interface {
	GetRoutineExercise(ctx context.Context, id int) (*exercises.RoutineExercise, error)
}

// statsInvalidator drops derived stats after the log history changed.
type statsInvalidator interface {
	Invalidate(ctx context.Context) error
}

// SetLogger records sets and corrections of already logged sets.
type SetLogger struct {
	store       logStore
	routines    routineExercisesRepo
	invalidator statsInvalidator
	metrics     *metrics.Manager
	now         func() time.Time
}

// NewSetLogger creates a SetLogger. routines and invalidator may be nil.
func NewSetLogger(
	store logStore,
	routines routineExercisesRepo,
	invalidator statsInvalidator,
	metricsManager *metrics.Manager,
) *SetLogger {
	return &SetLogger{
		store:       store,
		routines:    routines,
		invalidator: invalidator,
		metrics:     metricsManager,
		now:         time.Now,
	}
}

// WithClock replaces the clock used for sets logged without a date.
func (l *SetLogger) WithClock(now func() time.Time) *SetLogger {
	l.now = now
	return l
}

// LogSet validates and stores one set, reporting whether it set a new personal record.
// On failure nothing is stored and the result is empty.
func (l *SetLogger) LogSet(ctx context.Context, input LogSetInput) (_ LogResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "setlogger.log-set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("exercise.id", input.ExerciseID))

	if input.ExerciseID <= 0 {
		return LogResult{}, fmt.Errorf("%w: exercise id must be positive", ErrInvalidSet)
	}

	if input.RoutineExerciseID != nil {
		if input, err = l.applyRoutineDefaults(ctx, input); err != nil {
			return LogResult{}, err
		}
	}

	wl := WorkoutLog{
		ExerciseID:   input.ExerciseID,
		Weight:       input.Weight,
		Reps:         input.Reps,
		RPE:          input.RPE,
		DurationMins: input.DurationMins,
		Notes:        input.Notes,
		SetNumber:    input.SetNumber,
	}
	if input.Date != nil {
		wl.Date = *input.Date
	} else {
		wl.Date = l.now()
	}
	if wl.SetNumber == 0 {
		wl.SetNumber = 1
	}

	if err = wl.validate(); err != nil {
		return LogResult{}, err
	}

	stored, err := l.store.LogSet(ctx, wl)
	if err != nil {
		l.metrics.CounterSetsLogFailed.Inc()
		return LogResult{}, fmt.Errorf("log set: %w", err)
	}

	l.metrics.CounterSetsLogged.Inc()
	if stored.IsPR {
		l.metrics.CounterNewPRs.Inc()
		log.Debugf("new personal record for exercise %d: %.2f", stored.ExerciseID, *stored.Weight)
	}
	l.invalidate(ctx)

	return LogResult{
		Log:   stored,
		NewPR: stored.IsPR,
	}, nil
}

// CorrectSet applies a user correction to a logged set.
// The PR flag and the exercise personal record are left as they are.
func (l *SetLogger) CorrectSet(ctx context.Context, id int, patch SetPatch) (_ *WorkoutLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "setlogger.correct-set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	stored, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	corrected := patch.apply(*stored)
	if err = corrected.validate(); err != nil {
		return nil, err
	}

	if err = l.store.Update(ctx, corrected); err != nil {
		return nil, fmt.Errorf("update set %d: %w", id, err)
	}
	l.invalidate(ctx)

	return &corrected, nil
}

func (l *SetLogger) DeleteSet(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "setlogger.delete-set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	if err = l.store.Delete(ctx, id); err != nil {
		return err
	}
	l.invalidate(ctx)

	return nil
}

func (l *SetLogger) applyRoutineDefaults(ctx context.Context, input LogSetInput) (LogSetInput, error) {
	if l.routines == nil {
		return input, fmt.Errorf("%w: routine exercises not available", ErrInvalidSet)
	}

	re, err := l.routines.GetRoutineExercise(ctx, *input.RoutineExerciseID)
	if err != nil {
		return input, fmt.Errorf("get routine exercise %d: %w", *input.RoutineExerciseID, err)
	}
	if re.ExerciseID != input.ExerciseID {
		return input, fmt.Errorf(
			"%w: routine exercise %d does not belong to exercise %d",
			ErrInvalidSet, re.ID, input.ExerciseID,
		)
	}

	if input.Weight == nil {
		input.Weight = re.DefaultWeight
	}
	if input.Reps == nil {
		input.Reps = re.DefaultReps
	}
	if input.DurationMins == nil {
		input.DurationMins = re.DefaultDurationMins
	}
	if input.Notes == nil {
		input.Notes = re.Notes
	}

	return input, nil
}

func (l *SetLogger) invalidate(ctx context.Context) {
	if l.invalidator == nil {
		return
	}
	if err := l.invalidator.Invalidate(ctx); err != nil {
		log.Warnf("invalidate fitness stats: %s", err)
	}
}
