package workouts

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/fitlog/internal/fitness/exercises"
	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

type ListParams struct {
	// ExerciseID filters by exercise, 0 means all.
	ExerciseID int
	Limit      int
	Offset     int
}

func (p ListParams) validate() error {
	if p.Limit < 0 || p.Offset < 0 {
		return fmt.Errorf("%w: limit %d, offset %d", ErrInvalidListParams, p.Limit, p.Offset)
	}
	return nil
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// LogSet stores a new set and updates the exercise personal record in one transaction.
// The IsPR flag of the given log is ignored and decided here.
func (r *Repo) LogSet(ctx context.Context, wl WorkoutLog) (_ *WorkoutLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.log-set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("exercise.id", wl.ExerciseID))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("log set: rollback: %s", rbErr)
		}
	}()

	currentPR, err := lockPersonalRecord(ctx, tx, wl.ExerciseID)
	if err != nil {
		return nil, err
	}

	wl.IsPR = IsNewPR(wl.Weight, currentPR)
	err = tx.QueryRow(
		ctx,
		`INSERT INTO workout_log (exercise_id, date, weight, reps, rpe, duration_mins, notes, set_number, is_pr)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id;`,
		wl.ExerciseID, wl.Date, wl.Weight, wl.Reps, wl.RPE, wl.DurationMins, wl.Notes, wl.SetNumber, wl.IsPR,
	).Scan(&wl.ID)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return nil, fmt.Errorf("%w: %d", exercises.ErrExerciseNotFound, wl.ExerciseID)
		}
		return nil, fmt.Errorf("insert workout log: %w", err)
	}

	if wl.IsPR {
		if err = raisePersonalRecord(ctx, tx, wl.ExerciseID, *wl.Weight); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	span.SetAttributes(attribute.Int("log.id", wl.ID), attribute.Bool("log.is_pr", wl.IsPR))
	return &wl, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *WorkoutLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, exercise_id, date, weight, reps, rpe, duration_mins, notes, set_number, is_pr
			FROM workout_log
			WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs, err := rows2logs(rows)
	if err != nil {
		return nil, err
	}
	if len(logs) != 1 {
		return nil, ErrWorkoutLogNotFound
	}

	return &logs[0], nil
}

// Update stores a corrected set. The PR flag and the exercise watermark are not touched.
func (r *Repo) Update(ctx context.Context, wl WorkoutLog) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", wl.ID))

	tag, err := r.db.Exec(
		ctx,
		`
			UPDATE workout_log
			SET date = $2, weight = $3, reps = $4, rpe = $5, duration_mins = $6, notes = $7, set_number = $8
			WHERE id = $1;`,
		wl.ID, wl.Date, wl.Weight, wl.Reps, wl.RPE, wl.DurationMins, wl.Notes, wl.SetNumber,
	)
	if err != nil {
		return fmt.Errorf("update workout log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutLogNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM workout_log WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutLogNotFound
	}

	return nil
}

// List returns one page of logs, newest first.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []WorkoutLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("exercise.id", params.ExerciseID),
		attribute.Int("limit", params.Limit),
		attribute.Int("offset", params.Offset),
	)
	if err := params.validate(); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, exercise_id, date, weight, reps, rpe, duration_mins, notes, set_number, is_pr
			FROM workout_log
			WHERE ($1::int = 0 OR exercise_id = $1)
			ORDER BY date DESC, id DESC
			LIMIT $2 OFFSET $3;`,
		params.ExerciseID, params.Limit, params.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	logs, err := rows2logs(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2logs: %w", err)
	}
	return logs, nil
}

// ListAllWithExercise returns the full history joined with exercises, newest first.
func (r *Repo) ListAllWithExercise(ctx context.Context) (_ []LogEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list-all-with-exercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				w.id, w.exercise_id, w.date, w.weight, w.reps, w.rpe, w.duration_mins,
				w.notes, w.set_number, w.is_pr, e.name, e.category
			FROM workout_log w
			JOIN exercise e ON e.id = w.exercise_id
			ORDER BY w.date DESC, w.id DESC;`,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	entries := make([]LogEntry, 0)
	for rows.Next() {
		var e LogEntry
		var category string
		if err := rows.Scan(
			&e.ID, &e.ExerciseID, &e.Date, &e.Weight, &e.Reps, &e.RPE, &e.DurationMins,
			&e.Notes, &e.SetNumber, &e.IsPR, &e.Exercise.Name, &category,
		); err != nil {
			return nil, err
		}
		e.Exercise.Category = exercises.ParseCategory(category)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(entries)))
	return entries, nil
}

func rows2logs(rows pgx.Rows) ([]WorkoutLog, error) {
	logs := make([]WorkoutLog, 0)
	for rows.Next() {
		var wl WorkoutLog
		if err := rows.Scan(
			&wl.ID, &wl.ExerciseID, &wl.Date, &wl.Weight, &wl.Reps, &wl.RPE,
			&wl.DurationMins, &wl.Notes, &wl.SetNumber, &wl.IsPR,
		); err != nil {
			return nil, err
		}
		logs = append(logs, wl)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return logs, nil
}
