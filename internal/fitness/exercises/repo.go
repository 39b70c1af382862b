package exercises

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrExerciseNotFound        = errors.New("exercise not found")
	ErrRoutineExerciseNotFound = errors.New("routine exercise not found")
	ErrExerciseExists          = errors.New("exercise already exists")
)

type ListParams struct {
	// Category filters by category, empty means all.
	Category Category
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, exercise Exercise) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if exercise.CreatedAt.IsZero() {
		exercise.CreatedAt = time.Now()
	}

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO exercise (name, category, personal_record, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id;`,
		exercise.Name, exercise.Category.String(), exercise.PersonalRecord, exercise.CreatedAt,
	).Scan(&exercise.ID)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrExerciseExists
		}
		return nil, fmt.Errorf("insert exercise: %w", err)
	}

	span.SetAttributes(attribute.Int("exercise.id", exercise.ID))
	return &exercise, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, category, personal_record, created_at FROM exercise WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exercises, err := rows2exercises(rows)
	if err != nil {
		return nil, err
	}
	if len(exercises) != 1 {
		return nil, ErrExerciseNotFound
	}

	return &exercises[0], nil
}

func (r *Repo) List(ctx context.Context, params ListParams) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("category", params.Category.String()))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, name, category, personal_record, created_at
			FROM exercise
			WHERE ($1::text = '' OR category = $1)
			ORDER BY name;`,
		params.Category.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	exercises, err := rows2exercises(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2exercises: %w", err)
	}
	return exercises, nil
}

func (r *Repo) GetRoutineExercise(ctx context.Context, id int) (_ *RoutineExercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.get-routine-exercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	re := &RoutineExercise{}
	err = r.db.QueryRow(
		ctx,
		`
			SELECT
				id, routine_id, exercise_id, default_sets, default_reps,
				default_weight, default_duration_mins, notes, sort_order
			FROM routine_exercise
			WHERE id = $1;`,
		id,
	).Scan(
		&re.ID, &re.RoutineID, &re.ExerciseID, &re.DefaultSets, &re.DefaultReps,
		&re.DefaultWeight, &re.DefaultDurationMins, &re.Notes, &re.SortOrder,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoutineExerciseNotFound
	}
	if err != nil {
		return nil, err
	}

	return re, nil
}

func rows2exercises(rows pgx.Rows) ([]Exercise, error) {
	exercises := make([]Exercise, 0)
	for rows.Next() {
		var e Exercise
		var category string
		if err := rows.Scan(&e.ID, &e.Name, &category, &e.PersonalRecord, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Category = ParseCategory(category)
		exercises = append(exercises, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return exercises, nil
}
