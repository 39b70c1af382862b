package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2beens/fitlog/internal/fitness/exercises"
	"github.com/2beens/fitlog/internal/fitness/stats"
	"github.com/2beens/fitlog/internal/fitness/workouts"
)

// ErrNoSchema is returned when the server runs without a database.
var ErrNoSchema = errors.New("schema not available")

type statsProvider interface {
	GetFitnessStats(ctx context.Context, now time.Time) (*stats.FitnessStats, error)
}

type setLogger interface {
	LogSet(ctx context.Context, input workouts.LogSetInput) (workouts.LogResult, error)
}

type exercisesLister interface {
	List(ctx context.Context, params exercises.ListParams) ([]exercises.Exercise, error)
}

type logsLister interface {
	List(ctx context.Context, params workouts.ListParams) ([]workouts.WorkoutLog, error)
}

// contextService is what the tool handlers need; split out for tests.
type contextService interface {
	GetSchema(ctx context.Context) (string, error)
	GetStats(ctx context.Context) (*stats.FitnessStats, error)
	LogSet(ctx context.Context, input workouts.LogSetInput) (workouts.LogResult, error)
	ListExercises(ctx context.Context, category exercises.Category) ([]exercises.Exercise, error)
	ListSets(ctx context.Context, params workouts.ListParams) ([]workouts.WorkoutLog, error)
	Location() *time.Location
}

// Deps holds everything the MCP tools run on. Schema may be nil.
type Deps struct {
	Schema    SchemaRepo
	Stats     statsProvider
	Sets      setLogger
	Exercises exercisesLister
	Logs      logsLister
	Location  *time.Location
}

type ContextService struct {
	deps Deps
	now  func() time.Time
}

func NewContextService(deps Deps) *ContextService {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &ContextService{
		deps: deps,
		now:  time.Now,
	}
}

func (s *ContextService) Location() *time.Location {
	return s.deps.Location
}

// GetSchema returns a markdown description of the fitlog tables.
func (s *ContextService) GetSchema(ctx context.Context) (string, error) {
	if s.deps.Schema == nil {
		return "", ErrNoSchema
	}
	cols, err := s.deps.Schema.GetFitlogColumns(ctx)
	if err != nil {
		return "", err
	}
	return formatSchema(cols), nil
}

func (s *ContextService) GetStats(ctx context.Context) (*stats.FitnessStats, error) {
	return s.deps.Stats.GetFitnessStats(ctx, s.now())
}

func (s *ContextService) LogSet(ctx context.Context, input workouts.LogSetInput) (workouts.LogResult, error) {
	return s.deps.Sets.LogSet(ctx, input)
}

func (s *ContextService) ListExercises(ctx context.Context, category exercises.Category) ([]exercises.Exercise, error) {
	return s.deps.Exercises.List(ctx, exercises.ListParams{Category: category})
}

func (s *ContextService) ListSets(ctx context.Context, params workouts.ListParams) ([]workouts.WorkoutLog, error) {
	return s.deps.Logs.List(ctx, params)
}

func formatSchema(cols []SchemaColumn) string {
	if len(cols) == 0 {
		return "# Fitlog DB Schema\n\nNo fitlog tables found in the database.\n"
	}

	var b strings.Builder
	b.WriteString("# Fitlog DB Schema\n")
	currentTable := ""
	for _, c := range cols {
		if c.TableName != currentTable {
			currentTable = c.TableName
			b.WriteString("\n## ")
			b.WriteString(currentTable)
			b.WriteString("\n\n| Column | Type | Nullable | Default |\n|--------|------|----------|---------|\n")
		}
		def := "-"
		if c.ColumnDef != nil && *c.ColumnDef != "" {
			def = *c.ColumnDef
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", c.ColumnName, c.DataType, c.IsNullable, def))
	}

	return b.String()
}
