package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/2beens/fitlog/internal/fitness/exercises"
	"github.com/2beens/fitlog/internal/fitness/workouts"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	dateLayout      = "2006-01-02"
	defaultSetsList = 20
	maxSetsList     = 200
)

// Handler turns MCP tool calls into service calls and formats the results.
type Handler struct {
	service contextService
}

func NewHandler(service contextService) *Handler {
	return &Handler{
		service: service,
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding response: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}
}

// GetFitlogContextTool returns the handler for get_fitlog_context.
func (h *Handler) GetFitlogContextTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		text, err := h.service.GetSchema(ctx)
		if err != nil {
			return errorResult("Error fetching schema: " + err.Error()), nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	}
}

// GetFitnessStatsTool returns the handler for get_fitness_stats.
func (h *Handler) GetFitnessStatsTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		s, err := h.service.GetStats(ctx)
		if err != nil {
			return errorResult("Error computing stats: " + err.Error()), nil, nil
		}
		return jsonResult(s), nil, nil
	}
}

// LogSetInput is the input of log_set.
type LogSetInput struct {
	ExerciseID        int      `json:"exercise_id" jsonschema:"Exercise id (see list_exercises)"`
	RoutineExerciseID *int     `json:"routine_exercise_id,omitempty" jsonschema:"Routine exercise whose defaults fill the missing fields"`
	Date              string   `json:"date,omitempty" jsonschema:"Day of the set (YYYY-MM-DD), defaults to today"`
	Weight            *float64 `json:"weight,omitempty" jsonschema:"Weight lifted"`
	Reps              *int     `json:"reps,omitempty" jsonschema:"Repetitions"`
	RPE               *float64 `json:"rpe,omitempty" jsonschema:"Rate of perceived exertion, 1 to 10"`
	DurationMins      *float64 `json:"duration_mins,omitempty" jsonschema:"Duration in minutes"`
	Notes             *string  `json:"notes,omitempty" jsonschema:"Free text notes"`
	SetNumber         int      `json:"set_number,omitempty" jsonschema:"Set number within the session, defaults to 1"`
}

// LogSetTool returns the handler for log_set.
func (h *Handler) LogSetTool() func(context.Context, *mcp.CallToolRequest, LogSetInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in LogSetInput) (*mcp.CallToolResult, any, error) {
		input := workouts.LogSetInput{
			ExerciseID:        in.ExerciseID,
			RoutineExerciseID: in.RoutineExerciseID,
			Weight:            in.Weight,
			Reps:              in.Reps,
			RPE:               in.RPE,
			DurationMins:      in.DurationMins,
			Notes:             in.Notes,
			SetNumber:         in.SetNumber,
		}
		if in.Date != "" {
			date, err := time.ParseInLocation(dateLayout, in.Date, h.service.Location())
			if err != nil {
				return errorResult("Invalid date: use YYYY-MM-DD"), nil, nil
			}
			input.Date = &date
		}

		res, err := h.service.LogSet(ctx, input)
		switch {
		case err == nil:
			return jsonResult(res), nil, nil
		case errors.Is(err, workouts.ErrInvalidSet):
			return errorResult("Invalid set: " + err.Error()), nil, nil
		case errors.Is(err, exercises.ErrExerciseNotFound), errors.Is(err, exercises.ErrRoutineExerciseNotFound):
			return errorResult("Not found: " + err.Error()), nil, nil
		default:
			return errorResult("Error logging set: " + err.Error()), nil, nil
		}
	}
}

// ListExercisesInput is the input of list_exercises.
type ListExercisesInput struct {
	Category string `json:"category,omitempty" jsonschema:"Filter by category: UpperBody, LowerBody, Cardio, Functional"`
}

// ListExercisesTool returns the handler for list_exercises.
func (h *Handler) ListExercisesTool() func(context.Context, *mcp.CallToolRequest, ListExercisesInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in ListExercisesInput) (*mcp.CallToolResult, any, error) {
		var category exercises.Category
		if in.Category != "" {
			category = exercises.ParseCategory(in.Category)
			if !category.IsValid() {
				return errorResult("Invalid category: " + in.Category), nil, nil
			}
		}

		list, err := h.service.ListExercises(ctx, category)
		if err != nil {
			return errorResult("Error listing exercises: " + err.Error()), nil, nil
		}
		return jsonResult(list), nil, nil
	}
}

// ListSetsInput is the input of list_sets.
type ListSetsInput struct {
	ExerciseID int `json:"exercise_id,omitempty" jsonschema:"Only sets of this exercise"`
	Limit      int `json:"limit,omitempty" jsonschema:"Max number of sets, newest first (default 20, max 200)"`
}

// ListSetsTool returns the handler for list_sets.
func (h *Handler) ListSetsTool() func(context.Context, *mcp.CallToolRequest, ListSetsInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in ListSetsInput) (*mcp.CallToolResult, any, error) {
		limit := in.Limit
		if limit <= 0 {
			limit = defaultSetsList
		}
		if limit > maxSetsList {
			limit = maxSetsList
		}

		logs, err := h.service.ListSets(ctx, workouts.ListParams{
			ExerciseID: in.ExerciseID,
			Limit:      limit,
		})
		if err != nil {
			return errorResult("Error listing sets: " + err.Error()), nil, nil
		}
		return jsonResult(logs), nil, nil
	}
}
