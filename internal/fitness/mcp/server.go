package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds the fitlog MCP server. It is mounted at /mcp by the main
// backend and served over stdio by cmd/fitness_mcp.
func NewServer(deps Deps) *mcp.Server {
	h := NewHandler(NewContextService(deps))
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "fitlog",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_fitlog_context",
		Description: "Returns the DB schema of the workout tables (exercise, routine_exercise, workout_log): columns, types, nullable, default.",
	}, h.GetFitlogContextTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_fitness_stats",
		Description: "Returns the fitness report for today: weekly frequency, recent PRs, total workouts, current streak, weekly avg RPE, training split, 12 week trend and 90 day consistency heatmap.",
	}, h.GetFitnessStatsTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "log_set",
		Description: "Logs one set of an exercise. Returns the stored set and whether it is a new personal record (heaviest weight so far for the exercise).",
	}, h.LogSetTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_exercises",
		Description: "Returns the exercise catalogue (id, name, category, personal record). Optional filter: category.",
	}, h.ListExercisesTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_sets",
		Description: "Returns recently logged sets, newest first. Optional filters: exercise_id, limit.",
	}, h.ListSetsTool())

	return s
}
