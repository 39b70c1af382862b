package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/2beens/fitlog/internal/fitness/exercises"
	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const maxPageSize = 500

type setsService interface {
	LogSet(ctx context.Context, input LogSetInput) (LogResult, error)
	CorrectSet(ctx context.Context, id int, patch SetPatch) (*WorkoutLog, error)
	DeleteSet(ctx context.Context, id int) error
}

type logsReader interface {
	Get(ctx context.Context, id int) (*WorkoutLog, error)
	List(ctx context.Context, params ListParams) ([]WorkoutLog, error)
}

type ListResponse struct {
	Logs []WorkoutLog `json:"logs"`
	Page int          `json:"page"`
	Size int          `json:"size"`
}

type Handler struct {
	sets    setsService
	reader  logsReader
	limiter func(http.Handler) http.Handler
}

func NewHandler(sets setsService, reader logsReader) *Handler {
	return &Handler{
		sets:   sets,
		reader: reader,
	}
}

// WithLogSetLimiter wraps the set logging route with the given middleware.
func (handler *Handler) WithLogSetLimiter(limiter func(http.Handler) http.Handler) *Handler {
	handler.limiter = limiter
	return handler
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	var logSet http.Handler = http.HandlerFunc(handler.HandleLogSet)
	if handler.limiter != nil {
		logSet = handler.limiter(logSet)
	}

	r.Handle("/fitness/sets", logSet).Methods("POST", "OPTIONS").Name("log-set")
	r.HandleFunc("/fitness/sets/list/page/{page}/size/{size}", handler.HandleList).Methods("GET", "OPTIONS").Name("list-sets")
	r.HandleFunc("/fitness/sets/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-set")
	r.HandleFunc("/fitness/sets/{id}", handler.HandleCorrect).Methods("PUT", "OPTIONS").Name("correct-set")
	r.HandleFunc("/fitness/sets/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-set")
}

func (handler *Handler) HandleLogSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.log")
	defer span.End()

	if r.Header.Get("Content-Type") != pkg.ContentType.JSON {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var input LogSetInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		log.Tracef("log set, unmarshal json params: %s", err)
		http.Error(w, "log set failed", http.StatusBadRequest)
		return
	}

	res, err := handler.sets.LogSet(ctx, input)
	if err != nil {
		writeSetError(w, "log set", err)
		return
	}

	pkg.WriteJSON(w, res, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.get")
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	wl, err := handler.reader.Get(ctx, id)
	if err != nil {
		writeSetError(w, "get set", err)
		return
	}

	pkg.WriteJSON(w, wl, http.StatusOK)
}

func (handler *Handler) HandleCorrect(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.correct")
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	if r.Header.Get("Content-Type") != pkg.ContentType.JSON {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var patch SetPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		log.Tracef("correct set, unmarshal json params: %s", err)
		http.Error(w, "correct set failed", http.StatusBadRequest)
		return
	}

	corrected, err := handler.sets.CorrectSet(ctx, id, patch)
	if err != nil {
		writeSetError(w, "correct set", err)
		return
	}

	pkg.WriteJSON(w, corrected, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.delete")
	defer span.End()

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	if err := handler.sets.DeleteSet(ctx, id); err != nil {
		writeSetError(w, "delete set", err)
		return
	}

	pkg.WriteJSONResponseOK(w, strconv.Itoa(id))
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.list")
	defer span.End()

	vars := mux.Vars(r)
	page, err := strconv.Atoi(vars["page"])
	if err != nil || page < 1 {
		http.Error(w, "error, invalid page", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(vars["size"])
	if err != nil || size < 1 || size > maxPageSize {
		http.Error(w, "error, invalid size", http.StatusBadRequest)
		return
	}
	if page > math.MaxInt/size {
		http.Error(w, "error, page out of range", http.StatusBadRequest)
		return
	}

	params := ListParams{
		Limit:  size,
		Offset: (page - 1) * size,
	}
	if exerciseIDStr := r.URL.Query().Get("exercise_id"); exerciseIDStr != "" {
		params.ExerciseID, err = strconv.Atoi(exerciseIDStr)
		if err != nil {
			http.Error(w, "error, exercise id NaN", http.StatusBadRequest)
			return
		}
	}

	logs, err := handler.reader.List(ctx, params)
	if errors.Is(err, ErrInvalidListParams) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Errorf("list sets error: %s", err)
		http.Error(w, "failed to get sets", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, ListResponse{
		Logs: logs,
		Page: page,
		Size: size,
	}, http.StatusOK)
}

func writeSetError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidSet):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrWorkoutLogNotFound):
		http.Error(w, "set not found", http.StatusNotFound)
	case errors.Is(err, exercises.ErrExerciseNotFound):
		http.Error(w, "exercise not found", http.StatusNotFound)
	case errors.Is(err, exercises.ErrRoutineExerciseNotFound):
		http.Error(w, "routine exercise not found", http.StatusNotFound)
	default:
		log.Errorf("%s: %s", op, err)
		http.Error(w, "error, failed to "+op, http.StatusInternalServerError)
	}
}
