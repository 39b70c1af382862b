package workouts_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/fitlog/internal/fitness/exercises"
	"github.com/2beens/fitlog/internal/fitness/workouts"
	"github.com/2beens/fitlog/internal/telemetry/metrics"
)

type handlerTestEnv struct {
	router *mux.Router
	store  *workouts.MemoryStore
	bench  exercises.Exercise
}

func newHandlerTestEnv() handlerTestEnv {
	store := workouts.NewMemoryStore()
	bench := store.AddExercise(exercises.Exercise{Name: "Bench Press", Category: exercises.CategoryUpperBody})
	logger := workouts.NewSetLogger(store, store, nil, metrics.NewTestManager())

	r := mux.NewRouter()
	workouts.NewHandler(logger, store).SetupRoutes(r)

	return handlerTestEnv{
		router: r,
		store:  store,
		bench:  bench,
	}
}

func (env handlerTestEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_HandleLogSet(t *testing.T) {
	env := newHandlerTestEnv()

	rec := env.do(t, "POST", "/fitness/sets", fmt.Sprintf(`{"exerciseId":%d,"weight":80,"reps":5,"rpe":8}`, env.bench.ID))
	require.Equal(t, http.StatusCreated, rec.Code)

	var res workouts.LogResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotNil(t, res.Log)
	assert.True(t, res.NewPR)
	assert.Equal(t, 80.0, *res.Log.Weight)
	assert.Equal(t, 1, res.Log.SetNumber)

	rec = env.do(t, "POST", "/fitness/sets", fmt.Sprintf(`{"exerciseId":%d,"weight":70,"setNumber":2}`, env.bench.ID))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.NewPR)
}

func TestHandler_HandleLogSet_Errors(t *testing.T) {
	env := newHandlerTestEnv()

	rec := env.do(t, "POST", "/fitness/sets", fmt.Sprintf(`{"exerciseId":%d,"rpe":15}`, env.bench.ID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "POST", "/fitness/sets", `{"exerciseId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "POST", "/fitness/sets", `{"exerciseId":404,"weight":10}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req, err := http.NewRequest("POST", "/fitness/sets", bytes.NewReader([]byte(`{"exerciseId":1}`)))
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GetCorrectDelete(t *testing.T) {
	ctx := context.Background()
	env := newHandlerTestEnv()
	stored, err := env.store.LogSet(ctx, workouts.WorkoutLog{
		ExerciseID: env.bench.ID,
		Date:       time.Now(),
		Weight:     ptr(60.0),
		SetNumber:  1,
	})
	require.NoError(t, err)
	path := fmt.Sprintf("/fitness/sets/%d", stored.ID)

	rec := env.do(t, "GET", path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var wl workouts.WorkoutLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wl))
	assert.Equal(t, stored.ID, wl.ID)
	assert.True(t, wl.IsPR)

	rec = env.do(t, "PUT", path, `{"reps":12,"notes":"felt easy"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wl))
	assert.Equal(t, 12, *wl.Reps)
	assert.Equal(t, "felt easy", *wl.Notes)
	assert.Equal(t, 60.0, *wl.Weight)
	assert.True(t, wl.IsPR)

	rec = env.do(t, "PUT", path, `{"weight":-5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "DELETE", path, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, "DELETE", path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, "PUT", path, `{"reps":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, "GET", "/fitness/sets/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_HandleList(t *testing.T) {
	ctx := context.Background()
	env := newHandlerTestEnv()
	squat := env.store.AddExercise(exercises.Exercise{Name: "Squat", Category: exercises.CategoryLowerBody})

	base := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		exerciseID := env.bench.ID
		if i%2 == 1 {
			exerciseID = squat.ID
		}
		_, err := env.store.LogSet(ctx, workouts.WorkoutLog{
			ExerciseID: exerciseID,
			Date:       base.AddDate(0, 0, i),
			Weight:     ptr(float64(50 + i)),
			SetNumber:  1,
		})
		require.NoError(t, err)
	}

	rec := env.do(t, "GET", "/fitness/sets/list/page/1/size/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp workouts.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Logs, 2)
	assert.True(t, base.AddDate(0, 0, 4).Equal(resp.Logs[0].Date))
	assert.True(t, base.AddDate(0, 0, 3).Equal(resp.Logs[1].Date))

	rec = env.do(t, "GET", "/fitness/sets/list/page/3/size/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Logs, 1)
	assert.Equal(t, 3, resp.Page)

	rec = env.do(t, "GET", fmt.Sprintf("/fitness/sets/list/page/1/size/10?exercise_id=%d", squat.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Logs, 2)
	for _, wl := range resp.Logs {
		assert.Equal(t, squat.ID, wl.ExerciseID)
	}

	rec = env.do(t, "GET", "/fitness/sets/list/page/0/size/10", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, "GET", "/fitness/sets/list/page/1/size/1000", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_HandleList_PageOverflow(t *testing.T) {
	env := newHandlerTestEnv()
	_, err := env.store.LogSet(context.Background(), workouts.WorkoutLog{
		ExerciseID: env.bench.ID,
		Date:       time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC),
		SetNumber:  1,
	})
	require.NoError(t, err)

	// (page-1)*size would wrap to a negative offset
	rec := env.do(t, "GET", "/fitness/sets/list/page/4611686018427387905/size/3", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "GET", "/fitness/sets/list/page/99999999999999999999/size/3", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// far past the end but representable is just an empty page
	rec = env.do(t, "GET", "/fitness/sets/list/page/1000000/size/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp workouts.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Logs)
}

func TestMemoryStore_List_InvalidParams(t *testing.T) {
	store := workouts.NewMemoryStore()

	_, err := store.List(context.Background(), workouts.ListParams{Limit: 3, Offset: -3})
	require.ErrorIs(t, err, workouts.ErrInvalidListParams)

	_, err = store.List(context.Background(), workouts.ListParams{Limit: -1})
	require.ErrorIs(t, err, workouts.ErrInvalidListParams)
}
