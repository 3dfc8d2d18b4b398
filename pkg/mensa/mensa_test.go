package mensa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

func TestClientDecodesMeals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/canteens/24/days/2026-10-16/meals", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 1, "name": "Linseneintopf", "category": "Eintopf", "prices": {"students": 2.1, "others": null}, "notes": ["vegan"]}
		]`))
	}))
	defer srv.Close()

	meals, err := NewClient(srv.URL).Meals(context.Background(), 24, day)
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.Equal(t, "Linseneintopf", meals[0].Name)

	price, ok := meals[0].StudentPrice()
	require.True(t, ok)
	assert.InDelta(t, 2.1, price, 0.001)
	assert.Nil(t, meals[0].Prices["others"])
}

func TestClientMapsNotFoundToNoPlan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Meals(context.Background(), 24, day)
	assert.ErrorIs(t, err, ErrNoPlan)
}

type countingSource struct {
	calls atomic.Int32
	meals []Meal
	err   error
}

func (s *countingSource) Meals(ctx context.Context, canteenID int, day time.Time) ([]Meal, error) {
	s.calls.Add(1)
	return s.meals, s.err
}

func TestPlanCacheHonoursTTL(t *testing.T) {
	src := &countingSource{meals: []Meal{{Name: "Pasta"}}}
	cache := NewPlanCache(src, time.Minute)
	now := time.Date(2026, 10, 16, 11, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	for range 3 {
		meals, err := cache.Meals(context.Background(), 1, day)
		require.NoError(t, err)
		assert.Equal(t, "Pasta", meals[0].Name)
	}
	assert.EqualValues(t, 1, src.calls.Load())

	now = now.Add(2 * time.Minute)
	_, err := cache.Meals(context.Background(), 1, day)
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestPlanCacheRemembersClosedDays(t *testing.T) {
	src := &countingSource{err: ErrNoPlan}
	cache := NewPlanCache(src, time.Hour)

	_, err := cache.Meals(context.Background(), 1, day)
	assert.ErrorIs(t, err, ErrNoPlan)
	_, err = cache.Meals(context.Background(), 1, day)
	assert.ErrorIs(t, err, ErrNoPlan)
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestPrimeFetchesEveryPair(t *testing.T) {
	src := &countingSource{err: ErrNoPlan}
	cache := NewPlanCache(src, time.Hour)

	days := []time.Time{day, day.AddDate(0, 0, 1)}
	require.NoError(t, cache.Prime(context.Background(), []int{1, 2, 3}, days))
	assert.EqualValues(t, 6, src.calls.Load())
}

func TestPrimeReportsRealFailures(t *testing.T) {
	src := &countingSource{err: assert.AnError}
	cache := NewPlanCache(src, time.Hour)

	err := cache.Prime(context.Background(), []int{1}, []time.Time{day})
	assert.ErrorIs(t, err, assert.AnError)
}
