// Package mensa fetches canteen meal plans from an OpenMensa compatible API.
package mensa

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const dayLayout = "2006-01-02"

// Meal is one dish on a day's plan.
type Meal struct {
	ID       int64               `json:"id"`
	Name     string              `json:"name"`
	Category string              `json:"category"`
	Prices   map[string]*float64 `json:"prices"`
	Notes    []string            `json:"notes"`
}

// StudentPrice returns the student price if the canteen lists one.
func (m Meal) StudentPrice() (float64, bool) {
	p, ok := m.Prices["students"]
	if !ok || p == nil {
		return 0, false
	}
	return *p, true
}

type Error string

func (e Error) Error() string { return string(e) }

// ErrNoPlan means the canteen publishes nothing for that day (closed,
// weekend, not yet announced).
const ErrNoPlan Error = "no meal plan for that day"

// Source provides meal plans.
type Source interface {
	Meals(ctx context.Context, canteenID int, day time.Time) ([]Meal, error)
}

// Client talks to the OpenMensa v2 API.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "picotune")
	return &Client{http: c}
}

// Meals returns the plan of one canteen for one day.
func (c *Client) Meals(ctx context.Context, canteenID int, day time.Time) ([]Meal, error) {
	var meals []Meal
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"canteen": strconv.Itoa(canteenID),
			"day":     day.Format(dayLayout),
		}).
		SetResult(&meals).
		Get("/canteens/{canteen}/days/{day}/meals")
	if err != nil {
		return nil, fmt.Errorf("fetch meals for canteen %d: %w", canteenID, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, ErrNoPlan
	case resp.IsError():
		return nil, fmt.Errorf("fetch meals for canteen %d: unexpected status %s", canteenID, resp.Status())
	}
	if len(meals) == 0 {
		return nil, ErrNoPlan
	}
	return meals, nil
}

var _ Source = (*Client)(nil)
