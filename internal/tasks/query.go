package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/repositories"
	"github.com/desertthunder/todox/internal/shared"
)

// DefaultPerPage is used when a [Query] does not set PerPage.
const DefaultPerPage = 10

// Query selects a page of cached todos.
//
// Since and Until are calendar days compared against the creation time; both are inclusive.
type Query struct {
	Since   time.Time
	Until   time.Time
	Page    int
	PerPage int
}

// Page is one page of a listing.
type Page struct {
	Items      []models.Todo
	Page       int
	PerPage    int
	Total      int
	TotalPages int
	Swapped    bool // Since and Until were given in reverse order
}

// Normalize applies defaults and checks the date range against now.
//
// Dates in the future are rejected. A range given in reverse order is swapped.
func (q Query) Normalize(now time.Time) (Query, bool, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = DefaultPerPage
	}

	today := startOfDay(now)
	if !q.Since.IsZero() && startOfDay(q.Since).After(today) {
		return q, false, fmt.Errorf("%w: start date cannot be in the future", shared.ErrInvalidFlag)
	}
	if !q.Until.IsZero() && startOfDay(q.Until).After(today) {
		return q, false, fmt.Errorf("%w: end date cannot be in the future", shared.ErrInvalidFlag)
	}

	swapped := false
	if !q.Since.IsZero() && !q.Until.IsZero() && q.Since.After(q.Until) {
		q.Since, q.Until = q.Until, q.Since
		swapped = true
	}
	return q, swapped, nil
}

// filter converts q into the cache filter, widening the dates to whole days.
func (q Query) filter() repositories.TodoFilter {
	f := repositories.TodoFilter{Limit: q.PerPage, Offset: (q.Page - 1) * q.PerPage}
	if !q.Since.IsZero() {
		f.Since = startOfDay(q.Since)
	}
	if !q.Until.IsZero() {
		f.Until = startOfDay(q.Until).Add(24*time.Hour - time.Nanosecond)
	}
	return f
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Items returns a page of cached todos for the current user.
func (b *Board) Items(q Query) (*Page, error) {
	c, err := b.begin()
	if err != nil {
		return nil, err
	}

	q, swapped, err := q.Normalize(time.Now())
	if err != nil {
		return nil, err
	}

	filter := q.filter()
	total, err := b.cache.Count(c.owner, filter)
	if err != nil {
		return nil, err
	}
	items, err := b.cache.List(c.owner, filter)
	if err != nil {
		return nil, err
	}

	pages := (total + q.PerPage - 1) / q.PerPage
	return &Page{
		Items:      items,
		Page:       q.Page,
		PerPage:    q.PerPage,
		Total:      total,
		TotalPages: pages,
		Swapped:    swapped,
	}, nil
}

// All returns every cached todo for the current user, newest first.
func (b *Board) All() (string, []models.Todo, error) {
	c, err := b.begin()
	if err != nil {
		return "", nil, err
	}
	todos, err := b.cache.List(c.owner, repositories.TodoFilter{})
	return c.owner, todos, err
}
