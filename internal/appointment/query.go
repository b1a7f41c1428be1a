package appointment

import (
	"context"
	"fmt"
	"strings"
)

// Query is the read side. Results are always ordered by date then time, ties
// kept in insertion order.
type Query struct {
	repo Repository
}

func NewQuery(repo Repository) *Query {
	return &Query{repo: repo}
}

func (q *Query) GetByUser(ctx context.Context, userID string) ([]Appointment, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, &MissingFieldError{Fields: []string{"userId"}}
	}

	appts, err := q.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by user: %w", err)
	}
	SortBySchedule(appts)
	return appts, nil
}

func (q *Query) GetByID(ctx context.Context, id string) (*Appointment, error) {
	appt, err := q.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

func (q *Query) GetAll(ctx context.Context, filter Filter) ([]Appointment, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "must be one of pending, confirmed, cancelled"}
	}

	appts, err := q.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	SortBySchedule(appts)
	return appts, nil
}
