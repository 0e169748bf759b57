// Package models defines the wire representations exchanged with the task
// backend.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/taskkeeper/internal/timex"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "Pending"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
)

// Statuses lists every status in display order.
var Statuses = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted}

var (
	ErrEmptyTitle    = errors.New("title must not be empty")
	ErrInvalidStatus = errors.New("invalid task status")
	ErrEmptyUpdate   = errors.New("nothing to update")
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus accepts the canonical names case-insensitively, plus the
// short forms "in-progress", "inprogress" and "done".
func ParseStatus(s string) (TaskStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "in progress", "in-progress", "in_progress", "inprogress":
		return StatusInProgress, nil
	case "completed", "done":
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Task is a task as stored by the backend.
type Task struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	Status      TaskStatus  `json:"status"`
	DueDate     *timex.Time `json:"due_date"`
	UserID      int64       `json:"user_id"`
	CreatedAt   timex.Time  `json:"created_at"`
	UpdatedAt   *timex.Time `json:"updated_at"`
}

// CreateTaskPayload is the body of POST /tasks/. Only Title is required.
type CreateTaskPayload struct {
	Title       string      `json:"title"`
	Description *string     `json:"description,omitempty"`
	Status      TaskStatus  `json:"status,omitempty"`
	DueDate     *timex.Time `json:"due_date,omitempty"`
}

func (p CreateTaskPayload) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	if p.Status != "" && !p.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, p.Status)
	}
	return nil
}

// UpdateTaskPayload is the body of PUT /tasks/{id}. Unset fields are not
// sent, so the backend leaves them untouched. ClearDueDate sends an explicit
// null for due_date.
type UpdateTaskPayload struct {
	Title        *string
	Description  *string
	Status       *TaskStatus
	DueDate      *timex.Time
	ClearDueDate bool
}

func (p UpdateTaskPayload) Validate() error {
	if p.Title == nil && p.Description == nil && p.Status == nil && p.DueDate == nil && !p.ClearDueDate {
		return ErrEmptyUpdate
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrEmptyTitle
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *p.Status)
	}
	return nil
}

func (p UpdateTaskPayload) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, 4)
	if p.Title != nil {
		body["title"] = *p.Title
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.Status != nil {
		body["status"] = *p.Status
	}
	switch {
	case p.ClearDueDate:
		body["due_date"] = nil
	case p.DueDate != nil:
		body["due_date"] = p.DueDate
	}
	return json.Marshal(body)
}
