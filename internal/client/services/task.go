// Package services contains application services for the TaskKeeper client.
// This file defines the task service: validated task CRUD against the
// backend on behalf of the current session.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskkeeper/internal/client/client"
	"github.com/dmitrijs2005/taskkeeper/internal/client/models"
)

// ErrNoSession is returned when no bearer token is held.
var ErrNoSession = errors.New("not logged in")

// TokenSource yields the bearer token of the current session.
type TokenSource interface {
	Token() string
}

// TaskService defines task operations for the CLI.
//
// Payloads are validated before any request is sent. Errors from the
// backend keep their client sentinel (client.ErrNotFound, ...).
type TaskService interface {
	List(ctx context.Context, status models.TaskStatus) ([]models.Task, error)
	Get(ctx context.Context, id int64) (*models.Task, error)
	Create(ctx context.Context, payload models.CreateTaskPayload) (*models.Task, error)
	Update(ctx context.Context, id int64, payload models.UpdateTaskPayload) (*models.Task, error)
	SetStatus(ctx context.Context, id int64, status models.TaskStatus) (*models.Task, error)
	Delete(ctx context.Context, id int64) (*models.Task, error)
}

type taskService struct {
	client client.Client
	tokens TokenSource
}

func NewTaskService(c client.Client, tokens TokenSource) TaskService {
	return &taskService{client: c, tokens: tokens}
}

func (s *taskService) authorize(ctx context.Context) (context.Context, error) {
	token := s.tokens.Token()
	if token == "" {
		return nil, ErrNoSession
	}
	return client.WithAccessToken(ctx, token), nil
}

func (s *taskService) List(ctx context.Context, status models.TaskStatus) ([]models.Task, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStatus, status)
	}
	ctx, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}

	tasks, err := s.client.ListTasks(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *taskService) Get(ctx context.Context, id int64) (*models.Task, error) {
	ctx, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}

	task, err := s.client.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return task, nil
}

func (s *taskService) Create(ctx context.Context, payload models.CreateTaskPayload) (*models.Task, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	ctx, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}

	task, err := s.client.CreateTask(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (s *taskService) Update(ctx context.Context, id int64, payload models.UpdateTaskPayload) (*models.Task, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	ctx, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}

	task, err := s.client.UpdateTask(ctx, id, payload)
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", id, err)
	}
	return task, nil
}

// SetStatus changes only the status of a task.
func (s *taskService) SetStatus(ctx context.Context, id int64, status models.TaskStatus) (*models.Task, error) {
	return s.Update(ctx, id, models.UpdateTaskPayload{Status: &status})
}

func (s *taskService) Delete(ctx context.Context, id int64) (*models.Task, error) {
	ctx, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}

	task, err := s.client.DeleteTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete task %d: %w", id, err)
	}
	return task, nil
}
