package client

import (
	"context"

	"github.com/dmitrijs2005/taskkeeper/internal/client/models"
)

// Client is the backend API contract. Calls other than Login and Signup
// expect a bearer token in ctx (WithAccessToken).
type Client interface {
	Login(ctx context.Context, username, password string) (string, error)
	Signup(ctx context.Context, req models.SignupRequest) (*models.User, error)
	TestToken(ctx context.Context) (*models.User, error)

	ListTasks(ctx context.Context, status models.TaskStatus) ([]models.Task, error)
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	CreateTask(ctx context.Context, payload models.CreateTaskPayload) (*models.Task, error)
	UpdateTask(ctx context.Context, id int64, payload models.UpdateTaskPayload) (*models.Task, error)
	DeleteTask(ctx context.Context, id int64) (*models.Task, error)
}

type accessTokenKey struct{}

// WithAccessToken returns a context whose requests carry token as the
// bearer credential. An empty token attaches nothing.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFrom returns the token stored by WithAccessToken.
func AccessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}
