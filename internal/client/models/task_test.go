package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    TaskStatus
		wantErr bool
	}{
		{in: "pending", want: StatusPending},
		{in: "In Progress", want: StatusInProgress},
		{in: "in-progress", want: StatusInProgress},
		{in: "DONE", want: StatusCompleted},
		{in: "Completed", want: StatusCompleted},
		{in: "archived", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidStatus, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestCreateTaskPayload_Validate(t *testing.T) {
	assert.NoError(t, CreateTaskPayload{Title: "Buy milk"}.Validate())
	assert.ErrorIs(t, CreateTaskPayload{Title: "   "}.Validate(), ErrEmptyTitle)
	assert.ErrorIs(t, CreateTaskPayload{Title: "x", Status: "Blocked"}.Validate(), ErrInvalidStatus)
}

func TestCreateTaskPayload_OmitsUnsetFields(t *testing.T) {
	b, err := json.Marshal(CreateTaskPayload{Title: "Buy milk"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Buy milk"}`, string(b))
}

func TestUpdateTaskPayload_Validate(t *testing.T) {
	assert.ErrorIs(t, UpdateTaskPayload{}.Validate(), ErrEmptyUpdate)
	assert.ErrorIs(t, UpdateTaskPayload{Title: ptr("")}.Validate(), ErrEmptyTitle)
	assert.ErrorIs(t, UpdateTaskPayload{Status: ptr(TaskStatus("nope"))}.Validate(), ErrInvalidStatus)
	assert.NoError(t, UpdateTaskPayload{ClearDueDate: true}.Validate())
	assert.NoError(t, UpdateTaskPayload{Status: ptr(StatusCompleted)}.Validate())
}

func TestUpdateTaskPayload_MarshalJSON(t *testing.T) {
	due := timex.Time{Time: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		name string
		in   UpdateTaskPayload
		want string
	}{
		{name: "status only", in: UpdateTaskPayload{Status: ptr(StatusInProgress)}, want: `{"status":"In Progress"}`},
		{name: "clear due date", in: UpdateTaskPayload{ClearDueDate: true}, want: `{"due_date":null}`},
		{name: "set due date", in: UpdateTaskPayload{DueDate: &due}, want: `{"due_date":"2025-05-01T00:00:00Z"}`},
		{name: "title and description", in: UpdateTaskPayload{Title: ptr("a"), Description: ptr("b")}, want: `{"title":"a","description":"b"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}

func TestTask_DecodesBackendRepresentation(t *testing.T) {
	raw := `{"id":7,"title":"Buy milk","description":null,"status":"Pending","due_date":null,
		"user_id":1,"created_at":"2025-03-01T10:00:00.123456","updated_at":null}`

	var task Task
	require.NoError(t, json.Unmarshal([]byte(raw), &task))
	assert.Equal(t, int64(7), task.ID)
	assert.Equal(t, StatusPending, task.Status)
	assert.Nil(t, task.Description)
	assert.Nil(t, task.DueDate)
	assert.Nil(t, task.UpdatedAt)
	assert.Equal(t, 2025, task.CreatedAt.Year())
}
