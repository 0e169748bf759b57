package models

import "github.com/dmitrijs2005/taskkeeper/internal/timex"

// User is the profile returned by the signup and token introspection
// endpoints.
type User struct {
	ID        int64       `json:"id"`
	Email     string      `json:"email"`
	Username  string      `json:"username"`
	IsActive  bool        `json:"is_active,omitempty"`
	CreatedAt *timex.Time `json:"created_at,omitempty"`
	UpdatedAt *timex.Time `json:"updated_at,omitempty"`
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}
