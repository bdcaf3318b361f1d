package auth

import "time"

type Role string

const (
	RoleRenter Role = "renter"
	RoleAgent  Role = "agent"
	RoleLister Role = "lister"
)

// AgentStatus tracks a user's progress through agent onboarding.
type AgentStatus string

const (
	AgentStatusNone     AgentStatus = "none"
	AgentStatusPending  AgentStatus = "pending"
	AgentStatusVerified AgentStatus = "verified"
)

// User is the domain representation of an authenticated user.
// It mirrors the users table and should not include JSON annotations so it
// can be reused by different presentation layers.
type User struct {
	ID             string
	Email          string
	FullName       string
	PasswordHash   string
	Role           Role
	AgentStatus    AgentStatus
	BusinessStatus string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RegisterRequest contains user registration data supplied by callers.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

// LoginRequest contains user login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
