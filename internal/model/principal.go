package model

import "time"

// User is a registered resident account identified by email.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Staff is a registered staff member identified by staff ID.
// Staff live in their own table so a user can never self-assign the role.
type Staff struct {
	ID           int64     `json:"id"`
	StaffID      string    `json:"staff_id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Role distinguishes the two principal kinds in sessions and auth context.
type Role string

const (
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
)
