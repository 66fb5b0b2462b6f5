package model

import "time"

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPatch holds the columns to change; nil leaves a column as is.
type UserPatch struct {
	Email        *string
	FullName     *string
	Role         *Role
	PasswordHash *string
}

type UserFilter struct {
	Search string
	Limit  int
	Offset int
}

type PageMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type UserPage struct {
	Users []User   `json:"users"`
	Meta  PageMeta `json:"meta"`
}
