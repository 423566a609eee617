package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Student is an account able to own a study plan.
type Student struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"fullName"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// LoginRequest holds credentials for authenticating a student.
type LoginRequest struct {
	Email    string `json:"username" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and student info.
type LoginResponse struct {
	AccessToken string      `json:"accessToken"`
	ExpiresIn   int64       `json:"expiresIn"`
	IssuedAt    time.Time   `json:"issuedAt"`
	Student     StudentInfo `json:"student"`
}

// StudentInfo describes the authenticated student in responses.
type StudentInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	StudentID string `json:"sid"`
	Email     string `json:"email"`
	FullName  string `json:"name"`
	jwt.RegisteredClaims
}

// Info projects the claims into the response shape.
func (c *JWTClaims) Info() StudentInfo {
	return StudentInfo{ID: c.StudentID, Email: c.Email, FullName: c.FullName}
}
