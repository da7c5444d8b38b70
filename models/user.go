package models

import (
	"strings"
	"time"
)

// User is the local profile of an identity-provider account.
// CredentialRef holds the provider uid (Firebase UID).
type User struct {
	ID            string    `json:"id" firestore:"-" bson:"-"`
	Name          string    `json:"name" firestore:"name" bson:"name"`
	Email         string    `json:"email" firestore:"email" bson:"email"`
	Active        bool      `json:"active" firestore:"active" bson:"active"`
	Admin         bool      `json:"admin" firestore:"admin" bson:"admin"`
	CredentialRef string    `json:"-" firestore:"credential_ref" bson:"credential_ref"`
	CreatedAt     time.Time `json:"created_at" firestore:"created_at" bson:"created_at"`
}

// RegisterInput is the payload accepted by user registration.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,personname"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=64,password"`
}

func (in *RegisterInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

// LoginInput is the payload accepted by password sign-in.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=64"`
}

func (in *LoginInput) Normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}
