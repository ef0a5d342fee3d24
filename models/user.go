package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"password,omitempty"`
	Title     string             `bson:"title" json:"title"`
	Role      string             `bson:"role" json:"role"`
	MobileNo  string             `bson:"mobileNo" json:"mobileNo"`
	IsAdmin   bool               `bson:"isAdmin" json:"isAdmin"`
	IsActive  bool               `bson:"isActive" json:"isActive"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Sanitized returns a copy safe to send to clients.
func (u User) Sanitized() User {
	u.Password = ""
	return u
}

// TeamMember is the projection returned by the team listing.
type TeamMember struct {
	ID       primitive.ObjectID `json:"_id"`
	Name     string             `json:"name"`
	Title    string             `json:"title"`
	Role     string             `json:"role"`
	Email    string             `json:"email"`
	MobileNo string             `json:"mobileNo"`
	IsActive bool               `json:"isActive"`
}

// UserSummary is the populated form of a user reference inside tasks.
type UserSummary struct {
	ID    primitive.ObjectID `json:"_id"`
	Name  string             `json:"name"`
	Title string             `json:"title,omitempty"`
	Role  string             `json:"role,omitempty"`
	Email string             `json:"email,omitempty"`
}

// ActiveUser is the dashboard projection of an active account.
type ActiveUser struct {
	ID        primitive.ObjectID `json:"_id"`
	Name      string             `json:"name"`
	Title     string             `json:"title"`
	Role      string             `json:"role"`
	IsActive  bool               `json:"isActive"`
	IsAdmin   bool               `json:"isAdmin"`
	CreatedAt time.Time          `json:"createdAt"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Title    string `json:"title"`
	MobileNo string `json:"mobileNo"`
	IsAdmin  bool   `json:"isAdmin"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileUpdate struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	MobileNo string `json:"mobileNo"`
	Title    string `json:"title"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Identity is the caller resolved from the session token. It is built once per
// request and passed by value to the services.
type Identity struct {
	UserID  primitive.ObjectID
	IsAdmin bool
}
