package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the marketplace role of a user.
type Role string

const (
	RoleAgent  Role = "agent"
	RoleClient Role = "client"
)

func (r Role) Valid() bool {
	return r == RoleAgent || r == RoleClient
}

// SavedSearch is a named set of search parameters stored on the user document.
type SavedSearch struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Query     map[string]string  `bson:"query" json:"query"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// User represents an account in the system.
type User struct {
	Base                 `bson:",inline"`
	Name                 string               `bson:"name" json:"name"`
	Email                string               `bson:"email" json:"email"`
	PasswordHash         string               `bson:"password" json:"-"`
	Role                 Role                 `bson:"role" json:"role"`
	PhoneNumber          string               `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	SavedHomes           []primitive.ObjectID `bson:"saved_homes" json:"savedHomes"`
	SavedSearches        []SavedSearch        `bson:"saved_searches" json:"savedSearches"`
	ResetPasswordToken   string               `bson:"reset_password_token,omitempty" json:"-"`
	ResetPasswordExpires *time.Time           `bson:"reset_password_expires,omitempty" json:"-"`
}

// IsAgent reports whether the user may manage listings.
func (u *User) IsAgent() bool {
	return u.Role == RoleAgent
}

// AgentCard is the public view of an agent shown next to their listings.
type AgentCard struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	PhoneNumber string             `json:"phoneNumber,omitempty"`
	Role        Role               `json:"role"`
}

func (u *User) AgentCard() AgentCard {
	return AgentCard{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
	}
}
