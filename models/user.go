package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	Password  string             `json:"-" bson:"password"`
	Admin     bool               `json:"admin" bson:"admin"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// AuthResponse is returned by register, login and profile updates.
type AuthResponse struct {
	ID          primitive.ObjectID `json:"_id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Admin       bool               `json:"admin"`
	CreatedAt   time.Time          `json:"createdAt"`
	AccessToken string             `json:"accessToken"`
}
