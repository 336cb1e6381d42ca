package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserType string

const (
	UserTypeClient  UserType = "client"
	UserTypePartner UserType = "partner"
)

type User struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserType    UserType           `json:"user_type" bson:"user_type" validate:"required,oneof=client partner"`
	FirstName   string             `json:"first_name" bson:"first_name" validate:"required,max=100"`
	LastName    string             `json:"last_name" bson:"last_name" validate:"required,max=100"`
	Email       string             `json:"email" bson:"email" validate:"required,email"`
	Phone       string             `json:"phone" bson:"phone"`
	SMSOptIn    bool               `json:"sms_opt_in" bson:"sms_opt_in"`
	PushToken   string             `json:"push_token" bson:"push_token"`
	Platform    string             `json:"platform" bson:"platform"` // ios, android
	Rating      float64            `json:"rating" bson:"rating"`
	IsAvailable bool               `json:"is_available" bson:"is_available"` // partners only
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
