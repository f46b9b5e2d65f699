package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type InterestStatus string

const (
	InterestPending   InterestStatus = "pending"
	InterestContacted InterestStatus = "contacted"
	InterestClosed    InterestStatus = "closed"
)

func (s InterestStatus) Valid() bool {
	switch s {
	case InterestPending, InterestContacted, InterestClosed:
		return true
	}
	return false
}

// Interest is a lead: a client asking the listing agent about a property.
type Interest struct {
	Base       `bson:",inline"`
	ClientID   primitive.ObjectID `bson:"client_id" json:"clientId"`
	PropertyID primitive.ObjectID `bson:"property_id" json:"propertyId"`
	AgentID    primitive.ObjectID `bson:"agent_id" json:"agentId"`
	Message    string             `bson:"message" json:"message"`
	Status     InterestStatus     `bson:"status" json:"status"`
}

type InterestClient struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email" json:"email"`
	PhoneNumber string             `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
}

type InterestProperty struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	Address string             `bson:"address" json:"address"`
	City    string             `bson:"city" json:"city"`
	Price   float64            `bson:"price" json:"price"`
	Photo   string             `bson:"photo,omitempty" json:"photo,omitempty"`
}

// InterestView is an interest with its client and property joined in.
type InterestView struct {
	Interest `bson:",inline"`
	Client   *InterestClient   `bson:"client,omitempty" json:"client,omitempty"`
	Property *InterestProperty `bson:"property,omitempty" json:"property,omitempty"`
}
