package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionType string

const (
	TransactionSale TransactionType = "sale"
	TransactionRent TransactionType = "rent"
)

func (t TransactionType) Valid() bool {
	return t == TransactionSale || t == TransactionRent
}

type PropertyStatus string

const (
	PropertyActive  PropertyStatus = "active"
	PropertyPending PropertyStatus = "pending"
	PropertySold    PropertyStatus = "sold"
)

func (s PropertyStatus) Valid() bool {
	switch s {
	case PropertyActive, PropertyPending, PropertySold:
		return true
	}
	return false
}

// PropertyDetails is the "properties" member of the GeoJSON Feature.
type PropertyDetails struct {
	Address         string          `bson:"address" json:"address" binding:"required"`
	City            string          `bson:"city" json:"city"`
	State           string          `bson:"state,omitempty" json:"state,omitempty"`
	ZipCode         string          `bson:"zip_code,omitempty" json:"zipCode,omitempty"`
	Price           float64         `bson:"price" json:"price" binding:"gte=0"`
	Beds            int             `bson:"beds" json:"beds" binding:"gte=0"`
	Baths           float64         `bson:"baths" json:"baths" binding:"gte=0"`
	Sqft            int             `bson:"sqft,omitempty" json:"sqft,omitempty" binding:"gte=0"`
	PropertyType    string          `bson:"property_type" json:"propertyType"`
	TransactionType TransactionType `bson:"transaction_type" json:"transactionType" binding:"omitempty,oneof=sale rent"`
	Description     string          `bson:"description,omitempty" json:"description,omitempty"`
	Photo           string          `bson:"photo,omitempty" json:"photo,omitempty"`
	Photos          []string        `bson:"photos" json:"photos"`
	YearBuilt       int             `bson:"year_built,omitempty" json:"yearBuilt,omitempty"`
	Status          PropertyStatus  `bson:"status" json:"status" binding:"omitempty,oneof=active pending sold"`
}

// Property is stored as a GeoJSON Feature so the document can be handed to map clients as is.
type Property struct {
	Base       `bson:",inline"`
	Type       string              `bson:"type" json:"type"`
	Properties PropertyDetails     `bson:"properties" json:"properties"`
	Geometry   GeoJSON             `bson:"geometry" json:"geometry"`
	AgentID    *primitive.ObjectID `bson:"agent_id,omitempty" json:"agentId,omitempty"`
}

// OwnedBy reports whether userID is the listing agent. A property without an agent is owned by nobody.
func (p *Property) OwnedBy(userID primitive.ObjectID) bool {
	return p.AgentID != nil && *p.AgentID == userID
}

// PropertyPage is one page of search results.
type PropertyPage struct {
	Data  []Property `json:"data"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Total int64      `json:"total"`
}
