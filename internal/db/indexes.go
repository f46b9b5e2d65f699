package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// indexSpecs lists the indexes every deployment needs, keyed by collection.
var indexSpecs = map[string][]mongo.IndexModel{
	UsersCollection: {
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
		{Keys: bson.D{{Key: "reset_password_token", Value: 1}}, Options: options.Index().SetSparse(true).SetName("reset_token")},
	},
	PropertiesCollection: {
		{Keys: bson.D{{Key: "geometry", Value: "2dsphere"}}, Options: options.Index().SetName("geometry_2dsphere")},
		{
			Keys: bson.D{
				{Key: "properties.address", Value: "text"},
				{Key: "properties.city", Value: "text"},
				{Key: "properties.description", Value: "text"},
			},
			Options: options.Index().SetName("details_text").SetWeights(bson.D{
				{Key: "properties.address", Value: 5},
				{Key: "properties.city", Value: 3},
				{Key: "properties.description", Value: 1},
			}),
		},
		{Keys: bson.D{{Key: "agent_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("agent_created")},
		{Keys: bson.D{{Key: "properties.price", Value: 1}}, Options: options.Index().SetName("price")},
	},
	InterestsCollection: {
		{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "property_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("client_property_unique")},
		{Keys: bson.D{{Key: "agent_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("agent_created")},
	},
	ContactsCollection: {
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("status_created")},
	},
	EmailTemplatesCollection: {
		{Keys: bson.D{{Key: "template_id", Value: 1}, {Key: "locale", Value: 1}}, Options: options.Index().SetUnique(true).SetName("template_locale_unique")},
	},
}

// EnsureIndexes creates all indexes. Creating an index that already exists is a no-op in MongoDB.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for collection, models := range indexSpecs {
		names, err := database.Collection(collection).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
		log.Printf("Indexes ensured on %s: %v", collection, names)
	}
	return nil
}
