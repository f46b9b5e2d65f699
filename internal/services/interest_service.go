package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greendrake/realty/internal/db"
	"greendrake/realty/internal/models"
)

// IInterestService manages client interest in properties.
type IInterestService interface {
	Create(ctx context.Context, clientID, propertyID primitive.ObjectID, message string) (*models.Interest, *models.Property, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Interest, error)
	ListForAgent(ctx context.Context, agentID primitive.ObjectID, status models.InterestStatus) ([]models.InterestView, error)
	ListForClient(ctx context.Context, clientID primitive.ObjectID) ([]models.InterestView, error)
	UpdateStatus(ctx context.Context, id, agentID primitive.ObjectID, status models.InterestStatus) (*models.Interest, error)
}

type interestService struct {
	db         *mongo.Database
	properties IPropertyService
}

// NewInterestService creates a new InterestService.
func NewInterestService(database *mongo.Database, properties IPropertyService) IInterestService {
	return &interestService{db: database, properties: properties}
}

func (s *interestService) interests() *mongo.Collection {
	return s.db.Collection(db.InterestsCollection)
}

// Create records a client's interest. The agent is copied from the property at this point.
func (s *interestService) Create(ctx context.Context, clientID, propertyID primitive.ObjectID, message string) (*models.Interest, *models.Property, error) {
	property, err := s.properties.FindByID(ctx, propertyID)
	if err != nil {
		return nil, nil, err
	}
	if property.AgentID == nil {
		return nil, nil, ErrPropertyHasNoAgent
	}

	count, err := s.interests().CountDocuments(ctx, bson.M{"client_id": clientID, "property_id": propertyID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check existing interest: %w", err)
	}
	if count > 0 {
		return nil, nil, ErrInterestExists
	}

	interest := &models.Interest{
		Base:       models.NewBase(),
		ClientID:   clientID,
		PropertyID: propertyID,
		AgentID:    *property.AgentID,
		Message:    strings.TrimSpace(message),
		Status:     models.InterestPending,
	}
	err = db.TryInsert(func() error {
		_, insertErr := s.interests().InsertOne(ctx, interest)
		return insertErr
	})
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, nil, ErrInterestExists
		}
		return nil, nil, fmt.Errorf("failed to insert interest for property %s: %w", propertyID.Hex(), err)
	}
	return interest, property, nil
}

func (s *interestService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Interest, error) {
	var interest models.Interest
	if err := s.interests().FindOne(ctx, bson.M{"_id": id}).Decode(&interest); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding interest %s: %w", id.Hex(), err)
	}
	return &interest, nil
}

// interestViewPipeline joins client and property summaries onto matching interests, newest first.
func interestViewPipeline(match bson.M, withClient bool) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         db.PropertiesCollection,
			"localField":   "property_id",
			"foreignField": "_id",
			"as":           "property",
			"pipeline": bson.A{bson.M{"$project": bson.M{
				"address": "$properties.address",
				"city":    "$properties.city",
				"price":   "$properties.price",
				"photo":   "$properties.photo",
			}}},
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$property", "preserveNullAndEmptyArrays": true}}},
	}
	if withClient {
		pipeline = append(pipeline,
			bson.D{{Key: "$lookup", Value: bson.M{
				"from":         db.UsersCollection,
				"localField":   "client_id",
				"foreignField": "_id",
				"as":           "client",
				"pipeline": bson.A{bson.M{"$project": bson.M{
					"name": 1, "email": 1, "phone_number": 1,
				}}},
			}}},
			bson.D{{Key: "$unwind", Value: bson.M{"path": "$client", "preserveNullAndEmptyArrays": true}}},
		)
	}
	return pipeline
}

func (s *interestService) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]models.InterestView, error) {
	cursor, err := s.interests().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate interests: %w", err)
	}
	defer cursor.Close(ctx)

	views := []models.InterestView{}
	if err := cursor.All(ctx, &views); err != nil {
		return nil, fmt.Errorf("failed to decode interests: %w", err)
	}
	return views, nil
}

func (s *interestService) ListForAgent(ctx context.Context, agentID primitive.ObjectID, status models.InterestStatus) ([]models.InterestView, error) {
	match := bson.M{"agent_id": agentID}
	if status != "" {
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}
		match["status"] = status
	}
	return s.aggregate(ctx, interestViewPipeline(match, true))
}

func (s *interestService) ListForClient(ctx context.Context, clientID primitive.ObjectID) ([]models.InterestView, error) {
	return s.aggregate(ctx, interestViewPipeline(bson.M{"client_id": clientID}, false))
}

// UpdateStatus sets any status value; there is no transition graph.
func (s *interestService) UpdateStatus(ctx context.Context, id, agentID primitive.ObjectID, status models.InterestStatus) (*models.Interest, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	interest, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if interest.AgentID != agentID {
		return nil, ErrNotAuthorized
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Interest
	err = s.interests().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "agent_id": agentID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
		opts,
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update interest %s: %w", id.Hex(), err)
	}
	return &updated, nil
}
