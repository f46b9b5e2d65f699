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

// ContactInput is a contact-form submission.
type ContactInput struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

// IContactService stores and lists contact-form submissions.
type IContactService interface {
	Create(ctx context.Context, in ContactInput) (*models.Contact, error)
	List(ctx context.Context, status models.ContactStatus) ([]models.Contact, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.ContactStatus) (*models.Contact, error)
}

type contactService struct {
	db *mongo.Database
}

func NewContactService(database *mongo.Database) IContactService {
	return &contactService{db: database}
}

func (s *contactService) contacts() *mongo.Collection {
	return s.db.Collection(db.ContactsCollection)
}

func (s *contactService) Create(ctx context.Context, in ContactInput) (*models.Contact, error) {
	contact := &models.Contact{
		Base:    models.NewBase(),
		Name:    strings.TrimSpace(in.Name),
		Email:   normalizeEmail(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Subject: strings.TrimSpace(in.Subject),
		Message: strings.TrimSpace(in.Message),
		Status:  models.ContactPending,
	}
	if contact.Name == "" || contact.Email == "" || contact.Message == "" {
		return nil, fmt.Errorf("%w: name, email and message are required", ErrInvalidInput)
	}
	err := db.TryInsert(func() error {
		_, insertErr := s.contacts().InsertOne(ctx, contact)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store contact message: %w", err)
	}
	return contact, nil
}

func (s *contactService) List(ctx context.Context, status models.ContactStatus) ([]models.Contact, error) {
	filter := bson.M{}
	if status != "" {
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.contacts().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer cursor.Close(ctx)

	contacts := []models.Contact{}
	if err := cursor.All(ctx, &contacts); err != nil {
		return nil, fmt.Errorf("failed to decode contacts: %w", err)
	}
	return contacts, nil
}

func (s *contactService) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.ContactStatus) (*models.Contact, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Contact
	err := s.contacts().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
		opts,
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update contact %s: %w", id.Hex(), err)
	}
	return &updated, nil
}
