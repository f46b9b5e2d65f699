package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greendrake/realty/internal/db"
	"greendrake/realty/internal/models"
)

// Template IDs used by the API when enqueueing emails.
const (
	TemplatePasswordReset   = "password_reset"
	TemplateNewInterest     = "new_interest"
	TemplateInterestStatus  = "interest_status"
	TemplateContactReceived = "contact_received"
	TemplateWelcome         = "welcome"

	DefaultLocale = "en-US"
)

// Default email templates used as fallback when not found in database
var defaultEmailTemplates = map[string]models.EmailTemplate{
	TemplatePasswordReset: {
		TemplateID: TemplatePasswordReset,
		Locale:     DefaultLocale,
		Subject:    "Reset your {{.app_name}} password",
		Body:       "Hi {{.name}},\n\nUse the link below to choose a new password. It expires in {{.expires_minutes}} minutes.\n\n{{.reset_url}}\n\nIf you did not ask for this, ignore this email.",
	},
	TemplateNewInterest: {
		TemplateID: TemplateNewInterest,
		Locale:     DefaultLocale,
		Subject:    "New interest in {{.address}}",
		Body:       "Hi {{.agent_name}},\n\n{{.client_name}} ({{.client_email}}) is interested in {{.address}}.\n\nMessage:\n{{.message}}",
	},
	TemplateInterestStatus: {
		TemplateID: TemplateInterestStatus,
		Locale:     DefaultLocale,
		Subject:    "Update on your enquiry about {{.address}}",
		Body:       "Hi {{.client_name}},\n\nThe status of your enquiry about {{.address}} is now: {{.status}}.",
	},
	TemplateContactReceived: {
		TemplateID: TemplateContactReceived,
		Locale:     DefaultLocale,
		Subject:    "We received your message",
		Body:       "Hi {{.name}},\n\nThanks for contacting {{.app_name}}. We will get back to you shortly.\n\nYour message:\n{{.message}}",
	},
	TemplateWelcome: {
		TemplateID: TemplateWelcome,
		Locale:     DefaultLocale,
		Subject:    "Welcome to {{.app_name}}",
		Body:       "Hi {{.name}},\n\nYour {{.role}} account is ready. Sign in at {{.client_url}}.",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	SaveTemplate(ctx context.Context, template *models.EmailTemplate) error
	DeleteTemplate(ctx context.Context, templateID, locale string) error
}

// EmailTemplateService handles operations related to email templates
type EmailTemplateService struct {
	db *mongo.Database
}

// NewEmailTemplateService creates a new instance of EmailTemplateService
func NewEmailTemplateService(database *mongo.Database) *EmailTemplateService {
	return &EmailTemplateService{db: database}
}

// DefaultTemplate returns the built-in template for templateID.
func DefaultTemplate(templateID string) (*models.EmailTemplate, bool) {
	t, ok := defaultEmailTemplates[templateID]
	if !ok {
		return nil, false
	}
	return &t, true
}

// GetTemplate retrieves an email template by ID and locale, falling back to the built-in one.
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID string, locale string) (*models.EmailTemplate, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	if s.db == nil {
		if t, ok := DefaultTemplate(templateID); ok {
			return t, nil
		}
		return nil, fmt.Errorf("%w: template %s", ErrNotFound, templateID)
	}

	filter := bson.M{"template_id": templateID, "locale": locale}
	var template models.EmailTemplate
	err := s.db.Collection(db.EmailTemplatesCollection).FindOne(ctx, filter).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if t, ok := DefaultTemplate(templateID); ok {
				return t, nil
			}
			return nil, fmt.Errorf("%w: template %s (locale: %s)", ErrNotFound, templateID, locale)
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}
	return &template, nil
}

// SaveTemplate upserts an email template override.
func (s *EmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	filter := bson.M{"template_id": template.TemplateID, "locale": template.Locale}
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"subject":    template.Subject,
			"body":       template.Body,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := s.db.Collection(db.EmailTemplatesCollection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}
	return nil
}

// DeleteTemplate removes an override so the built-in template applies again.
func (s *EmailTemplateService) DeleteTemplate(ctx context.Context, templateID string, locale string) error {
	filter := bson.M{"template_id": templateID, "locale": locale}
	if _, err := s.db.Collection(db.EmailTemplatesCollection).DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("error deleting template: %w", err)
	}
	return nil
}
