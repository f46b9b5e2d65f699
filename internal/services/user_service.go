package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greendrake/realty/internal/auth"
	"greendrake/realty/internal/config"
	"greendrake/realty/internal/db"
	"greendrake/realty/internal/models"
)

// ProfileUpdate carries the optional fields of a profile edit. Nil means unchanged.
type ProfileUpdate struct {
	Name        *string
	Email       *string
	PhoneNumber *string
}

// IUserService defines the interface for user-related operations.
type IUserService interface {
	CreateUser(ctx context.Context, name, email, password string, role models.Role, phoneNumber string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	FindAgentCard(ctx context.Context, userID primitive.ObjectID) (*models.AgentCard, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, update ProfileUpdate) (*models.User, error)
	ChangePassword(ctx context.Context, userID primitive.ObjectID, currentPassword, newPassword string) error
	SetResetToken(ctx context.Context, userID primitive.ObjectID, digest string, expires time.Time) error
	ResetPasswordByToken(ctx context.Context, digest, newPassword string) (*models.User, error)
	ValidatePassword(password string) error

	// Wishlist
	AddSavedHome(ctx context.Context, userID, propertyID primitive.ObjectID) error
	RemoveSavedHome(ctx context.Context, userID, propertyID primitive.ObjectID) error
	ListSavedHomes(ctx context.Context, userID primitive.ObjectID) ([]models.Property, error)

	// Saved searches
	ListSavedSearches(ctx context.Context, userID primitive.ObjectID) ([]models.SavedSearch, error)
	AddSavedSearch(ctx context.Context, userID primitive.ObjectID, name string, query map[string]string) (*models.SavedSearch, error)
	RemoveSavedSearch(ctx context.Context, userID, searchID primitive.ObjectID) error
}

// userService implements IUserService.
type userService struct {
	db             *mongo.Database
	passwordRegexp *regexp.Regexp
}

// NewUserService creates a new UserService.
func NewUserService(database *mongo.Database, cfg *config.Config) IUserService {
	pattern := "^.{6,}$"
	if cfg != nil && cfg.PasswordRegexp != "" {
		pattern = cfg.PasswordRegexp
	}
	return &userService{db: database, passwordRegexp: regexp.MustCompile(pattern)}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) users() *mongo.Collection {
	return s.db.Collection(db.UsersCollection)
}

// ValidatePassword checks a plaintext password against the configured pattern.
func (s *userService) ValidatePassword(password string) error {
	if !s.passwordRegexp.MatchString(password) {
		return ErrWeakPassword
	}
	return nil
}

// CreateUser registers a new account. Returns ErrEmailExists if the address is taken.
func (s *userService) CreateUser(ctx context.Context, name, email, password string, role models.Role, phoneNumber string) (*models.User, error) {
	email = normalizeEmail(email)
	if err := s.ValidatePassword(password); err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleClient
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	count, err := s.users().CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return nil, fmt.Errorf("error checking email uniqueness for %s: %w", email, err)
	}
	if count > 0 {
		return nil, ErrEmailExists
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	newUser := &models.User{
		Base:          models.NewBase(),
		Name:          strings.TrimSpace(name),
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		PhoneNumber:   strings.TrimSpace(phoneNumber),
		SavedHomes:    []primitive.ObjectID{},
		SavedSearches: []models.SavedSearch{},
	}

	err = db.TryInsert(func() error {
		_, insertErr := s.users().InsertOne(ctx, newUser)
		return insertErr
	})
	if err != nil {
		// Two concurrent registrations can both pass the count check; the unique index decides.
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to insert user %s: %w", email, err)
	}
	return newUser, nil
}

// FindByEmail finds a user by their email address.
func (s *userService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.users().FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user by email %s: %w", email, err)
	}
	return &user, nil
}

// FindByID finds a user by ID.
func (s *userService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.users().FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user by ID %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

// FindAgentCard returns the public card of an agent. Clients have no public card.
func (s *userService) FindAgentCard(ctx context.Context, userID primitive.ObjectID) (*models.AgentCard, error) {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsAgent() {
		return nil, ErrNotFound
	}
	card := user.AgentCard()
	return &card, nil
}

// UpdateProfile applies a partial profile edit and returns the updated user.
func (s *userService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, update ProfileUpdate) (*models.User, error) {
	set := bson.M{}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		set["name"] = name
	}
	if update.PhoneNumber != nil {
		set["phone_number"] = strings.TrimSpace(*update.PhoneNumber)
	}
	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email cannot be empty", ErrInvalidInput)
		}
		count, err := s.users().CountDocuments(ctx, bson.M{"email": email, "_id": bson.M{"$ne": userID}})
		if err != nil {
			return nil, fmt.Errorf("error checking email uniqueness for %s: %w", email, err)
		}
		if count > 0 {
			return nil, ErrEmailExists
		}
		set["email"] = email
	}
	if len(set) == 0 {
		return nil, ErrNoFields
	}
	set["updated_at"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.User
	err := s.users().FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to update profile for user %s: %w", userID.Hex(), err)
	}
	return &updated, nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *userService) ChangePassword(ctx context.Context, userID primitive.ObjectID, currentPassword, newPassword string) error {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return ErrWrongPassword
	}
	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	_, err = s.users().UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"password": hash, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("failed to change password for user %s: %w", userID.Hex(), err)
	}
	return nil
}

// SetResetToken stores the digest of a password reset token with its expiry.
func (s *userService) SetResetToken(ctx context.Context, userID primitive.ObjectID, digest string, expires time.Time) error {
	res, err := s.users().UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{
			"reset_password_token":   digest,
			"reset_password_expires": expires.UTC(),
			"updated_at":             time.Now().UTC(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to store reset token for user %s: %w", userID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetPasswordByToken sets a new password for the user holding an unexpired token digest
// and consumes the token in the same update.
func (s *userService) ResetPasswordByToken(ctx context.Context, digest, newPassword string) (*models.User, error) {
	if digest == "" {
		return nil, ErrInvalidToken
	}
	if err := s.ValidatePassword(newPassword); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	filter := bson.M{
		"reset_password_token":   digest,
		"reset_password_expires": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set":   bson.M{"password": hash, "updated_at": now},
		"$unset": bson.M{"reset_password_token": "", "reset_password_expires": ""},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err = s.users().FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to reset password: %w", err)
	}
	return &user, nil
}

// AddSavedHome adds a property to the wishlist. Adding twice is a no-op.
func (s *userService) AddSavedHome(ctx context.Context, userID, propertyID primitive.ObjectID) error {
	count, err := s.db.Collection(db.PropertiesCollection).CountDocuments(ctx, bson.M{"_id": propertyID})
	if err != nil {
		return fmt.Errorf("error checking property %s: %w", propertyID.Hex(), err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return s.updateSavedHomes(ctx, userID, bson.M{"$addToSet": bson.M{"saved_homes": propertyID}})
}

// RemoveSavedHome removes a property from the wishlist.
func (s *userService) RemoveSavedHome(ctx context.Context, userID, propertyID primitive.ObjectID) error {
	return s.updateSavedHomes(ctx, userID, bson.M{"$pull": bson.M{"saved_homes": propertyID}})
}

func (s *userService) updateSavedHomes(ctx context.Context, userID primitive.ObjectID, update bson.M) error {
	res, err := s.users().UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to update wishlist for user %s: %w", userID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSavedHomes returns the wishlisted properties that still exist, most recently listed first.
func (s *userService) ListSavedHomes(ctx context.Context, userID primitive.ObjectID) ([]models.Property, error) {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	properties := []models.Property{}
	if len(user.SavedHomes) == 0 {
		return properties, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(db.PropertiesCollection).Find(ctx, bson.M{"_id": bson.M{"$in": user.SavedHomes}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved homes for user %s: %w", userID.Hex(), err)
	}
	if err := cursor.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("failed to decode saved homes: %w", err)
	}
	return properties, nil
}

// ListSavedSearches returns the user's saved searches.
func (s *userService) ListSavedSearches(ctx context.Context, userID primitive.ObjectID) ([]models.SavedSearch, error) {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.SavedSearches == nil {
		return []models.SavedSearch{}, nil
	}
	return user.SavedSearches, nil
}

// AddSavedSearch appends a named search to the user document.
func (s *userService) AddSavedSearch(ctx context.Context, userID primitive.ObjectID, name string, query map[string]string) (*models.SavedSearch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: search name is required", ErrInvalidInput)
	}
	if query == nil {
		query = map[string]string{}
	}
	search := models.SavedSearch{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Query:     query,
		CreatedAt: time.Now().UTC(),
	}
	res, err := s.users().UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$push": bson.M{"saved_searches": search},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save search for user %s: %w", userID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return &search, nil
}

// RemoveSavedSearch deletes one saved search.
func (s *userService) RemoveSavedSearch(ctx context.Context, userID, searchID primitive.ObjectID) error {
	res, err := s.users().UpdateOne(ctx,
		bson.M{"_id": userID, "saved_searches._id": searchID},
		bson.M{"$pull": bson.M{"saved_searches": bson.M{"_id": searchID}}},
	)
	if err != nil {
		return fmt.Errorf("failed to remove saved search %s: %w", searchID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
