package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greendrake/realty/internal/cache"
	"greendrake/realty/internal/config"
	"greendrake/realty/internal/db"
	"greendrake/realty/internal/models"
)

// IPropertyService defines the interface for property listing operations.
type IPropertyService interface {
	Create(ctx context.Context, agentID primitive.ObjectID, details models.PropertyDetails, geometry *models.GeoJSON) (*models.Property, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error)
	// Update applies a partial update. Keys of details are the JSON names of PropertyDetails fields.
	Update(ctx context.Context, id, agentID primitive.ObjectID, details map[string]interface{}, geometry *models.GeoJSON) (*models.Property, error)
	Delete(ctx context.Context, id, agentID primitive.ObjectID) error
	AddPhotos(ctx context.Context, id, agentID primitive.ObjectID, urls []string) (*models.Property, error)
	// CheckOwner returns the property when agentID may modify it.
	CheckOwner(ctx context.Context, id, agentID primitive.ObjectID) (*models.Property, error)
	ListByAgent(ctx context.Context, agentID primitive.ObjectID) ([]models.Property, error)
	Search(ctx context.Context, q PropertyQuery) (*models.PropertyPage, error)
}

type propertyService struct {
	db       *mongo.Database
	cfg      *config.Config
	cache    cache.ISearchCache
	geocoder IGeocoder
}

// NewPropertyService creates a new PropertyService. searchCache and geocoder may be nil.
func NewPropertyService(database *mongo.Database, cfg *config.Config, searchCache cache.ISearchCache, geocoder IGeocoder) IPropertyService {
	if searchCache == nil {
		searchCache = cache.NewSearchCache(nil, "", 0)
	}
	return &propertyService{db: database, cfg: cfg, cache: searchCache, geocoder: geocoder}
}

func (s *propertyService) properties() *mongo.Collection {
	return s.db.Collection(db.PropertiesCollection)
}

func (s *propertyService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("Failed to invalidate property search cache: %v", err)
	}
}

func (s *propertyService) Create(ctx context.Context, agentID primitive.ObjectID, details models.PropertyDetails, geometry *models.GeoJSON) (*models.Property, error) {
	details.Address = strings.TrimSpace(details.Address)
	if details.Address == "" {
		return nil, fmt.Errorf("%w: address is required", ErrInvalidInput)
	}
	if details.TransactionType == "" {
		details.TransactionType = models.TransactionSale
	}
	if details.Status == "" {
		details.Status = models.PropertyActive
	}
	if !details.TransactionType.Valid() || !details.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if details.Photos == nil {
		details.Photos = []string{}
	}
	if details.Photo == "" && len(details.Photos) > 0 {
		details.Photo = details.Photos[0]
	}

	if geometry == nil {
		if s.geocoder == nil {
			return nil, ErrNoGeocoder
		}
		pt, err := s.geocoder.Geocode(ctx, geocodeQuery(&details))
		if err != nil {
			return nil, err
		}
		geometry = pt
	}
	if err := geometry.Validate(); err != nil {
		return nil, err
	}

	agent := agentID
	property := &models.Property{
		Base:       models.NewBase(),
		Type:       "Feature",
		Properties: details,
		Geometry:   *geometry,
		AgentID:    &agent,
	}
	err := db.TryInsert(func() error {
		_, insertErr := s.properties().InsertOne(ctx, property)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert property for agent %s: %w", agentID.Hex(), err)
	}
	s.invalidate(ctx)
	return property, nil
}

func (s *propertyService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	var p models.Property
	err := s.properties().FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding property %s: %w", id.Hex(), err)
	}
	return &p, nil
}

func (s *propertyService) CheckOwner(ctx context.Context, id, agentID primitive.ObjectID) (*models.Property, error) {
	p, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(agentID) {
		return nil, ErrNotAuthorized
	}
	return p, nil
}

type detailKind int

const (
	kindString detailKind = iota
	kindNumber
	kindInt
	kindStringList
	kindTransaction
	kindStatus
)

type detailField struct {
	bsonKey string
	kind    detailKind
}

// updatableDetails maps JSON keys of PropertyDetails to their stored names.
var updatableDetails = map[string]detailField{
	"address":         {"properties.address", kindString},
	"city":            {"properties.city", kindString},
	"state":           {"properties.state", kindString},
	"zipCode":         {"properties.zip_code", kindString},
	"price":           {"properties.price", kindNumber},
	"beds":            {"properties.beds", kindInt},
	"baths":           {"properties.baths", kindNumber},
	"sqft":            {"properties.sqft", kindInt},
	"propertyType":    {"properties.property_type", kindString},
	"transactionType": {"properties.transaction_type", kindTransaction},
	"description":     {"properties.description", kindString},
	"photo":           {"properties.photo", kindString},
	"photos":          {"properties.photos", kindStringList},
	"yearBuilt":       {"properties.year_built", kindInt},
	"status":          {"properties.status", kindStatus},
}

// BuildDetailUpdate validates a partial details document and converts it to a $set document.
func BuildDetailUpdate(details map[string]interface{}) (bson.M, error) {
	set := bson.M{}
	for key, raw := range details {
		field, ok := updatableDetails[key]
		if !ok {
			return nil, fmt.Errorf("%w: field '%s' cannot be updated", ErrInvalidInput, key)
		}
		value, err := convertDetail(key, field.kind, raw)
		if err != nil {
			return nil, err
		}
		set[field.bsonKey] = value
	}
	return set, nil
}

func convertDetail(key string, kind detailKind, raw interface{}) (interface{}, error) {
	bad := func(want string) error {
		return fmt.Errorf("%w: %s must be %s", ErrInvalidInput, key, want)
	}
	switch kind {
	case kindString:
		v, ok := raw.(string)
		if !ok {
			return nil, bad("a string")
		}
		v = strings.TrimSpace(v)
		if key == "address" && v == "" {
			return nil, bad("non-empty")
		}
		return v, nil
	case kindNumber, kindInt:
		v, ok := raw.(float64)
		if !ok || v < 0 {
			return nil, bad("a non-negative number")
		}
		if kind == kindInt {
			if v != float64(int(v)) {
				return nil, bad("a whole number")
			}
			return int(v), nil
		}
		return v, nil
	case kindStringList:
		items, ok := raw.([]interface{})
		if !ok {
			return nil, bad("a list of strings")
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			str, ok := it.(string)
			if !ok {
				return nil, bad("a list of strings")
			}
			out = append(out, str)
		}
		return out, nil
	case kindTransaction:
		v, _ := raw.(string)
		if !models.TransactionType(v).Valid() {
			return nil, ErrInvalidStatus
		}
		return v, nil
	case kindStatus:
		v, _ := raw.(string)
		if !models.PropertyStatus(v).Valid() {
			return nil, ErrInvalidStatus
		}
		return v, nil
	}
	return nil, bad("valid")
}

func (s *propertyService) Update(ctx context.Context, id, agentID primitive.ObjectID, details map[string]interface{}, geometry *models.GeoJSON) (*models.Property, error) {
	set, err := BuildDetailUpdate(details)
	if err != nil {
		return nil, err
	}
	if geometry != nil {
		if err := geometry.Validate(); err != nil {
			return nil, err
		}
		set["geometry"] = geometry
	}
	if len(set) == 0 {
		return nil, ErrNoFields
	}
	if _, err := s.CheckOwner(ctx, id, agentID); err != nil {
		return nil, err
	}
	set["updated_at"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Property
	err = s.properties().FindOneAndUpdate(ctx, bson.M{"_id": id, "agent_id": agentID}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update property %s: %w", id.Hex(), err)
	}
	s.invalidate(ctx)
	return &updated, nil
}

func (s *propertyService) Delete(ctx context.Context, id, agentID primitive.ObjectID) error {
	if _, err := s.CheckOwner(ctx, id, agentID); err != nil {
		return err
	}
	res, err := s.properties().DeleteOne(ctx, bson.M{"_id": id, "agent_id": agentID})
	if err != nil {
		return fmt.Errorf("failed to delete property %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	s.invalidate(ctx)

	_, err = s.db.Collection(db.UsersCollection).UpdateMany(ctx,
		bson.M{"saved_homes": id},
		bson.M{"$pull": bson.M{"saved_homes": id}},
	)
	if err != nil {
		log.Printf("Failed to remove deleted property %s from saved homes: %v", id.Hex(), err)
	}
	return nil
}

// AddPhotos appends photo URLs and sets the primary photo when the property has none.
func (s *propertyService) AddPhotos(ctx context.Context, id, agentID primitive.ObjectID, urls []string) (*models.Property, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no photos given", ErrInvalidInput)
	}
	p, err := s.CheckOwner(ctx, id, agentID)
	if err != nil {
		return nil, err
	}
	if limit := s.maxPhotos(); len(p.Properties.Photos)+len(urls) > limit {
		return nil, fmt.Errorf("%w: a property can have at most %d photos", ErrInvalidInput, limit)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"properties.photos": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$properties.photos", bson.A{}}},
				urls,
			}},
			"properties.photo": bson.M{"$cond": bson.A{
				bson.M{"$gt": bson.A{bson.M{"$strLenCP": bson.M{"$ifNull": bson.A{"$properties.photo", ""}}}, 0}},
				"$properties.photo",
				urls[0],
			}},
			"updated_at": time.Now().UTC(),
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Property
	err = s.properties().FindOneAndUpdate(ctx, bson.M{"_id": id, "agent_id": agentID}, pipeline, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to add photos to property %s: %w", id.Hex(), err)
	}
	s.invalidate(ctx)
	return &updated, nil
}

func (s *propertyService) maxPhotos() int {
	if s.cfg != nil && s.cfg.MaxPropertyPhotos > 0 {
		return s.cfg.MaxPropertyPhotos
	}
	return 10
}

func (s *propertyService) ListByAgent(ctx context.Context, agentID primitive.ObjectID) ([]models.Property, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.properties().Find(ctx, bson.M{"agent_id": agentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties for agent %s: %w", agentID.Hex(), err)
	}
	defer cursor.Close(ctx)

	properties := []models.Property{}
	if err := cursor.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("failed to decode properties for agent %s: %w", agentID.Hex(), err)
	}
	return properties, nil
}

// Search runs a filtered, paginated property query, served from the search cache when possible.
func (s *propertyService) Search(ctx context.Context, q PropertyQuery) (*models.PropertyPage, error) {
	q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	params := q.CacheParams()
	var cached models.PropertyPage
	gen, hit, err := s.cache.Get(ctx, params, &cached)
	if err != nil {
		log.Printf("Property search cache read failed: %v", err)
	} else if hit {
		return &cached, nil
	}

	filter := q.Filter()
	opts := options.Find().
		SetSort(q.SortDoc()).
		SetSkip(int64((q.Page - 1) * q.Limit)).
		SetLimit(int64(q.Limit))
	if q.Sort == SortRelevance {
		opts.SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}})
	}

	cursor, err := s.properties().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("property search failed: %w", err)
	}
	defer cursor.Close(ctx)

	page := &models.PropertyPage{Data: []models.Property{}, Page: q.Page, Limit: q.Limit}
	if err := cursor.All(ctx, &page.Data); err != nil {
		return nil, fmt.Errorf("failed to decode property search results: %w", err)
	}
	page.Total, err = s.properties().CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count property search results: %w", err)
	}

	if err := s.cache.Set(ctx, gen, params, page); err != nil {
		log.Printf("Property search cache write failed: %v", err)
	}
	return page, nil
}
