package services

import (
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"

	"greendrake/realty/internal/models"
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	MaxSearchPage      = 10000
	earthRadiusKM      = 6378.1
)

// Sort orders accepted by property search.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRelevance = "relevance"
)

// PropertyQuery is a parsed property search.
type PropertyQuery struct {
	Text            string
	Bounds          *models.Bounds
	Near            *models.GeoJSON
	RadiusKM        float64
	City            string
	PropertyType    string
	TransactionType models.TransactionType
	Status          models.PropertyStatus
	MinPrice        *float64
	MaxPrice        *float64
	MinBeds         *int
	MinBaths        *float64
	Sort            string
	Page            int
	Limit           int
}

// Normalize clamps paging and defaults the sort order.
func (q *PropertyQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultSearchLimit
	}
	if q.Limit > MaxSearchLimit {
		q.Limit = MaxSearchLimit
	}
	switch q.Sort {
	case SortPriceAsc, SortPriceDesc:
	case SortRelevance:
		if q.Text == "" {
			q.Sort = SortNewest
		}
	default:
		q.Sort = SortNewest
	}
}

// Validate rejects contradictory filters.
func (q *PropertyQuery) Validate() error {
	if q.Page > MaxSearchPage {
		return fmt.Errorf("%w: page cannot exceed %d", ErrInvalidInput, MaxSearchPage)
	}
	if q.Bounds != nil && q.Near != nil {
		return fmt.Errorf("%w: bounds and near cannot be combined", ErrInvalidInput)
	}
	if q.Near != nil && q.RadiusKM <= 0 {
		return fmt.Errorf("%w: radiusKm must be positive when near is given", ErrInvalidInput)
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return fmt.Errorf("%w: minPrice cannot exceed maxPrice", ErrInvalidInput)
	}
	if q.TransactionType != "" && !q.TransactionType.Valid() {
		return fmt.Errorf("%w: transactionType must be sale or rent", ErrInvalidInput)
	}
	if q.Status != "" && !q.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, q.Status)
	}
	return nil
}

// Filter builds the MongoDB filter for the query.
func (q *PropertyQuery) Filter() bson.M {
	filter := bson.M{}
	if q.Text != "" {
		filter["$text"] = bson.M{"$search": q.Text}
	}
	if q.Bounds != nil {
		filter["geometry"] = bson.M{"$geoWithin": bson.M{
			"$geometry": bson.M{"type": "Polygon", "coordinates": q.Bounds.Ring()},
		}}
	}
	if q.Near != nil {
		filter["geometry"] = bson.M{"$geoWithin": bson.M{
			"$centerSphere": bson.A{bson.A{q.Near.Lng(), q.Near.Lat()}, q.RadiusKM / earthRadiusKM},
		}}
	}
	if q.City != "" {
		filter["properties.city"] = bson.M{"$regex": "^" + regexpQuote(q.City) + "$", "$options": "i"}
	}
	if q.PropertyType != "" {
		filter["properties.property_type"] = q.PropertyType
	}
	if q.TransactionType != "" {
		filter["properties.transaction_type"] = q.TransactionType
	}
	if q.Status != "" {
		filter["properties.status"] = q.Status
	}
	price := bson.M{}
	if q.MinPrice != nil {
		price["$gte"] = *q.MinPrice
	}
	if q.MaxPrice != nil {
		price["$lte"] = *q.MaxPrice
	}
	if len(price) > 0 {
		filter["properties.price"] = price
	}
	if q.MinBeds != nil {
		filter["properties.beds"] = bson.M{"$gte": *q.MinBeds}
	}
	if q.MinBaths != nil {
		filter["properties.baths"] = bson.M{"$gte": *q.MinBaths}
	}
	return filter
}

// SortDoc returns the sort specification matching q.Sort.
func (q *PropertyQuery) SortDoc() bson.D {
	switch q.Sort {
	case SortPriceAsc:
		return bson.D{{Key: "properties.price", Value: 1}, {Key: "_id", Value: 1}}
	case SortPriceDesc:
		return bson.D{{Key: "properties.price", Value: -1}, {Key: "_id", Value: 1}}
	case SortRelevance:
		return bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}}
	default:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	}
}

// CacheParams returns the normalised parameters identifying the query in the search cache.
func (q *PropertyQuery) CacheParams() map[string]string {
	p := map[string]string{
		"q":               q.Text,
		"city":            q.City,
		"propertyType":    q.PropertyType,
		"transactionType": string(q.TransactionType),
		"status":          string(q.Status),
		"sort":            q.Sort,
		"page":            strconv.Itoa(q.Page),
		"limit":           strconv.Itoa(q.Limit),
	}
	if q.Bounds != nil {
		p["bounds"] = fmt.Sprintf("%g,%g,%g,%g", q.Bounds.SWLng, q.Bounds.SWLat, q.Bounds.NELng, q.Bounds.NELat)
	}
	if q.Near != nil {
		p["near"] = fmt.Sprintf("%g,%g", q.Near.Lng(), q.Near.Lat())
		p["radiusKm"] = strconv.FormatFloat(q.RadiusKM, 'g', -1, 64)
	}
	if q.MinPrice != nil {
		p["minPrice"] = strconv.FormatFloat(*q.MinPrice, 'g', -1, 64)
	}
	if q.MaxPrice != nil {
		p["maxPrice"] = strconv.FormatFloat(*q.MaxPrice, 'g', -1, 64)
	}
	if q.MinBeds != nil {
		p["beds"] = strconv.Itoa(*q.MinBeds)
	}
	if q.MinBaths != nil {
		p["baths"] = strconv.FormatFloat(*q.MinBaths, 'g', -1, 64)
	}
	return p
}

func regexpQuote(s string) string {
	const special = `\.+*?()|[]{}^$`
	out := make([]rune, 0, len(s))
	for _, r := range s {
		for _, sp := range special {
			if r == sp {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, r)
	}
	return string(out)
}
