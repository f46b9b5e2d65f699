package handlers

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"greendrake/realty/internal/config"
	"greendrake/realty/internal/models"
	"greendrake/realty/internal/services"
	"greendrake/realty/internal/storage"
)

const defaultRadiusKM = 10

// PropertyHandler serves listing search and agent listing management.
type PropertyHandler struct {
	cfg             *config.Config
	propertyService services.IPropertyService
	imageStorage    storage.IImageStorage
}

func NewPropertyHandler(cfg *config.Config, propertyService services.IPropertyService, imageStorage storage.IImageStorage) *PropertyHandler {
	return &PropertyHandler{
		cfg:             cfg,
		propertyService: propertyService,
		imageStorage:    imageStorage,
	}
}

type createPropertyRequest struct {
	Properties models.PropertyDetails `json:"properties" binding:"required"`
	Geometry   *models.GeoJSON        `json:"geometry"`
}

type updatePropertyRequest struct {
	Properties map[string]interface{} `json:"properties"`
	Geometry   *models.GeoJSON        `json:"geometry"`
}

func invalidParam(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", services.ErrInvalidInput, name, err)
}

// parsePropertyQuery reads the search parameters of GET /properties.
func parsePropertyQuery(c *gin.Context) (services.PropertyQuery, error) {
	q := services.PropertyQuery{
		Text:            strings.TrimSpace(c.Query("q")),
		City:            strings.TrimSpace(c.Query("city")),
		PropertyType:    c.Query("propertyType"),
		TransactionType: models.TransactionType(c.Query("transactionType")),
		Status:          models.PropertyStatus(c.Query("status")),
		Sort:            c.Query("sort"),
	}

	var err error
	if v := c.Query("bounds"); v != "" {
		if q.Bounds, err = models.ParseBounds(v); err != nil {
			return q, invalidParam("bounds", err)
		}
	}
	if v := c.Query("near"); v != "" {
		if q.Near, err = models.ParsePoint(v); err != nil {
			return q, invalidParam("near", err)
		}
		q.RadiusKM = defaultRadiusKM
	}
	if v := c.Query("radiusKm"); v != "" {
		if q.RadiusKM, err = strconv.ParseFloat(v, 64); err != nil {
			return q, invalidParam("radiusKm", err)
		}
	}
	if q.MinPrice, err = optionalFloat(c, "minPrice"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = optionalFloat(c, "maxPrice"); err != nil {
		return q, err
	}
	if q.MinBaths, err = optionalFloat(c, "baths"); err != nil {
		return q, err
	}
	if v := c.Query("beds"); v != "" {
		beds, err := strconv.Atoi(v)
		if err != nil {
			return q, invalidParam("beds", err)
		}
		q.MinBeds = &beds
	}
	if v := c.Query("page"); v != "" {
		if q.Page, err = strconv.Atoi(v); err != nil {
			return q, invalidParam("page", err)
		}
	}
	if v := c.Query("limit"); v != "" {
		if q.Limit, err = strconv.Atoi(v); err != nil {
			return q, invalidParam("limit", err)
		}
	}
	return q, nil
}

func optionalFloat(c *gin.Context, name string) (*float64, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, invalidParam(name, err)
	}
	return &f, nil
}

// Search handles GET /properties
func (h *PropertyHandler) Search(c *gin.Context) {
	q, err := parsePropertyQuery(c)
	if err != nil {
		respondError(c, err, "Property")
		return
	}
	page, err := h.propertyService.Search(c.Request.Context(), q)
	if err != nil {
		respondError(c, err, "Property")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetByID handles GET /properties/:id
func (h *PropertyHandler) GetByID(c *gin.Context) {
	id, ok := paramObjectID(c, "id")
	if !ok {
		return
	}
	property, err := h.propertyService.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Property")
		return
	}
	c.JSON(http.StatusOK, property)
}

// Create handles POST /properties
func (h *PropertyHandler) Create(c *gin.Context) {
	agentID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}
	property, err := h.propertyService.Create(c.Request.Context(), agentID, req.Properties, req.Geometry)
	if err != nil {
		respondError(c, err, "Property")
		return
	}
	c.JSON(http.StatusCreated, property)
}

// Update handles PUT /properties/:id
func (h *PropertyHandler) Update(c *gin.Context) {
	agentID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramObjectID(c, "id")
	if !ok {
		return
	}
	var req updatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}
	property, err := h.propertyService.Update(c.Request.Context(), id, agentID, req.Properties, req.Geometry)
	if err != nil {
		respondError(c, err, "Property")
		return
	}
	c.JSON(http.StatusOK, property)
}

// Delete handles DELETE /properties/:id
func (h *PropertyHandler) Delete(c *gin.Context) {
	agentID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramObjectID(c, "id")
	if !ok {
		return
	}
	if err := h.propertyService.Delete(c.Request.Context(), id, agentID); err != nil {
		respondError(c, err, "Property")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Property deleted"})
}

// ListMine handles GET /properties/agent/listings
func (h *PropertyHandler) ListMine(c *gin.Context) {
	agentID, ok := currentUserID(c)
	if !ok {
		return
	}
	properties, err := h.propertyService.ListByAgent(c.Request.Context(), agentID)
	if err != nil {
		respondError(c, err, "Property")
		return
	}
	if properties == nil {
		properties = []models.Property{}
	}
	c.JSON(http.StatusOK, properties)
}

func (h *PropertyHandler) maxImageBytes() int64 {
	return int64(h.cfg.ImageMaxSizeMB) << 20
}

func (h *PropertyHandler) maxPhotos() int {
	if h.cfg.MaxPropertyPhotos > 0 {
		return h.cfg.MaxPropertyPhotos
	}
	return 10
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// UploadPhotos handles POST /properties/:id/photos (multipart field "photos").
// All images are validated and normalised first, then stored, then appended to the listing.
func (h *PropertyHandler) UploadPhotos(c *gin.Context) {
	agentID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramObjectID(c, "id")
	if !ok {
		return
	}
	existing, err := h.propertyService.CheckOwner(c.Request.Context(), id, agentID)
	if err != nil {
		respondError(c, err, "Property")
		return
	}
	if h.imageStorage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Photo storage is not configured"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expected multipart form with photos"})
		return
	}
	files := form.File["photos"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No photos uploaded"})
		return
	}
	if len(existing.Properties.Photos)+len(files) > h.maxPhotos() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("A property can hold at most %d photos (%d already)",
			h.maxPhotos(), len(existing.Properties.Photos))})
		return
	}

	// Every file is checked before the first upload so a rejected batch stores nothing.
	maxBytes := h.maxImageBytes()
	normalized := make([][]byte, 0, len(files))
	for _, fh := range files {
		if maxBytes > 0 && fh.Size > maxBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", fh.Filename, storage.ErrImageTooLarge)})
			return
		}
		data, err := readUpload(fh)
		if err != nil {
			respondError(c, err, "Property")
			return
		}
		img, err := storage.NormalizeImage(data, h.cfg.ImageMaxDimension, maxBytes)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", fh.Filename, err)})
			return
		}
		normalized = append(normalized, img)
	}

	urls := make([]string, 0, len(normalized))
	for _, img := range normalized {
		url, err := h.imageStorage.Upload(c.Request.Context(), id.Hex(), uuid.NewString(), img, "image/jpeg")
		if err != nil {
			log.Printf("Photo upload for property %s failed after %d of %d files: %v", id.Hex(), len(urls), len(normalized), err)
			respondError(c, err, "Property")
			return
		}
		urls = append(urls, url)
	}

	property, err := h.propertyService.AddPhotos(c.Request.Context(), id, agentID, urls)
	if err != nil {
		respondError(c, err, "Property")
		return
	}
	c.JSON(http.StatusOK, property)
}
