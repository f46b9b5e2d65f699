package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"greendrake/realty/internal/api/middleware"
	"greendrake/realty/internal/models"
	"greendrake/realty/internal/services"
	"greendrake/realty/internal/storage"
)

var badRequestErrors = []error{
	services.ErrEmailExists,
	services.ErrInterestExists,
	services.ErrPropertyHasNoAgent,
	services.ErrInvalidStatus,
	services.ErrNoFields,
	services.ErrInvalidInput,
	services.ErrWeakPassword,
	services.ErrWrongPassword,
	services.ErrNoGeocoder,
	models.ErrInvalidCoordinates,
	storage.ErrImageTooLarge,
	storage.ErrUnsupportedImage,
}

// respondError maps domain errors to status codes. resource names the entity in 404 messages.
func respondError(c *gin.Context, err error, resource string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": resource + " not found"})
		return
	case errors.Is(err, services.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// bindingError renders validator failures as a field list instead of the raw validator text.
func bindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
}

// paramObjectID parses a path parameter, answering 400 when it is not an ObjectID.
func paramObjectID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " format"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// currentUserID returns the id set by the auth middleware, answering 401 when absent.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return primitive.NilObjectID, false
	}
	return id, true
}
