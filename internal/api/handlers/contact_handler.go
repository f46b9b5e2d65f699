package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"greendrake/realty/internal/config"
	"greendrake/realty/internal/models"
	"greendrake/realty/internal/services"
	"greendrake/realty/internal/tasks"
)

// ContactHandler serves the public contact form and its agent inbox.
type ContactHandler struct {
	cfg            *config.Config
	contactService services.IContactService
	taskClient     tasks.Enqueuer
}

func NewContactHandler(cfg *config.Config, contactService services.IContactService, taskClient tasks.Enqueuer) *ContactHandler {
	return &ContactHandler{cfg: cfg, contactService: contactService, taskClient: taskClient}
}

type contactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message" binding:"required"`
}

type contactStatusRequest struct {
	Status models.ContactStatus `json:"status" binding:"required"`
}

// Submit handles POST /contact
func (h *ContactHandler) Submit(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}
	contact, err := h.contactService.Create(c.Request.Context(), services.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		respondError(c, err, "Contact")
		return
	}

	notify(c.Request.Context(), h.taskClient, tasks.QueueDefault, contact.Email, services.TemplateContactReceived, map[string]interface{}{
		"app_name": h.cfg.AppName,
		"name":     contact.Name,
		"message":  contact.Message,
	})
	c.JSON(http.StatusCreated, contact)
}

// List handles GET /contacts
func (h *ContactHandler) List(c *gin.Context) {
	contacts, err := h.contactService.List(c.Request.Context(), models.ContactStatus(c.Query("status")))
	if err != nil {
		respondError(c, err, "Contact")
		return
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	c.JSON(http.StatusOK, contacts)
}

// UpdateStatus handles PATCH /contacts/:id/status
func (h *ContactHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramObjectID(c, "id")
	if !ok {
		return
	}
	var req contactStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}
	contact, err := h.contactService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err, "Contact")
		return
	}
	c.JSON(http.StatusOK, contact)
}
