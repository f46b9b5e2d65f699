package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"greendrake/realty/internal/models"
	"greendrake/realty/internal/services"
	"greendrake/realty/internal/tasks"
)

// InterestHandler serves client leads on properties.
type InterestHandler struct {
	interestService services.IInterestService
	propertyService services.IPropertyService
	userService     services.IUserService
	taskClient      tasks.Enqueuer
}

func NewInterestHandler(interestService services.IInterestService, propertyService services.IPropertyService, userService services.IUserService, taskClient tasks.Enqueuer) *InterestHandler {
	return &InterestHandler{
		interestService: interestService,
		propertyService: propertyService,
		userService:     userService,
		taskClient:      taskClient,
	}
}

type interestRequest struct {
	Message string `json:"message" binding:"max=2000"`
}

type interestStatusRequest struct {
	Status models.InterestStatus `json:"status" binding:"required"`
}

// Create handles POST /properties/:id/interest
func (h *InterestHandler) Create(c *gin.Context) {
	clientID, ok := currentUserID(c)
	if !ok {
		return
	}
	propertyID, ok := paramObjectID(c, "id")
	if !ok {
		return
	}
	var req interestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	ctx := c.Request.Context()
	interest, property, err := h.interestService.Create(ctx, clientID, propertyID, req.Message)
	if err != nil {
		respondError(c, err, "Property")
		return
	}

	h.notifyAgent(ctx, interest, property)
	c.JSON(http.StatusCreated, interest)
}

func (h *InterestHandler) notifyAgent(ctx context.Context, interest *models.Interest, property *models.Property) {
	agent, err := h.userService.FindByID(ctx, interest.AgentID)
	if err != nil {
		log.Printf("Not notifying agent %s about interest %s: %v", interest.AgentID.Hex(), interest.ID.Hex(), err)
		return
	}
	client, err := h.userService.FindByID(ctx, interest.ClientID)
	if err != nil {
		log.Printf("Not notifying agent about interest %s, client lookup failed: %v", interest.ID.Hex(), err)
		return
	}
	notify(ctx, h.taskClient, tasks.QueueDefault, agent.Email, services.TemplateNewInterest, map[string]interface{}{
		"address":      property.Properties.Address,
		"agent_name":   agent.Name,
		"client_name":  client.Name,
		"client_email": client.Email,
		"message":      interest.Message,
	})
}

// ListForAgent handles GET /properties/agent/interests
func (h *InterestHandler) ListForAgent(c *gin.Context) {
	agentID, ok := currentUserID(c)
	if !ok {
		return
	}
	views, err := h.interestService.ListForAgent(c.Request.Context(), agentID, models.InterestStatus(c.Query("status")))
	if err != nil {
		respondError(c, err, "Interest")
		return
	}
	if views == nil {
		views = []models.InterestView{}
	}
	c.JSON(http.StatusOK, views)
}

// ListMine handles GET /properties/interests/mine
func (h *InterestHandler) ListMine(c *gin.Context) {
	clientID, ok := currentUserID(c)
	if !ok {
		return
	}
	views, err := h.interestService.ListForClient(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err, "Interest")
		return
	}
	if views == nil {
		views = []models.InterestView{}
	}
	c.JSON(http.StatusOK, views)
}

// UpdateStatus handles PATCH /properties/interests/:interestId/status
func (h *InterestHandler) UpdateStatus(c *gin.Context) {
	agentID, ok := currentUserID(c)
	if !ok {
		return
	}
	interestID, ok := paramObjectID(c, "interestId")
	if !ok {
		return
	}
	var req interestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	ctx := c.Request.Context()
	interest, err := h.interestService.UpdateStatus(ctx, interestID, agentID, req.Status)
	if err != nil {
		respondError(c, err, "Interest")
		return
	}

	h.notifyClient(ctx, interest)
	c.JSON(http.StatusOK, interest)
}

func (h *InterestHandler) notifyClient(ctx context.Context, interest *models.Interest) {
	client, err := h.userService.FindByID(ctx, interest.ClientID)
	if err != nil {
		log.Printf("Not notifying client %s about interest %s: %v", interest.ClientID.Hex(), interest.ID.Hex(), err)
		return
	}
	address := ""
	if property, err := h.propertyService.FindByID(ctx, interest.PropertyID); err == nil {
		address = property.Properties.Address
	}
	notify(ctx, h.taskClient, tasks.QueueDefault, client.Email, services.TemplateInterestStatus, map[string]interface{}{
		"address":     address,
		"client_name": client.Name,
		"status":      string(interest.Status),
	})
}
