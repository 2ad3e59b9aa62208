package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
)

// AccessService interface for the decision engine
type AccessService interface {
	Decide(ctx context.Context, image []byte, rawLevel string) (*domain.Decision, error)
}

// AccessHandler handles access decisions and ledger reads
type AccessHandler struct {
	service    AccessService
	accessRepo repository.AccessRepositoryInterface
	logger     *slog.Logger
}

// NewAccessHandler creates a new AccessHandler instance
func NewAccessHandler(service AccessService, accessRepo repository.AccessRepositoryInterface, logger *slog.Logger) *AccessHandler {
	return &AccessHandler{
		service:    service,
		accessRepo: accessRepo,
		logger:     logger,
	}
}

// DecisionResponse response for the decide endpoint
type DecisionResponse struct {
	Granted         bool    `json:"granted"`
	IdentityID      int64   `json:"identity_id"`
	AccessRequestID int64   `json:"access_request_id"`
	Confidence      float64 `json:"confidence"`
}

// AccessRequestResponse response for access request reads
type AccessRequestResponse struct {
	ID            int64  `json:"id"`
	IdentityID    *int64 `json:"identity_id,omitempty"`
	RequiredLevel string `json:"required_level"`
	Outcome       string `json:"outcome"`
	CreatedAt     string `json:"created_at"`
}

// AccessLogResponse response for access log reads
type AccessLogResponse struct {
	ID              int64  `json:"id"`
	AccessRequestID int64  `json:"access_request_id"`
	Details         string `json:"details"`
	CreatedAt       string `json:"created_at"`
}

// Decide POST /v1/access - run one access attempt
func (h *AccessHandler) Decide(c *fiber.Ctx) error {
	// 1. Extract required level from form
	level := strings.TrimSpace(c.FormValue("level"))
	if level == "" {
		return domain.ErrValidation.WithError(errors.New("level is required"))
	}

	// 2. Extract and validate image
	imageBytes, err := extractImage(c)
	if err != nil {
		return fmt.Errorf("access decision: %w", err)
	}

	// 3. Call service to decide
	decision, err := h.service.Decide(c.Context(), imageBytes, level)
	if err != nil {
		return err
	}

	// 4. Return response
	return c.JSON(DecisionResponse{
		Granted:         decision.Granted,
		IdentityID:      decision.IdentityID,
		AccessRequestID: decision.AccessRequestID,
		Confidence:      decision.Confidence,
	})
}

// GetRequest GET /v1/access/requests/:id
func (h *AccessHandler) GetRequest(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	request, err := h.accessRepo.GetRequest(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(accessRequestResponse(request))
}

// ListRequests GET /v1/identities/:id/access-requests
func (h *AccessHandler) ListRequests(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	requests, err := h.accessRepo.ListRequestsByIdentity(c.Context(), id)
	if err != nil {
		return err
	}

	response := make([]AccessRequestResponse, 0, len(requests))
	for i := range requests {
		response = append(response, accessRequestResponse(&requests[i]))
	}
	return c.JSON(response)
}

// GetLog GET /v1/access/logs/:id
func (h *AccessHandler) GetLog(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	log, err := h.accessRepo.GetLog(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(accessLogResponse(log))
}

// ListLogs GET /v1/identities/:id/access-logs
func (h *AccessHandler) ListLogs(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	logs, err := h.accessRepo.ListLogsByIdentity(c.Context(), id)
	if err != nil {
		return err
	}

	response := make([]AccessLogResponse, 0, len(logs))
	for i := range logs {
		response = append(response, accessLogResponse(&logs[i]))
	}
	return c.JSON(response)
}

func accessRequestResponse(request *domain.AccessRequest) AccessRequestResponse {
	return AccessRequestResponse{
		ID:            request.ID,
		IdentityID:    request.IdentityID,
		RequiredLevel: string(request.RequiredLevel),
		Outcome:       string(request.Outcome),
		CreatedAt:     request.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func accessLogResponse(log *domain.AccessLog) AccessLogResponse {
	return AccessLogResponse{
		ID:              log.ID,
		AccessRequestID: log.AccessRequestID,
		Details:         log.Details,
		CreatedAt:       log.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
