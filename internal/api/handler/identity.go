package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
)

// EnrollmentService interface for the service
type EnrollmentService interface {
	Enroll(ctx context.Context, name string, images [][]byte, rawLevels []string) (*domain.EnrollmentResult, error)
	UpdateIdentity(ctx context.Context, id int64, name string, rawLevels []string, images [][]byte) error
	DeleteIdentity(ctx context.Context, id int64) error
}

// IdentityHandler handles identity and permission requests
type IdentityHandler struct {
	service        EnrollmentService
	identityRepo   repository.IdentityRepositoryInterface
	permissionRepo repository.PermissionRepositoryInterface
	logger         *slog.Logger
}

// NewIdentityHandler creates a new IdentityHandler instance
func NewIdentityHandler(
	service EnrollmentService,
	identityRepo repository.IdentityRepositoryInterface,
	permissionRepo repository.PermissionRepositoryInterface,
	logger *slog.Logger,
) *IdentityHandler {
	return &IdentityHandler{
		service:        service,
		identityRepo:   identityRepo,
		permissionRepo: permissionRepo,
		logger:         logger,
	}
}

// EnrollResponse response for enroll endpoint
type EnrollResponse struct {
	IdentityID int64    `json:"identity_id"`
	Name       string   `json:"name"`
	Faces      int      `json:"faces"`
	Levels     []string `json:"levels"`
	Trained    bool     `json:"trained"`
}

// IdentityResponse response for identity read endpoints
type IdentityResponse struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Levels    []string `json:"levels"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// PermissionResponse response for permission list endpoint
type PermissionResponse struct {
	ID         int64  `json:"id"`
	IdentityID int64  `json:"identity_id"`
	Level      string `json:"level"`
	CreatedAt  string `json:"created_at"`
}

// Enroll POST /v1/identities - enroll a new identity
func (h *IdentityHandler) Enroll(c *fiber.Ctx) error {
	// 1. Extract name from form
	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return domain.ErrValidation.WithError(errors.New("name is required"))
	}

	// 2. Extract permission levels from form
	form, err := c.MultipartForm()
	if err != nil {
		return domain.ErrValidation.WithError(err)
	}
	levels := form.Value["permissions"]

	// 3. Extract and validate images
	images, err := extractImages(c)
	if err != nil {
		return fmt.Errorf("enroll identity: %w", err)
	}

	// 4. Call service to enroll
	result, err := h.service.Enroll(c.Context(), name, images, levels)
	if err != nil {
		return err
	}

	// 5. Return response
	return c.Status(fiber.StatusCreated).JSON(EnrollResponse{
		IdentityID: result.IdentityID,
		Name:       result.Name,
		Faces:      result.Faces,
		Levels:     levelStrings(result.Levels),
		Trained:    result.Trained,
	})
}

// Get GET /v1/identities/:id - fetch an identity with its levels
func (h *IdentityHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	identity, err := h.identityRepo.GetByID(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(h.identityResponse(c.Context(), identity))
}

// GetByName GET /v1/identities/by-name/:name - fetch an identity by display name
func (h *IdentityHandler) GetByName(c *fiber.Ctx) error {
	raw, err := urlDecodeParam(c, "name")
	if err != nil {
		return domain.ErrValidation.WithError(err)
	}
	if !domain.ValidName(raw) {
		return domain.ErrValidation.WithError(errors.New("name must contain only letters and spaces"))
	}

	identity, err := h.identityRepo.GetByName(c.Context(), domain.FormatName(raw))
	if err != nil {
		return err
	}

	return c.JSON(h.identityResponse(c.Context(), identity))
}

// Update PATCH /v1/identities/:id - partially update name, levels and faces
func (h *IdentityHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(c.FormValue("name"))

	var levels []string
	var images [][]byte
	if form, err := c.MultipartForm(); err == nil {
		levels = form.Value["permissions"]
		if len(form.File["images"]) > 0 || len(form.File["image"]) > 0 {
			images, err = extractImages(c)
			if err != nil {
				return fmt.Errorf("update identity: %w", err)
			}
		}
	}

	if name == "" && len(levels) == 0 && len(images) == 0 {
		return domain.ErrValidation.WithError(errors.New("nothing to update"))
	}

	if err := h.service.UpdateIdentity(c.Context(), id, name, levels, images); err != nil {
		return err
	}

	identity, err := h.identityRepo.GetByID(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(h.identityResponse(c.Context(), identity))
}

// Delete DELETE /v1/identities/:id - delete identity (LGPD)
func (h *IdentityHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteIdentity(c.Context(), id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ListPermissions GET /v1/identities/:id/permissions
func (h *IdentityHandler) ListPermissions(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if _, err := h.identityRepo.GetByID(c.Context(), id); err != nil {
		return err
	}

	permissions, err := h.permissionRepo.ListByIdentity(c.Context(), id)
	if err != nil {
		return err
	}

	response := make([]PermissionResponse, 0, len(permissions))
	for _, p := range permissions {
		response = append(response, PermissionResponse{
			ID:         p.ID,
			IdentityID: p.IdentityID,
			Level:      string(p.Level),
			CreatedAt:  p.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	return c.JSON(response)
}

// GrantPermission POST /v1/identities/:id/permissions - grant one level (idempotent)
func (h *IdentityHandler) GrantPermission(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	level, err := domain.ParseLevel(c.FormValue("level"))
	if err != nil {
		return err
	}

	if _, err := h.identityRepo.GetByID(c.Context(), id); err != nil {
		return err
	}

	if err := h.permissionRepo.Add(c.Context(), id, level); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RevokePermission DELETE /v1/identities/:id/permissions/:level
func (h *IdentityHandler) RevokePermission(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	level, err := domain.ParseLevel(c.Params("level"))
	if err != nil {
		return err
	}

	if err := h.permissionRepo.RevokeLevel(c.Context(), id, level); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RevokeAllPermissions DELETE /v1/identities/:id/permissions
func (h *IdentityHandler) RevokeAllPermissions(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.permissionRepo.RevokeAll(c.Context(), id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *IdentityHandler) identityResponse(ctx context.Context, identity *domain.Identity) IdentityResponse {
	levels := []string{}
	permissions, err := h.permissionRepo.ListByIdentity(ctx, identity.ID)
	if err != nil {
		h.logger.Warn("failed to list permissions", "identity_id", identity.ID, "error", err)
	}
	for _, p := range permissions {
		levels = append(levels, string(p.Level))
	}

	return IdentityResponse{
		ID:        identity.ID,
		Name:      identity.Name,
		Levels:    levels,
		CreatedAt: identity.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: identity.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrValidation.WithError(errors.New("id must be a positive integer"))
	}
	return id, nil
}

func urlDecodeParam(c *fiber.Ctx, name string) (string, error) {
	return url.PathUnescape(c.Params(name))
}

func levelStrings(levels []domain.Level) []string {
	out := make([]string, 0, len(levels))
	for _, level := range levels {
		out = append(out, string(level))
	}
	return out
}
