package prefs

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/dto"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/shared"
)

type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/profiles/:id", h.Get)
	g.PUT("/profiles/:id", h.Update)
	g.DELETE("/profiles/:id", h.Delete)
}

func toResponse(p *Preferences) dto.ProfileResponse {
	rooms := []string(p.RecentRooms)
	if rooms == nil {
		rooms = []string{}
	}
	return dto.ProfileResponse{
		ProfileID:       p.ProfileID,
		DisplayName:     p.DisplayName,
		Theme:           p.Theme,
		TrackerDomain:   p.TrackerDomain,
		TrackerEmail:    p.TrackerEmail,
		HasTrackerToken: p.TrackerToken != "",
		RecentRooms:     rooms,
		UpdatedAt:       p.UpdatedAt,
	}
}

// @Summary      Get profile preferences
// @Description  Returns the stored preferences of a profile. The tracker token is never returned.
// @Tags         profiles
// @Produce      json
// @Param        id   path      string  true  "Profile ID"
// @Success      200  {object}  dto.ProfileResponse
// @Failure      404  {object}  shared.APIError
// @Router       /profiles/{id} [get]
func (h *Handler) Get(c echo.Context) error {
	p, err := h.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("profile_not_found", "profile not found")
		}
		h.logger.Error("failed to get profile", "error", err, "profile_id", c.Param("id"))
		return shared.InternalError("fetch_failed", "failed to fetch profile")
	}
	return c.JSON(http.StatusOK, toResponse(p))
}

// @Summary      Update profile preferences
// @Description  Creates the profile if needed and applies the given fields
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Profile ID"
// @Param        request  body      dto.UpdateProfileRequest  true  "Fields to change"
// @Success      200  {object}  dto.ProfileResponse
// @Failure      400  {object}  shared.APIError
// @Failure      500  {object}  shared.APIError
// @Router       /profiles/{id} [put]
func (h *Handler) Update(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return shared.BadRequest("invalid_profile", "profile id is required")
	}

	var req dto.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	ctx := c.Request().Context()
	p, err := h.store.GetOrCreate(ctx, id)
	if err != nil {
		h.logger.Error("failed to load profile", "error", err, "profile_id", id)
		return shared.InternalError("fetch_failed", "failed to fetch profile")
	}

	if req.Theme != nil {
		if err := p.SetTheme(*req.Theme); err != nil {
			return shared.NewAPIError("invalid_request", "validation failed").
				WithDetails([]dto.ValidationError{{Field: "theme", Message: err.Error()}}).
				ToHTTP(http.StatusBadRequest)
		}
	}
	if req.RecentRoom != nil {
		room, err := shared.NormalizeRoomID(*req.RecentRoom)
		if err != nil {
			return shared.NewAPIError("invalid_request", "validation failed").
				WithDetails([]dto.ValidationError{{Field: "recent_room", Message: err.Error()}}).
				ToHTTP(http.StatusBadRequest)
		}
		p.RememberRoom(room)
	}
	if req.DisplayName != nil {
		p.SetDisplayName(*req.DisplayName)
	}

	creds := p.TrackerCredentials()
	if req.TrackerDomain != nil {
		creds.Domain = *req.TrackerDomain
	}
	if req.TrackerEmail != nil {
		creds.Email = *req.TrackerEmail
	}
	if req.TrackerToken != nil {
		creds.Token = *req.TrackerToken
	}
	p.SetTrackerCredentials(creds)

	if err := h.store.Save(ctx, p); err != nil {
		h.logger.Error("failed to save profile", "error", err, "profile_id", id)
		return shared.InternalError("update_failed", "failed to update profile")
	}

	return c.JSON(http.StatusOK, toResponse(p))
}

// @Summary      Delete profile preferences
// @Tags         profiles
// @Param        id   path  string  true  "Profile ID"
// @Success      204  "No Content"
// @Failure      404  {object}  shared.APIError
// @Router       /profiles/{id} [delete]
func (h *Handler) Delete(c echo.Context) error {
	if err := h.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("profile_not_found", "profile not found")
		}
		h.logger.Error("failed to delete profile", "error", err, "profile_id", c.Param("id"))
		return shared.InternalError("delete_failed", "failed to delete profile")
	}
	return c.NoContent(http.StatusNoContent)
}
