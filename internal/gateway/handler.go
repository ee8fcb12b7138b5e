package gateway

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/shared"
)

const maxNameLength = 64

type Handler struct {
	hub    *Hub
	logger *slog.Logger
}

func NewHandler(hub *Hub, logger *slog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/rooms/:room/ws", h.HandleRoomSocket)
	g.GET("/rooms/:room/presence", h.GetPresence)
}

// HandleRoomSocket godoc
// @Summary      Join a room
// @Description  Upgrades to a WebSocket carrying broadcast, track and leave frames for the room
// @Tags         rooms
// @Param        room            path   string  true   "Room code"
// @Param        participant_id  query  string  true   "Participant id"
// @Param        name            query  string  false  "Display name"
// @Success      101
// @Failure      400  {object}  shared.APIError
// @Router       /rooms/{room}/ws [get]
func (h *Handler) HandleRoomSocket(c echo.Context) error {
	roomID, err := shared.NormalizeRoomID(c.Param("room"))
	if err != nil {
		return shared.BadRequest("invalid_room", err.Error())
	}

	participantID := strings.TrimSpace(c.QueryParam("participant_id"))
	if participantID == "" {
		return shared.BadRequest("missing_participant", "participant_id is required")
	}

	name := displayName(c.QueryParam("name"))

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return err
	}

	self := protocol.Presence{ParticipantID: participantID, DisplayName: name}
	if err := h.hub.Serve(c.Request().Context(), ws, roomID, self); err != nil {
		h.logger.Warn("room connection ended with error", "room_id", roomID, "participant_id", participantID, "error", err)
	}
	return nil
}

// GetPresence godoc
// @Summary      Room presence
// @Description  Returns the participants currently connected to the room
// @Tags         rooms
// @Produce      json
// @Param        room  path  string  true  "Room code"
// @Success      200  {object}  protocol.Snapshot
// @Failure      400  {object}  shared.APIError
// @Failure      500  {object}  shared.APIError
// @Router       /rooms/{room}/presence [get]
func (h *Handler) GetPresence(c echo.Context) error {
	roomID, err := shared.NormalizeRoomID(c.Param("room"))
	if err != nil {
		return shared.BadRequest("invalid_room", err.Error())
	}

	snap, err := h.hub.Snapshot(c.Request().Context(), roomID)
	if err != nil {
		h.logger.Error("failed to read presence", "error", err, "room_id", roomID)
		return shared.InternalError("presence_failed", "failed to read room presence")
	}
	return c.JSON(http.StatusOK, snap)
}

// displayName trims name, drops invalid UTF-8 and caps it at maxNameLength
// runes.
func displayName(name string) string {
	name = strings.ToValidUTF8(strings.TrimSpace(name), "")
	if r := []rune(name); len(r) > maxNameLength {
		name = strings.TrimSpace(string(r[:maxNameLength]))
	}
	return name
}
