package tracker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/shared"
)

const (
	HeaderDomain = "X-Jira-Domain"
	HeaderEmail  = "X-Jira-Email"
	HeaderToken  = "X-Jira-Token"
)

type searcher interface {
	Search(ctx context.Context, creds Credentials, jql string) ([]protocol.Ticket, error)
}

type Handler struct {
	client searcher
	logger *slog.Logger
}

func NewHandler(client *Client, logger *slog.Logger) *Handler {
	return &Handler{
		client: client,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/tracker/search", h.Search)
}

type SearchRequest struct {
	JQL string `json:"jql" example:"project = POKER order by created DESC"`
}

type SearchResponse struct {
	Issues []protocol.Ticket `json:"issues"`
}

// Search godoc
// @Summary      Search tracker issues
// @Description  Proxies a JQL search to Jira using the caller's credentials
// @Tags         tracker
// @Accept       json
// @Produce      json
// @Param        X-Jira-Domain  header  string         true  "Jira domain"
// @Param        X-Jira-Email   header  string         true  "Jira account email"
// @Param        X-Jira-Token   header  string         true  "Jira API token"
// @Param        request        body    SearchRequest  false "JQL query"
// @Success      200  {object}  SearchResponse
// @Failure      400  {object}  shared.APIError
// @Router       /tracker/search [post]
func (h *Handler) Search(c echo.Context) error {
	var req SearchRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return shared.BadRequest("invalid_request", "invalid request body")
		}
	}

	creds := Credentials{
		Domain: c.Request().Header.Get(HeaderDomain),
		Email:  c.Request().Header.Get(HeaderEmail),
		Token:  c.Request().Header.Get(HeaderToken),
	}

	issues, err := h.client.Search(c.Request().Context(), creds, req.JQL)
	if err != nil {
		if errors.Is(err, ErrMissingCredentials) {
			return shared.BadRequest("missing_credentials", "Missing Jira credentials headers")
		}
		if errors.Is(err, ErrDomainNotAllowed) {
			return shared.BadRequest("invalid_domain", err.Error())
		}
		h.logger.Warn("tracker search failed", "domain", creds.Domain, "error", err)
		return shared.BadRequest("search_failed", err.Error())
	}

	return c.JSON(http.StatusOK, SearchResponse{Issues: issues})
}
