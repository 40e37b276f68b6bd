package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tixops/suggest-api/internal/catalog"
	"github.com/tixops/suggest-api/internal/config"
	"github.com/tixops/suggest-api/internal/repository"
	"github.com/tixops/suggest-api/internal/suggest"
)

// SuggestionHandler serves the suggestion surface: event search and
// lookup, single and bulk account suggestions, and the active-nickname
// listing.
type SuggestionHandler struct {
	Gateway      *catalog.Gateway
	Ranker       *suggest.Ranker
	Resolver     *suggest.TicketLimitResolver
	Orchestrator *suggest.Orchestrator
	Accounts     *repository.AccountRepo
	Events       *repository.EventRepo
	Cfg          config.Config
	Log          zerolog.Logger
}

// SearchEvents proxies a search query to the external catalog via the
// gateway. A superseded debounce session maps to 204 so the client
// simply drops the stale response.
func (h *SuggestionHandler) SearchEvents(c echo.Context) error {
	q := c.QueryParam("q")
	sessionID := c.QueryParam("debounce_session_id")

	res, err := h.Gateway.Search(c.Request().Context(), q, sessionID)
	if err != nil {
		if errors.Is(err, catalog.ErrSuperseded) {
			return c.NoContent(http.StatusNoContent)
		}
		if errors.Is(err, catalog.ErrMissingCredentials) {
			h.Log.Error().Msg("catalog search attempted without credentials")
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error":   "configuration_error",
				"message": "catalog API token is not configured",
			})
		}
		h.Log.Error().Err(err).Str("query", q).Msg("catalog search failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "upstream_error",
			"message": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, res)
}

// AccountSuggestions ranks one company's accounts for one event. The
// company decides the variant: resale companies rank with ticket
// limits and cooloffs and require a point of sale, asset companies
// rank without either and honor an optional fresh-accounts limit.
func (h *SuggestionHandler) AccountSuggestions(c echo.Context) error {
	ctx := c.Request().Context()
	companyID := c.QueryParam("company_id")
	eventID := c.QueryParam("event_id")
	pos := strings.TrimSpace(c.QueryParam("pos"))

	ectx := suggest.EventContext{
		EventID:      eventID,
		State:        c.QueryParam("event_state"),
		NearbyStates: c.QueryParams()["nearby_states"],
	}
	if ll := strings.TrimSpace(c.QueryParam("lat_lng")); ll != "" {
		ectx.LatLng = &ll
	}

	switch {
	case h.Cfg.IsResaleCompany(companyID) && pos != "":
		def := h.Resolver.DefaultLimit(ctx)
		limit, err := h.Resolver.Resolve(ctx, eventID, def)
		if err != nil {
			return h.serverError(c, err, "resolving ticket limit")
		}
		suggs, err := h.Ranker.RankResale(ctx, ectx, companyID, &pos, limit)
		if err != nil {
			return h.serverError(c, err, "ranking resale suggestions")
		}
		return c.JSON(http.StatusOK, suggs)

	case h.Cfg.IsAssetCompany(companyID):
		var freshLimit *int
		if raw := c.QueryParam("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				return c.JSON(http.StatusBadRequest, echo.Map{
					"error":   "validation_error",
					"message": "limit must be a positive integer",
				})
			}
			freshLimit = &n
		}
		var posPtr *string
		if pos != "" {
			posPtr = &pos
		}
		suggs, err := h.Ranker.RankAsset(ctx, ectx, companyID, posPtr, freshLimit)
		if err != nil {
			return h.serverError(c, err, "ranking asset suggestions")
		}
		return c.JSON(http.StatusOK, suggs)

	default:
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "validation_error",
			"message": "company is not assigned to a suggestion group, or pos is missing",
		})
	}
}

// BulkAccountSuggestions ranks many (event, company) pairs in one call
// and returns a map of event id to merged suggestion list.
func (h *SuggestionHandler) BulkAccountSuggestions(c echo.Context) error {
	var req struct {
		Events        []suggest.BulkEvent `json:"events"`
		Tags          []string            `json:"tags"`
		Companies     []string            `json:"companies"`
		TagLogicalOp  string              `json:"tagLogicalOperator"`
		TagPresenceOp string              `json:"tagPresenceOperator"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "validation_error",
			"message": "malformed request body",
		})
	}
	if len(req.Events) == 0 || len(req.Companies) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "validation_error",
			"message": "events and companies must both be non-empty",
		})
	}

	var filter *suggest.TagFilter
	if len(req.Tags) > 0 {
		op := req.TagLogicalOp
		if op == "" {
			op = suggest.TagOperatorAnd
		}
		presence := req.TagPresenceOp
		if presence == "" {
			presence = suggest.TagPresenceHas
		}
		if op != suggest.TagOperatorAnd && op != suggest.TagOperatorOr {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":   "validation_error",
				"message": "tagLogicalOperator must be AND or OR",
			})
		}
		if presence != suggest.TagPresenceHas && presence != suggest.TagPresenceHasNot {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":   "validation_error",
				"message": "tagPresenceOperator must be HAS or DOES NOT HAVE",
			})
		}
		filter = &suggest.TagFilter{Tags: req.Tags, LogicalOperator: op, PresenceOperator: presence}
	}

	result, err := h.Orchestrator.RankMany(c.Request().Context(), req.Events, req.Companies, filter)
	if err != nil {
		return h.serverError(c, err, "bulk ranking")
	}
	return c.JSON(http.StatusOK, result)
}

// ActiveNicknames lists the nicknames of active accounts, optionally
// restricted to the given companies.
func (h *SuggestionHandler) ActiveNicknames(c echo.Context) error {
	names, err := h.Accounts.GetActiveNicknames(c.Request().Context(), c.QueryParams()["company_id"])
	if err != nil {
		return h.serverError(c, err, "listing active nicknames")
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(http.StatusOK, names)
}

// EventDetails resolves one exchange event id to its event and venue
// details. Sits behind the Redis response cache in the router.
func (h *SuggestionHandler) EventDetails(c echo.Context) error {
	details, err := h.Events.GetEventDetails(c.Request().Context(), c.Param("event_id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{
				"error":   "not_found",
				"message": "no event mapped to that id",
			})
		}
		return h.serverError(c, err, "fetching event details")
	}
	return c.JSON(http.StatusOK, details)
}

func (h *SuggestionHandler) serverError(c echo.Context, err error, msg string) error {
	h.Log.Error().Err(err).Msg(msg)
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error":   "internal_error",
		"message": err.Error(),
	})
}
