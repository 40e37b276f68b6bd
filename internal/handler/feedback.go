package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"

	"github.com/tixops/suggest-api/internal/queue"
	"github.com/tixops/suggest-api/internal/repository"
	queue_publisher "github.com/tixops/suggest-api/internal/service"
	"github.com/tixops/suggest-api/internal/suggest"
)

// penaltyCodes are the purchase-failure codes that put the attempted
// account into cooloff and trigger a stored-suggestion refetch.
var penaltyCodes = map[string]bool{
	"PAUSED": true,
	"U102":   true,
	"U103":   true,
	"U201":   true,
}

// Poll floor and lookback floor for the feedback stream.
const (
	minStreamInterval  = 3 * time.Second
	minStreamLookback  = time.Hour
	defaultLookbackHrs = 24
)

// FeedbackHandler records purchase-attempt feedback and streams it to
// monitoring clients over a websocket.
type FeedbackHandler struct {
	Feedback *repository.FeedbackRepo
	Ledger   *suggest.CooloffLedger
	Log      zerolog.Logger
}

// LogFeedback stores an attempt-result payload verbatim. When the
// payload's error code is a penalty code, the suggested account goes
// into cooloff and a refetch event is published for the worker. The
// publish happens off the request path; a broker outage must not fail
// the acknowledgment.
func (h *FeedbackHandler) LogFeedback(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil || !json.Valid(body) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "validation_error",
			"message": "body must be a JSON document",
		})
	}

	ctx := c.Request().Context()
	record, err := h.Feedback.Insert(ctx, body)
	if err != nil {
		h.Log.Error().Err(err).Msg("storing suggestion feedback")
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "internal_error",
			"message": err.Error(),
		})
	}

	if penaltyCodes[record.ErrorCode] && record.Nickname != "" {
		if err := h.Ledger.RecordOffense(ctx, record.Nickname, record.ErrorCode); err != nil {
			h.Log.Error().Err(err).Str("nickname", record.Nickname).Msg("recording cooloff")
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error":   "internal_error",
				"message": err.Error(),
			})
		}
		ev := queue.FeedbackRecordedEvent{
			FeedbackID: record.ID,
			Nickname:   record.Nickname,
			ErrorCode:  record.ErrorCode,
			RecordedAt: time.Now().UTC().Format(time.RFC3339),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = queue_publisher.PublishFeedbackRecorded(ctx, ev)
		}()
	}

	return c.JSON(http.StatusCreated, echo.Map{"status": "success", "data": record})
}

// StreamFeedback upgrades to a websocket and pushes feedback rows
// newer than a moving watermark. The lookback starts at ?timeframe=
// hours (alias ?history=, default 24, floor 1) and the poll period at
// ?interval= seconds (default 3, floor 3). Malformed parameters close
// the socket with a policy-violation code.
func (h *FeedbackHandler) StreamFeedback(c echo.Context) error {
	lookback, interval, ok := parseStreamParams(c)

	srv := websocket.Server{Handler: func(ws *websocket.Conn) {
		defer ws.Close()
		if !ok {
			_ = ws.WriteClose(1008)
			return
		}
		h.stream(c.Request().Context(), ws, lookback, interval)
	}}
	srv.ServeHTTP(c.Response(), c.Request())
	return nil
}

func parseStreamParams(c echo.Context) (lookback, interval time.Duration, ok bool) {
	hours := float64(defaultLookbackHrs)
	raw := c.QueryParam("timeframe")
	if raw == "" {
		raw = c.QueryParam("history")
	}
	if raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, 0, false
		}
		hours = v
	}

	secs := 3.0
	if raw := c.QueryParam("interval"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, 0, false
		}
		secs = v
	}

	lookback = time.Duration(hours * float64(time.Hour))
	if lookback < minStreamLookback {
		lookback = minStreamLookback
	}
	interval = time.Duration(secs * float64(time.Second))
	if interval < minStreamInterval {
		interval = minStreamInterval
	}
	return lookback, interval, true
}

func (h *FeedbackHandler) stream(ctx context.Context, ws *websocket.Conn, lookback, interval time.Duration) {
	watermark := time.Now().UTC().Add(-lookback)

	send := func() error {
		rows, err := h.Feedback.FetchSince(ctx, watermark)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if err := websocket.JSON.Send(ws, rows); err != nil {
			return err
		}
		for _, r := range rows {
			if r.CreatedAt.After(watermark) {
				watermark = r.CreatedAt
			}
		}
		return nil
	}

	if err := send(); err != nil {
		h.logStreamEnd(ws, err)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := send(); err != nil {
				h.logStreamEnd(ws, err)
				return
			}
		}
	}
}

// logStreamEnd distinguishes a client hangup from a server-side
// failure; only the latter gets an error close code.
func (h *FeedbackHandler) logStreamEnd(ws *websocket.Conn, err error) {
	if err == io.EOF {
		return
	}
	h.Log.Warn().Err(err).Msg("feedback stream ended")
	_ = ws.WriteClose(1011)
}
