package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/safetrek/internal/dashboard"
	"github.com/mr1hm/safetrek/internal/emergency"
	"github.com/mr1hm/safetrek/internal/events"
	"github.com/mr1hm/safetrek/internal/models"
	"github.com/mr1hm/safetrek/internal/repository"
	"github.com/mr1hm/safetrek/internal/store"
	"github.com/mr1hm/safetrek/internal/worker"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

type Handler struct {
	loop        *worker.Loop
	center      *dashboard.Center
	incidents   repository.IncidentRepository
	broadcaster *events.Broadcaster
}

func NewHandler(loop *worker.Loop, center *dashboard.Center, incidents repository.IncidentRepository, broadcaster *events.Broadcaster) *Handler {
	return &Handler{
		loop:        loop,
		center:      center,
		incidents:   incidents,
		broadcaster: broadcaster,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")

	api.GET("/tourists", h.listTourists)
	api.GET("/tourists/:id", h.getTourist)
	api.GET("/tourists/:id/history", h.touristHistory)
	api.POST("/tourists/:id/contact", h.contactTourist)
	api.POST("/tourists/:id/risk", h.updateRisk)
	api.POST("/tourists/:id/respond", h.respond)

	api.GET("/teams", h.listTeams)

	api.GET("/alerts", h.listAlerts)
	api.POST("/alerts/:id/open", h.openAlert)
	api.POST("/alerts/open-first", h.openFirstAlert)

	api.GET("/session", h.getSession)
	api.POST("/session/team", h.selectTeam)
	api.POST("/session/dispatch", h.dispatch)
	api.POST("/session/escalate", h.escalate)
	api.POST("/session/close", h.closeSession)

	api.GET("/incidents", h.listIncidents)

	api.POST("/refresh", h.refresh)
	api.GET("/analytics", h.analytics)
	api.POST("/demo/emergency", h.demoEmergency)
	api.POST("/demo/reset", h.resetDemo)

	api.GET("/map", h.getMap)
	api.GET("/events", h.streamEvents)
}

// run executes fn on the command loop and reports false once it has already
// answered the request. fn runs on the loop goroutine and must not touch c;
// read params and queries before calling run. A false result means fn never ran.
func (h *Handler) run(c *gin.Context, fn func()) bool {
	if err := h.loop.Do(c.Request.Context(), fn); err != nil {
		slog.Warn("command loop unavailable", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "command center unavailable",
			"code":  "unavailable",
		})
		return false
	}
	return true
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, store.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, emergency.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, emergency.ErrStaleSelection):
		status, code = http.StatusConflict, "stale_selection"
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  code,
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) listTourists(c *gin.Context) {
	filter := store.TouristFilter{
		Status: models.TouristStatus(c.Query("status")),
		Search: c.Query("search"),
	}

	var tourists []models.Tourist
	if !h.run(c, func() { tourists = h.center.Tourists(filter) }) {
		return
	}
	c.JSON(http.StatusOK, tourists)
}

func (h *Handler) getTourist(c *gin.Context) {
	id := c.Param("id")

	var (
		tourist models.Tourist
		err     error
	)
	if !h.run(c, func() { tourist, err = h.center.Tourist(id) }) {
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tourist)
}

func (h *Handler) touristHistory(c *gin.Context) {
	filter := historyFilter(c)
	filter.TouristID = c.Param("id")

	incidents, err := h.incidents.ListIncidents(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch incidents",
			"code":  "internal",
		})
		return
	}
	c.JSON(http.StatusOK, nonNil(incidents))
}

func (h *Handler) listIncidents(c *gin.Context) {
	filter := historyFilter(c)
	if k := c.Query("kind"); k != "" {
		kind := models.IncidentKind(k)
		filter.Kind = &kind
	}
	filter.SessionID = c.Query("session_id")

	incidents, err := h.incidents.ListIncidents(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch incidents",
			"code":  "internal",
		})
		return
	}
	c.JSON(http.StatusOK, nonNil(incidents))
}

func historyFilter(c *gin.Context) repository.Filter {
	filter := repository.Filter{
		Limit: defaultHistoryLimit,
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= maxHistoryLimit {
			filter.Limit = lim
		}
	}
	if o := c.Query("offset"); o != "" {
		if off, err := strconv.Atoi(o); err == nil && off >= 0 {
			filter.Offset = off
		}
	}
	if s := c.Query("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			filter.Since = &t
		}
	}
	return filter
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (h *Handler) contactTourist(c *gin.Context) {
	h.touristCommand(c, h.center.ContactTourist, "contacting")
}

func (h *Handler) updateRisk(c *gin.Context) {
	h.touristCommand(c, h.center.UpdateRiskAssessment, "assessing")
}

func (h *Handler) touristCommand(c *gin.Context, cmd func(id string) error, status string) {
	id := c.Param("id")

	var err error
	if !h.run(c, func() { err = cmd(id) }) {
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": status, "tourist_id": id})
}

func (h *Handler) respond(c *gin.Context) {
	id := c.Param("id")
	h.openSession(c, func() error { return h.center.TriggerEmergencyResponse(id) })
}

func (h *Handler) openAlert(c *gin.Context) {
	id := c.Param("id")
	h.openSession(c, func() error { return h.center.OpenEmergency(id) })
}

func (h *Handler) openFirstAlert(c *gin.Context) {
	h.openSession(c, h.center.OpenFirstAlert)
}

func (h *Handler) openSession(c *gin.Context, open func() error) {
	var (
		view *emergency.View
		err  error
	)
	if !h.run(c, func() {
		if err = open(); err == nil {
			view = h.center.Session()
		}
	}) {
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) listTeams(c *gin.Context) {
	filter := store.TeamFilter{Status: models.TeamStatus(c.Query("status"))}

	var teams []models.Team
	if !h.run(c, func() { teams = h.center.Teams(filter) }) {
		return
	}
	c.JSON(http.StatusOK, teams)
}

func (h *Handler) listAlerts(c *gin.Context) {
	var alerts []models.Alert
	if !h.run(c, func() { alerts = h.center.Alerts() }) {
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *Handler) getSession(c *gin.Context) {
	var (
		view       *emergency.View
		candidates []models.Team
	)
	if !h.run(c, func() {
		view = h.center.Session()
		if view != nil {
			candidates = h.center.CandidateTeams()
		}
	}) {
		return
	}
	if view == nil {
		c.JSON(http.StatusOK, gin.H{"state": emergency.StateClosed})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":   view.State,
		"session": view,
		"teams":   candidates,
	})
}

type selectTeamRequest struct {
	TeamID string `json:"team_id" binding:"required"`
}

func (h *Handler) selectTeam(c *gin.Context) {
	var req selectTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "team_id is required",
			"code":  "bad_request",
		})
		return
	}

	var (
		view *emergency.View
		err  error
	)
	if !h.run(c, func() {
		if err = h.center.SelectTeam(req.TeamID); err == nil {
			view = h.center.Session()
		}
	}) {
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) dispatch(c *gin.Context) {
	var (
		ev  emergency.DispatchEvent
		err error
	)
	if !h.run(c, func() { ev, err = h.center.Dispatch() }) {
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *Handler) escalate(c *gin.Context) {
	var (
		ev  emergency.EscalationEvent
		err error
	)
	if !h.run(c, func() { ev, err = h.center.Escalate() }) {
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *Handler) closeSession(c *gin.Context) {
	var closed bool
	if !h.run(c, func() { closed = h.center.CloseEmergency() }) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": closed})
}

func (h *Handler) refresh(c *gin.Context) {
	var snap models.Snapshot
	if !h.run(c, func() {
		h.center.Refresh()
		snap = h.center.Snapshot()
	}) {
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) analytics(c *gin.Context) {
	var a dashboard.Analytics
	if !h.run(c, func() { a = h.center.Analytics() }) {
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) demoEmergency(c *gin.Context) {
	var (
		alert models.Alert
		err   error
	)
	if !h.run(c, func() { alert, err = h.center.DemoEmergency() }) {
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) resetDemo(c *gin.Context) {
	var snap models.Snapshot
	if !h.run(c, func() {
		h.center.ResetDemo()
		snap = h.center.Snapshot()
	}) {
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) getMap(c *gin.Context) {
	var snap models.Snapshot
	if !h.run(c, func() { snap = h.center.Snapshot() }) {
		return
	}
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, toGeoJSON(snap))
}

// streamEvents sends the current picture, then every broadcast event, as
// server-sent events until the client goes away or the broadcaster closes.
func (h *Handler) streamEvents(c *gin.Context) {
	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	var (
		snap models.Snapshot
		view *emergency.View
	)
	if !h.run(c, func() {
		snap = h.center.Snapshot()
		view = h.center.Session()
	}) {
		return
	}

	slog.Info("event stream opened", "subscriber", id, "remote", c.ClientIP())
	c.SSEvent(string(events.TypeEntities), snap)
	c.SSEvent(string(events.TypeSession), view)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		case <-ctx.Done():
			return false
		}
	})
	slog.Info("event stream closed", "subscriber", id, "reason", streamEndReason(ctx))
}

func streamEndReason(ctx context.Context) string {
	if ctx.Err() != nil {
		return "client disconnected"
	}
	return "server shutdown"
}
