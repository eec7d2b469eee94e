// Package handler maps HTTP requests onto the identity and catalog stores.
// It holds no state of its own; every decision belongs to the stores.
package handler

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"campusevents/internal/activity"
	"campusevents/internal/auth"
	"campusevents/internal/catalog"
	"campusevents/internal/identity"
	"campusevents/internal/metrics"
	"campusevents/internal/queue"
)

// Handler wires the HTTP surface to the two stores.
type Handler struct {
	identity *identity.Store
	catalog  *catalog.Store
	queue    queue.Queue
	metrics  *metrics.Metrics
	archive  *activity.Repository // nil when no database is configured

	jwtIssuer     string
	jwtSigningKey string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// Config carries the handler's construction parameters.
type Config struct {
	Identity      *identity.Store
	Catalog       *catalog.Store
	Queue         queue.Queue
	Metrics       *metrics.Metrics
	Archive       *activity.Repository
	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// New constructs a Handler.
func New(cfg Config) *Handler {
	return &Handler{
		identity:      cfg.Identity,
		catalog:       cfg.Catalog,
		queue:         cfg.Queue,
		metrics:       cfg.Metrics,
		archive:       cfg.Archive,
		jwtIssuer:     cfg.JWTIssuer,
		jwtSigningKey: cfg.JWTSigningKey,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
	}
}

// Register mounts all routes on the router.
func (h *Handler) Register(r *gin.Engine) {
	r.POST("/v1/auth/login", h.Login)
	r.POST("/v1/auth/signup", h.Signup)

	r.GET("/v1/events", h.ListEvents)
	r.GET("/v1/events/:id", h.GetEvent)
	r.GET("/v1/categories", h.ListCategories)

	authed := r.Group("/v1", auth.UserAuth(h.jwtSigningKey, h.jwtIssuer))
	authed.POST("/auth/logout", h.Logout)
	authed.GET("/me", h.Me)
	authed.POST("/events/:id/register", h.RegisterForEvent)
	authed.DELETE("/events/:id/register", h.UnregisterFromEvent)
	authed.GET("/registrations", h.ListRegistrations)
	authed.GET("/notifications", h.ListNotifications)
	authed.POST("/notifications/:id/read", h.MarkNotificationRead)
	authed.POST("/notifications/read-all", h.MarkAllNotificationsRead)

	admin := authed.Group("", auth.RequireAdmin())
	admin.POST("/events", h.CreateEvent)
	admin.PUT("/events/:id", h.UpdateEvent)
	admin.DELETE("/events/:id", h.DeleteEvent)
	admin.POST("/broadcast", h.Broadcast)
	admin.GET("/stats", h.Stats)
	admin.GET("/reports/events.csv", h.EventsReportCSV)
	admin.GET("/activity", h.RecentActivity)
}

// ---------- Auth ----------

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates against the fixed credential directory and issues a
// token pair.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.identity.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	h.issueSession(c, http.StatusOK, user)
}

// Signup creates a student account. It never fails for duplicate emails;
// a collision with the directory is only logged.
func (h *Handler) Signup(c *gin.Context) {
	var profile identity.SignupProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if profile.Email == "" || profile.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and email are required"})
		return
	}
	if h.identity.EmailInDirectory(profile.Email) {
		log.WithField("email", profile.Email).Warn("signup email collides with existing account")
	}

	user, err := h.identity.Signup(c.Request.Context(), profile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}
	h.issueSession(c, http.StatusCreated, user)
}

func (h *Handler) issueSession(c *gin.Context, status int, user identity.User) {
	tokens, err := auth.Issue(user.ID, user.Email, string(user.Role), h.jwtIssuer, h.jwtSigningKey, h.accessTTL, h.refreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(status, gin.H{
		"user":          user,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// Logout clears the current user.
func (h *Handler) Logout(c *gin.Context) {
	h.identity.Logout(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// Me returns the signed-in user.
func (h *Handler) Me(c *gin.Context) {
	user, ok := h.identity.CurrentUser()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no user signed in"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":             user,
		"is_authenticated": true,
		"is_admin":         user.Role == identity.RoleAdmin,
		"is_student":       user.Role == identity.RoleStudent,
	})
}

// ---------- Events ----------

type eventResponse struct {
	catalog.Event
	AvailableSpots int  `json:"available_spots"`
	IsRegistered   bool `json:"is_registered"`
}

func (h *Handler) eventResponse(e catalog.Event) eventResponse {
	return eventResponse{
		Event:          e,
		AvailableSpots: e.AvailableSpots(),
		IsRegistered:   h.catalog.IsRegistered(e.ID),
	}
}

// ListEvents returns events matching the query filters.
func (h *Handler) ListEvents(c *gin.Context) {
	filter := catalog.EventFilter{
		Status:   catalog.Status(c.Query("status")),
		Category: catalog.Category(c.Query("category")),
		Search:   c.Query("q"),
	}
	switch c.Query("view") {
	case "registered":
		filter.RegisteredOnly = true
	case "available":
		filter.AvailableOnly = true
	}

	events := h.catalog.Events(filter)
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, h.eventResponse(e))
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

// GetEvent returns a single event.
func (h *Handler) GetEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	event, found := h.catalog.Event(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	c.JSON(http.StatusOK, h.eventResponse(event))
}

// ListCategories returns the fixed category set.
func (h *Handler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": catalog.Categories()})
}

// CreateEvent creates an event from the posted fields.
func (h *Handler) CreateEvent(c *gin.Context) {
	var fields catalog.EventFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if fields.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	if fields.Capacity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "capacity must be a positive integer"})
		return
	}

	event := h.catalog.CreateEvent(fields)
	c.JSON(http.StatusCreated, h.eventResponse(event))
}

// UpdateEvent merges the posted patch into the event.
func (h *Handler) UpdateEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	var patch catalog.EventPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.catalog.UpdateEvent(id, patch); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	event, _ := h.catalog.Event(id)
	c.JSON(http.StatusOK, h.eventResponse(event))
}

// DeleteEvent removes the event; deleting an absent ID still succeeds.
func (h *Handler) DeleteEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	h.catalog.DeleteEvent(id)
	c.Status(http.StatusNoContent)
}

// ---------- Registration ----------

// RegisterForEvent books a capacity slot for the signed-in user.
func (h *Handler) RegisterForEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	claims, _ := auth.ClaimsFrom(c)

	err := h.catalog.Register(c.Request.Context(), id)
	switch {
	case errors.Is(err, catalog.ErrEventNotFound):
		h.metrics.RegistrationFailures.WithLabelValues("not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, catalog.ErrAlreadyRegistered):
		h.metrics.RegistrationFailures.WithLabelValues("already_registered").Inc()
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, catalog.ErrEventFull):
		h.metrics.RegistrationFailures.WithLabelValues("event_full").Inc()
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.metrics.RegistrationsTotal.Inc()
	h.metrics.NotificationsTotal.WithLabelValues(string(catalog.NotificationSuccess)).Inc()

	event, _ := h.catalog.Event(id)
	h.publishActivity(c, "registration", claims.UserID(), event)

	c.JSON(http.StatusOK, h.eventResponse(event))
}

// UnregisterFromEvent releases the session's registration.
func (h *Handler) UnregisterFromEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	claims, _ := auth.ClaimsFrom(c)

	if err := h.catalog.Unregister(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	h.metrics.UnregistrationsTotal.Inc()

	event, _ := h.catalog.Event(id)
	h.publishActivity(c, "unregistration", claims.UserID(), event)

	c.Status(http.StatusNoContent)
}

// publishActivity hands the mutation to the activity queue, best-effort.
func (h *Handler) publishActivity(c *gin.Context, typ string, userID int64, event catalog.Event) {
	if h.queue == nil {
		return
	}
	msg := queue.Message{
		Type:    typ,
		UserID:  userID,
		EventID: event.ID,
		Title:   event.Title,
		At:      time.Now().UTC(),
	}
	if err := h.queue.Publish(c.Request.Context(), msg); err != nil {
		log.WithError(err).Warn("activity publish failed")
	}
}

// ListRegistrations returns the session's registered event IDs.
func (h *Handler) ListRegistrations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"registered_events": h.catalog.RegisteredIDs()})
}

// ---------- Notifications ----------

// ListNotifications returns the notification list, newest first.
func (h *Handler) ListNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"notifications": h.catalog.Notifications(),
		"unread_count":  h.catalog.UnreadCount(),
	})
}

// MarkNotificationRead flags a single notification as read.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	h.catalog.MarkRead(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// MarkAllNotificationsRead flags every notification as read.
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	h.catalog.MarkAllRead()
	c.Status(http.StatusNoContent)
}

type broadcastRequest struct {
	Title   string `json:"title" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// Broadcast emits an informational notification to the current session.
func (h *Handler) Broadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n := h.catalog.AddNotification(req.Title, req.Message, catalog.NotificationInfo)
	h.metrics.NotificationsTotal.WithLabelValues(string(catalog.NotificationInfo)).Inc()
	c.JSON(http.StatusCreated, n)
}

// ---------- Admin reporting ----------

// Stats returns catalog aggregates for the admin dashboard.
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Stats())
}

// EventsReportCSV streams the events table as CSV.
func (h *Handler) EventsReportCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="events-report-`+time.Now().Format("2006-01-02")+`.csv"`)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"Title", "Category", "Date", "Registered", "Capacity", "Status"})
	for _, e := range h.catalog.Events(catalog.EventFilter{}) {
		_ = w.Write([]string{
			e.Title,
			string(e.Category),
			e.Date,
			strconv.Itoa(e.Registered),
			strconv.Itoa(e.Capacity),
			string(e.Status),
		})
	}
	w.Flush()
}

// RecentActivity returns archived registration activity when a database is
// configured.
func (h *Handler) RecentActivity(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "activity archive not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := h.archive.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []activity.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"activity": records})
}

func eventID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return 0, false
	}
	return id, true
}
