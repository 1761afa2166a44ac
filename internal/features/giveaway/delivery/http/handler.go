package http

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/GDG-UAM/website-sub002/internal/common/errors"
	"github.com/GDG-UAM/website-sub002/internal/common/middleware"
	"github.com/GDG-UAM/website-sub002/internal/common/validation"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/mapper"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models/dto"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/notifier"
	giveawayservice "github.com/GDG-UAM/website-sub002/internal/features/giveaway/service"
)

const defaultHeartbeat = 15 * time.Second

type Config struct {
	// AdminIDs are the Telegram user ids allowed to run operator routes.
	AdminIDs []string
	// Heartbeat is the keep-alive interval of the events stream.
	Heartbeat time.Duration
}

type GiveawayHandler struct {
	service giveawayservice.GiveawayService
	broker  notifier.Broker
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

func NewGiveawayHandler(service giveawayservice.GiveawayService, broker notifier.Broker, cfg Config, logger *zap.Logger) *GiveawayHandler {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GiveawayHandler{
		service: service,
		broker:  broker,
		cfg:     cfg,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (h *GiveawayHandler) RegisterRoutes(router *gin.RouterGroup) {
	wrap := middleware.HandleErrorWrapper(h.logger)
	admin := middleware.RequireAdmin(h.cfg.AdminIDs, h.logger)

	giveaways := router.Group("/giveaways")
	{
		giveaways.GET("/:id", wrap(h.getByID))
		giveaways.POST("/:id/entries", wrap(h.join))
		giveaways.GET("/:id/entries/check", wrap(h.checkRegistration))
		giveaways.GET("/:id/winners", wrap(h.getWinners))
		giveaways.GET("/:id/draw/verify", wrap(h.verify))
		giveaways.GET("/:id/events", wrap(h.events))

		giveaways.POST("", admin, wrap(h.create))
		giveaways.PATCH("/:id/status", admin, wrap(h.updateStatus))
		giveaways.POST("/:id/winners", admin, wrap(h.draw))
		giveaways.PATCH("/:id/winners", admin, wrap(h.reroll))
		giveaways.POST("/:id/disqualifications", admin, wrap(h.disqualify))
	}
}

// @Summary Get a giveaway
// @Description Returns the public projection: status, timing, entry count and the draw commitment once drawn
// @Tags giveaways
// @Produce json
// @Param id path string true "Giveaway ID"
// @Success 200 {object} dto.GiveawayResponse
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Router /giveaways/{id} [get]
func (h *GiveawayHandler) getByID(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	g, err := h.service.Get(ctx, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	count, err := h.service.Count(ctx, id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, mapper.ToGiveawayResponse(g, count, h.now()))
}

// @Summary Join a giveaway
// @Description Registers the caller. Authenticated users join as themselves; anonymous callers must send anonId
// @Tags entries
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Param input body dto.JoinRequest true "Join request"
// @Success 201 {object} dto.JoinResponse
// @Failure 400 {object} middleware.ValidationErrorResponse "Validation error"
// @Failure 403 {object} middleware.ErrorResponse "Giveaway closed or login required"
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Failure 409 {object} middleware.ErrorResponse "Already joined"
// @Router /giveaways/{id}/entries [post]
func (h *GiveawayHandler) join(c *gin.Context) {
	var req dto.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendValidationErrors(c, validation.FieldErrors(err), h.logger)
		return
	}

	identity := resolveIdentity(c, req.AnonID)
	entry, err := h.service.TryJoin(c.Request.Context(), c.Param("id"), mapper.ToJoinInput(&req, identity))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.JoinResponse{ID: entry.ID})
}

// @Summary Check registration
// @Description Reports whether the caller holds an entry. The authenticated identity takes precedence over anonId
// @Tags entries
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Param anonId query string false "Anonymous client id"
// @Success 200 {object} dto.RegisteredResponse
// @Router /giveaways/{id}/entries/check [get]
func (h *GiveawayHandler) checkRegistration(c *gin.Context) {
	identity := resolveIdentity(c, c.Query("anonId"))
	if identity.IsZero() {
		c.JSON(http.StatusOK, dto.RegisteredResponse{Registered: false})
		return
	}

	registered, err := h.service.IsRegistered(c.Request.Context(), c.Param("id"), identity)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.RegisteredResponse{Registered: registered})
}

// @Summary List winners
// @Description Winning positions in order with their entry and proof. Empty until drawn
// @Tags draw
// @Produce json
// @Param id path string true "Giveaway ID"
// @Success 200 {object} dto.WinnersResponse
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Router /giveaways/{id}/winners [get]
func (h *GiveawayHandler) getWinners(c *gin.Context) {
	id := c.Param("id")
	winners, err := h.service.GetWinners(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, mapper.ToWinnersResponse(id, winners))
}

// @Summary Verify the draw
// @Description Recomputes every winner from the stored entries and the published seed
// @Tags draw
// @Produce json
// @Param id path string true "Giveaway ID"
// @Success 200 {object} dto.VerifyResponse
// @Failure 400 {object} middleware.ErrorResponse "Not drawn yet"
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Router /giveaways/{id}/draw/verify [get]
func (h *GiveawayHandler) verify(c *gin.Context) {
	result, err := h.service.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, mapper.ToVerifyResponse(result))
}

// @Summary Entry count stream
// @Description Server-Sent Events of the giveaway room. The first event is the current count
// @Tags entries
// @Produce text/event-stream
// @Param id path string true "Giveaway ID"
// @Success 200 {string} string "event stream"
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Router /giveaways/{id}/events [get]
func (h *GiveawayHandler) events(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if _, err := h.service.Get(ctx, id); err != nil {
		_ = c.Error(err)
		return
	}

	sub, err := h.broker.Subscribe(ctx, notifier.Room(id))
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to subscribe"))
		return
	}
	defer sub.Close()

	// subscribe first so no update between the count and the stream is lost
	count, err := h.service.Count(ctx, id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	setStreamHeaders(c)
	c.SSEvent(notifier.EventCount, notifier.CountPayload{Count: count})
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.cfg.Heartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(msg.Event, msg.Payload)
			return true
		case <-heartbeat.C:
			return writeHeartbeat(w) == nil
		}
	})

	h.logger.Debug("Event stream closed", zap.String("giveaway_id", id))
}

// @Summary Create a giveaway
// @Description Creates a draft. Send endAt for a fixed window or durationS for a pausable countdown
// @Tags admin
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param input body dto.CreateGiveawayRequest true "Giveaway"
// @Success 201 {object} dto.GiveawayResponse
// @Failure 400 {object} middleware.ValidationErrorResponse "Validation error"
// @Failure 401 {object} middleware.ErrorResponse "Not authenticated"
// @Failure 403 {object} middleware.ErrorResponse "Not an admin"
// @Router /giveaways [post]
func (h *GiveawayHandler) create(c *gin.Context) {
	var req dto.CreateGiveawayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendValidationErrors(c, validation.FieldErrors(err), h.logger)
		return
	}

	g, err := h.service.Create(c.Request.Context(), mapper.ToCreateInput(&req))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, mapper.ToGiveawayResponse(g, 0, h.now()))
}

// @Summary Change giveaway status
// @Tags admin
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Param input body dto.StatusRequest true "Target status"
// @Success 200 {object} dto.GiveawayResponse
// @Failure 400 {object} middleware.ErrorResponse "Transition not allowed"
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Failure 503 {object} middleware.ErrorResponse "Giveaway busy"
// @Router /giveaways/{id}/status [patch]
func (h *GiveawayHandler) updateStatus(c *gin.Context) {
	var req dto.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendValidationErrors(c, validation.FieldErrors(err), h.logger)
		return
	}

	id := c.Param("id")
	ctx := c.Request.Context()
	g, err := h.service.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	count, err := h.service.Count(ctx, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, mapper.ToGiveawayResponse(g, count, h.now()))
}

// @Summary Draw winners
// @Description Draws every position once. Repeating the call returns the stored result
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Success 200 {object} dto.DrawResponse
// @Failure 400 {object} middleware.ErrorResponse "Giveaway cannot be drawn"
// @Failure 404 {object} middleware.ErrorResponse "Giveaway not found"
// @Failure 503 {object} middleware.ErrorResponse "Giveaway busy"
// @Router /giveaways/{id}/winners [post]
func (h *GiveawayHandler) draw(c *gin.Context) {
	result, err := h.service.Draw(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, mapper.ToDrawResponse(result))
}

// @Summary Reroll one position
// @Tags admin
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Param input body dto.RerollRequest true "Position to redraw"
// @Success 200 {object} dto.DrawResponse
// @Failure 400 {object} middleware.ErrorResponse "Invalid position"
// @Failure 422 {object} middleware.ErrorResponse "No alternative candidates"
// @Failure 503 {object} middleware.ErrorResponse "Giveaway busy"
// @Router /giveaways/{id}/winners [patch]
func (h *GiveawayHandler) reroll(c *gin.Context) {
	var req dto.RerollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendValidationErrors(c, validation.FieldErrors(err), h.logger)
		return
	}

	result, err := h.service.Reroll(c.Request.Context(), c.Param("id"), *req.Position)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, mapper.ToDrawResponse(result))
}

// @Summary Disqualify an entry
// @Tags admin
// @Accept json
// @Security TelegramInitData
// @Param id path string true "Giveaway ID"
// @Param input body dto.DisqualifyRequest true "Entry"
// @Success 204
// @Failure 404 {object} middleware.ErrorResponse "Entry not found"
// @Router /giveaways/{id}/disqualifications [post]
func (h *GiveawayHandler) disqualify(c *gin.Context) {
	var req dto.DisqualifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendValidationErrors(c, validation.FieldErrors(err), h.logger)
		return
	}

	if err := h.service.Disqualify(c.Request.Context(), c.Param("id"), req.EntryID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
