// Package webhook exposes the bot over HTTP: activities are posted as JSON and the
// replies produced during the turn come back in the response body.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bookings-bot/internal/common/errors"
	"bookings-bot/internal/common/logger"
	"bookings-bot/internal/common/validation"
	"bookings-bot/internal/turn"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether the state store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Path      string
	Handler   turn.Handler
	Storage   Pinger
	RateLimit float64 // turns per second per conversation; zero disables throttling
	RateBurst int
	Logger    logger.Logger
}

// Response is the body returned for an accepted activity.
type Response struct {
	Activities []turn.Activity `json:"activities"`
}

type Server struct {
	engine    *gin.Engine
	handler   turn.Handler
	storage   Pinger
	validator *validation.SchemaValidator
	limiters  *limiterStore
	logger    logger.Logger
}

func New(opts Options) (*Server, error) {
	validator, err := validation.NewSchemaValidator([]byte(activitySchema))
	if err != nil {
		return nil, err
	}
	if opts.Path == "" {
		opts.Path = "/api/messages"
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}

	s := &Server{
		engine:    gin.New(),
		handler:   opts.Handler,
		storage:   opts.Storage,
		validator: validator,
		limiters:  newLimiterStore(opts.RateLimit, opts.RateBurst),
		logger:    opts.Logger,
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.engine.POST(opts.Path, s.handleActivity)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/ready", s.handleReady)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return s, nil
}

// Handler returns the router for use in an http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

func (s *Server) handleActivity(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		return
	}

	if result := s.validator.Validate(body); !result.Valid {
		s.logger.Warn("rejected activity", map[string]interface{}{"errors": result.Summary()})
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   string(errors.ErrCodeInvalidActivity),
			"details": result.Errors,
		})
		return
	}

	var activity turn.Activity
	if err := json.Unmarshal(body, &activity); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": string(errors.ErrCodeInvalidActivity)})
		return
	}

	key := activity.ChannelID + "/" + activity.Conversation.ID
	if !s.limiters.allow(key) {
		s.logger.Warn("rate limit exceeded", map[string]interface{}{"conversationId": activity.Conversation.ID})
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, try again later"})
		return
	}

	buf := &turn.Buffer{}
	if err := s.handler.OnTurn(c.Request.Context(), turn.NewContext(&activity, buf)); err != nil {
		stdErr := errors.AsStandardError(err)
		s.logger.Error("turn failed", map[string]interface{}{
			"conversationId": activity.Conversation.ID,
			"errorCode":      string(stdErr.Code),
			"error":          err.Error(),
		})
		status := http.StatusInternalServerError
		if stdErr.Code == errors.ErrCodeInvalidActivity {
			status = http.StatusBadRequest
		}
		c.AbortWithStatusJSON(status, gin.H{"error": string(stdErr.Code)})
		return
	}

	c.JSON(http.StatusOK, Response{Activities: buf.Activities()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReady(c *gin.Context) {
	if s.storage != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.storage.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
