package api

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/funildigital/funil/internal/dispatch"
	"github.com/funildigital/funil/internal/routing"
	"github.com/gin-gonic/gin"
)

// sessionHeader carries the client-side session identifier on GET requests.
const sessionHeader = "x-lead-session"

// handleGetSession resolves (or mints) the visitor's session from the
// optional x-lead-session header.
func handleGetSession(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := deps.Resolver.Resolve(c.GetHeader(sessionHeader), "")
		if err != nil {
			internalError(c, deps, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"sessionId":   res.SessionID,
			"responsavel": res.AgentName,
			"isNew":       res.New,
		})
	}
}

type sessionRequest struct {
	SessionID string `json:"sessionId"`
	Phone     string `json:"phone" binding:"required"`
}

// handlePostSession resolves the visitor once a phone is known, attaching it
// to the session and detecting duplicates.
func handlePostSession(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "phone is required"})
			return
		}
		if routing.NormalizePhone(req.Phone) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "phone must contain digits"})
			return
		}
		res, err := deps.Resolver.Resolve(req.SessionID, req.Phone)
		if err != nil {
			internalError(c, deps, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"isDuplicate": res.Duplicate,
			"responsavel": res.AgentName,
		})
	}
}

type leadRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email"`
	Phone     string `json:"phone" binding:"required"`
	Course    string `json:"course"`
	Modality  string `json:"modality"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// handleSendLead is the main submission endpoint: guard chain (secret
// configured, rate limit, origin allowed, required fields), then resolution
// and fan-out. The response reports success to genuine and duplicate
// submissions alike.
func handleSendLead(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Config.Security.SecretKey == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "server misconfigured"})
			return
		}
		// Rate limiting comes before origin validation, so rejected origins
		// still consume their slots.
		if !deps.Limiter.Allow(clientID(c)) {
			c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "too many requests"})
			return
		}
		if !deps.Config.OriginAllowed(c.GetHeader("Origin")) {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "origin not allowed"})
			return
		}

		var req leadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "name and phone are required"})
			return
		}
		phone := routing.NormalizePhone(req.Phone)
		if phone == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "phone must contain digits"})
			return
		}

		// The audit "expected agent" must be read before resolution, which
		// may advance the counter.
		expected := deps.Resolver.ExpectedAgent()

		res, err := deps.Resolver.Resolve(req.SessionID, phone)
		if err != nil {
			internalError(c, deps, err)
			return
		}

		// Background context: the sinks outlive this request on purpose.
		deps.Dispatcher.Dispatch(context.Background(), dispatch.Submission{
			Name:     req.Name,
			Email:    req.Email,
			Phone:    phone,
			Course:   req.Course,
			Modality: req.Modality,
			Message:  req.Message,
		}, res, expected)

		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"message":     "lead received",
			"sessionId":   res.SessionID,
			"responsavel": res.AgentName,
		})
	}
}

type fallbackRequest struct {
	SessionID   string `json:"sessionId" binding:"required"`
	Responsavel string `json:"responsavel" binding:"required"`
	Number      string `json:"number" binding:"required"`
}

// handleFallback forwards a message to the visitor's own WhatsApp number.
// Once the payload validates, the endpoint answers 200 no matter what the
// relay does: the client UX must never break on an internal delivery problem.
func handleFallback(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req fallbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "sessionId, responsavel and number are required"})
			return
		}

		if deps.Relay == nil {
			log.Printf("api: fallback requested for %s but no relay is configured", req.SessionID)
		} else {
			text := "Olá! " + req.Responsavel + " é o responsável pelo seu atendimento."
			if err := deps.Relay.SendTo(c.Request.Context(), req.Number, text); err != nil {
				log.Printf("api: fallback relay for %s: %v", req.SessionID, err)
			}
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// clientID identifies the caller for rate limiting: first hop of
// X-Forwarded-For, then X-Real-Ip, then the socket address.
func clientID(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	if rip := c.GetHeader("X-Real-Ip"); rip != "" {
		return rip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// internalError answers 500, suppressing detail unless debug mode is on.
func internalError(c *gin.Context, deps Deps, err error) {
	log.Printf("api: %v", err)
	msg := "internal error"
	if deps.Config.App.Debug {
		msg = err.Error()
	}
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": msg})
}
