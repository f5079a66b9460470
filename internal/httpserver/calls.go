package httpserver

import (
	"errors"
	"io"
	"log"
	"net/http"

	"voiceshop/internal/service/calls"

	"github.com/gin-gonic/gin"
)

// healthCheckHeader short-circuits the trigger handler so the settings UI
// can probe deployment health without placing a real call.
const healthCheckHeader = "X-Health-Check"

type triggerCallRequest struct {
	ToPhoneNumber string `json:"toPhoneNumber" form:"toPhoneNumber"`
	BusinessName  string `json:"businessName" form:"businessName"`
	Notes         string `json:"notes" form:"notes"`
}

func triggerCallHandler(svc *calls.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(healthCheckHeader) != "" {
			c.JSON(http.StatusOK, gin.H{"ok": true, "envPresent": svc.EnvReport()})
			return
		}

		var req triggerCallRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if req.ToPhoneNumber == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing toPhoneNumber"})
			return
		}

		resp, err := svc.TriggerCall(c.Request.Context(), calls.TriggerInput{
			ToPhoneNumber: req.ToPhoneNumber,
			BusinessName:  req.BusinessName,
			Notes:         req.Notes,
		})
		if err != nil {
			switch {
			case errors.Is(err, calls.ErrInvalidPhone):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number, expected E.164 format"})
			case errors.Is(err, calls.ErrMissingConfig):
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Missing required environment variables"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Function crashed", "detail": err.Error()})
			}
			return
		}

		// Forward the upstream payload verbatim; a 2xx collapses to 200.
		status := resp.StatusCode
		if resp.OK() {
			status = http.StatusOK
		}
		contentType := "text/plain; charset=utf-8"
		if resp.IsJSON {
			contentType = "application/json"
		}
		c.Data(status, contentType, resp.Body)
	}
}

func callMarkupHandler(svc *calls.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		// The telephony provider requires a parseable XML body whatever
		// happens, so even a panic must render the generic document.
		defer func() {
			if r := recover(); r != nil {
				c.Data(http.StatusInternalServerError, "text/xml; charset=utf-8", calls.GenericErrorMarkup())
			}
		}()
		body, status := svc.CallMarkup(c.Request.Context())
		c.Data(status, "text/xml; charset=utf-8", body)
	}
}

func statusReachableHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "status endpoint reachable"})
}

func statusCallbackHandler(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"ok": true})
			return
		}
		payload := calls.NormalizeStatusPayload(c.ContentType(), body)
		logger.Printf("status callback: %v", payload)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
