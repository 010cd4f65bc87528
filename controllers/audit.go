package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/hospital-app/services"
)

// auditFromContext builds the explicit audit context handed to every store
// transition: actor from the JWT claims, client IP from the request.
func auditFromContext(c *gin.Context) services.AuditContext {
	audit := services.AuditContext{ClientIP: c.ClientIP()}
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(uint); ok {
			audit.ActorID = id
		}
	}
	return audit
}

// currentUserID extracts the authenticated user id set by the auth middleware
func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
