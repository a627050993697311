// Package webhook exposes the public lead-capture endpoint. Callers
// authenticate with a per-operator key instead of a JWT.
package webhook

import (
	"context"

	"leadpilot_backend/internal/users"
	"leadpilot_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const keyHeader = "X-Webhook-Key"

const contextUserKey = "webhookUser"

// KeyResolver maps a webhook key to the owning operator.
type KeyResolver interface {
	GetByWebhookKey(ctx context.Context, key string) (users.User, error)
}

// KeyAuth resolves the X-Webhook-Key header to an operator and stores it on
// the request context. Unknown keys abort with 401.
func KeyAuth(keys KeyResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := keys.GetByWebhookKey(c.Request.Context(), c.GetHeader(keyHeader))
		if httpkit.HandleError(c, err) {
			c.Abort()
			return
		}
		c.Set(contextUserKey, user)
		c.Next()
	}
}

func webhookUser(c *gin.Context) (users.User, bool) {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return users.User{}, false
	}
	user, ok := value.(users.User)
	return user, ok
}
