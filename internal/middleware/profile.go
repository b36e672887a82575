package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ProfileHeader carries the client-selected profile name. The app has
	// no authentication; the acting user is whatever profile the client
	// chose.
	ProfileHeader = "X-Profile-Name"

	profileKey = "profile_name"

	// DefaultActor is recorded when no profile header is present.
	DefaultActor = "System"
)

// Profile resolves the acting profile name for the request and stores it in
// the request context.
func Profile() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.GetHeader(ProfileHeader))
		if name == "" {
			name = DefaultActor
		}
		c.Set(profileKey, name)
		c.Next()
	}
}

// GetActor returns the profile name resolved by Profile, or DefaultActor if
// the middleware did not run.
func GetActor(c *gin.Context) string {
	if v, ok := c.Get(profileKey); ok {
		if name, ok := v.(string); ok && name != "" {
			return name
		}
	}
	return DefaultActor
}
