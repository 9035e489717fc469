package api

import (
	"net/http"

	"github.com/Domenick1991/itinerary-booking/config"
	"github.com/Domenick1991/itinerary-booking/internal/auth"
	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// ActorMiddleware picks the staging namespace of a request: the JWT user when a
// bearer token is present, otherwise the anonymous session cookie, which is
// issued on first use.
func ActorMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)
	maxAge := cfg.SessionMaxAgeDay * 24 * 60 * 60

	return func(c *gin.Context) {
		userID, ok, err := auth.UserFromBearer(c.GetHeader("Authorization"), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if ok {
			c.Set(actorKey, auth.UserNamespace(userID))
			c.Next()
			return
		}

		sessionID, _ := c.Cookie(cfg.SessionCookie)
		ns, valid := auth.AnonymousNamespace(sessionID)
		if !valid {
			sessionID = auth.NewSessionID()
			ns, _ = auth.AnonymousNamespace(sessionID)
			c.SetCookie(cfg.SessionCookie, sessionID, maxAge, "/", "", false, true)
		}
		c.Set(actorKey, ns)
		c.Next()
	}
}

func namespaceOf(c *gin.Context) domain.Namespace {
	if v, ok := c.Get(actorKey); ok {
		if ns, ok := v.(domain.Namespace); ok {
			return ns
		}
	}
	return domain.Namespace{}
}
