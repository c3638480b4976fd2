package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/shared"
)

const (
	// EmployeeIDHeader and EmployeeNameHeader are set by the upstream auth proxy
	EmployeeIDHeader   = "X-Employee-ID"
	EmployeeNameHeader = "X-Employee-Name"

	actorKey = "actor"
)

// RequireActor rejects requests that do not identify the acting employee
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := shared.Actor{
			EmployeeID:   strings.TrimSpace(c.GetHeader(EmployeeIDHeader)),
			EmployeeName: strings.TrimSpace(c.GetHeader(EmployeeNameHeader)),
		}
		if err := actor.Validate(); err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED",
				EmployeeIDHeader+" and "+EmployeeNameHeader+" headers are required")
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// GetActor returns the actor stored by RequireActor
func GetActor(c *gin.Context) shared.Actor {
	if v, exists := c.Get(actorKey); exists {
		if actor, ok := v.(shared.Actor); ok {
			return actor
		}
	}
	return shared.Actor{}
}
