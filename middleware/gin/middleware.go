package ginmw

import (
	"github.com/gin-gonic/gin"

	modelkit "github.com/reoring/modelkit"
	"github.com/reoring/modelkit/middleware"
)

// Decode builds an instance of c from the request JSON and stores it in the
// request context. On failure it aborts with middleware.ErrorPayload.
func Decode(c *modelkit.Class, opt middleware.Opt) gin.HandlerFunc {
	return func(gc *gin.Context) {
		inst, err := middleware.DecodeBody(c, gc.Request.Body, opt)
		if err != nil {
			gc.AbortWithStatusJSON(middleware.Status(err), middleware.ErrorPayload(err))
			return
		}
		gc.Request = gc.Request.WithContext(middleware.ContextWithInstance(gc.Request.Context(), inst))
		gc.Next()
	}
}

// Instance fetches the decoded instance from gin.Context.
func Instance(gc *gin.Context) (*modelkit.Instance, bool) {
	return middleware.InstanceFromContext(gc.Request.Context())
}
