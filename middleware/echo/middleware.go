package echomw

import (
	"github.com/labstack/echo/v4"

	modelkit "github.com/reoring/modelkit"
	"github.com/reoring/modelkit/middleware"
)

// Decode builds an instance of c from the request JSON, stores it in the
// request context on success, or answers with middleware.ErrorPayload.
func Decode(c *modelkit.Class, opt middleware.Opt) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			inst, err := middleware.DecodeBody(c, ec.Request().Body, opt)
			if err != nil {
				return ec.JSON(middleware.Status(err), middleware.ErrorPayload(err))
			}
			ctx := middleware.ContextWithInstance(ec.Request().Context(), inst)
			ec.SetRequest(ec.Request().WithContext(ctx))
			return next(ec)
		}
	}
}

// Instance fetches the decoded instance from echo.Context.
func Instance(ec echo.Context) (*modelkit.Instance, bool) {
	return middleware.InstanceFromContext(ec.Request().Context())
}
