package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/libranova/library-service/internal/errs"
)

// The identity provider in front of this service resolves credentials and
// forwards the caller's identity via trusted headers.
const (
	XUserNameHeader = "X-User-Name"
	XUserRoleHeader = "X-User-Role"

	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

type Actor struct {
	Name string
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type actorKey struct{}

func SetAuthContext(ctx context.Context, userName, userRole string) context.Context {
	return context.WithValue(ctx, actorKey{}, Actor{Name: userName, Role: userRole})
}

func FromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// AuthContext trusts the identity headers and stashes the actor in the
// request context.
func AuthContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		userName := req.Header.Get(XUserNameHeader)
		if userName == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, errs.ErrUserName.Error())
		}
		userRole := req.Header.Get(XUserRoleHeader)
		if userRole == "" {
			userRole = RoleUser
		}
		ctx := SetAuthContext(req.Context(), userName, userRole)
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

func GetActor(c echo.Context) (Actor, error) {
	actor, ok := FromContext(c.Request().Context())
	if !ok {
		return Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "no auth context")
	}
	return actor, nil
}
