// app/echoServer/jwtx/admin.go
package jwtx

import (
	"errors"

	"creditdesk/model"

	"github.com/labstack/echo/v4"
)

const ContextKey = "admin"

// AdminFromContext returns the verified caller identity placed in the
// context by the admin-group middleware.
func AdminFromContext(c echo.Context) (model.AdminIdentity, error) {
	id, ok := c.Get(ContextKey).(model.AdminIdentity)
	if !ok || id.AccountID == "" {
		return model.AdminIdentity{}, errors.New("no admin identity in context")
	}
	return id, nil
}
