package echoServer

import (
	"net/http"

	adminctrl "creditdesk/app/echoServer/controller/admin"
	"creditdesk/app/echoServer/jwtx"
	"creditdesk/model"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

type C struct {
	Admin     *adminctrl.Controller
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	g := e.Group("/v1/admin")
	g.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
		},
	}))
	g.Use(adminIdentity())

	g.POST("/billing/credits/adjust", c.Admin.Adjust)
	g.POST("/billing/credits/grant-bulk", c.Admin.GrantBulk)
	g.POST("/billing/refund", c.Admin.Refund)
	g.GET("/billing/user/:account_id/summary", c.Admin.Summary)
	g.GET("/billing/user/:account_id/transactions", c.Admin.Transactions)
	g.POST("/billing/user/search", c.Admin.Search)
	g.POST("/billing/migrate-user/:account_id", c.Admin.Migrate)
	g.GET("/users/search/email", c.Admin.SearchByEmail)
	g.GET("/actions", c.Admin.Actions)
}

// adminIdentity turns the verified claims into a model.AdminIdentity and
// rejects callers outside the admin tiers. The core trusts these claims;
// minting them is the identity provider's job.
func adminIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			var claims jwt.MapClaims
			switch v := ctx.Get("user").(type) {
			case *jwt.Token:
				claims, _ = v.Claims.(jwt.MapClaims)
			case jwt.MapClaims:
				claims = v
			}
			if claims == nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			sub, _ := claims["sub"].(string)
			role, _ := claims["role"].(string)
			if sub == "" {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			switch model.Role(role) {
			case model.RoleAdmin, model.RoleSuperAdmin:
			default:
				return ctx.JSON(http.StatusForbidden, echo.Map{"message": "admin access required"})
			}
			ctx.Set(jwtx.ContextKey, model.AdminIdentity{AccountID: sub, Role: model.Role(role)})
			return next(ctx)
		}
	}
}
