package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fido2backend/app"
	"fido2backend/controllers"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	s := controllers.GetSrv(a)
	authMW := app.AuthRequired(a.Tokens)

	r.GET("/healthz", func(c *app.Ctx) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		dbUp := a.DB != nil
		if dbUp {
			if conn, err := a.DB.DB(); err != nil || conn.PingContext(ctx) != nil {
				dbUp = false
			}
		}
		redisUp := a.RDB.Ping(ctx).Err() == nil

		status := http.StatusOK
		if !dbUp || !redisUp {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, app.H{"db": up(dbUp), "redis": up(redisUp)})
	})

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"status": "ok"}) })

		v1.POST("/register/start", s.RegisterStart)
		v1.POST("/register/finish", s.RegisterFinish)
		v1.POST("/login/start", s.LoginStart)
		v1.POST("/login/finish", s.LoginFinish)
	}

	authed := v1.Group("", authMW)
	{
		authed.GET("/whoami", s.WhoAmI)
		authed.GET("/credentials", s.ListCredentials)
		authed.DELETE("/users/me", s.DeleteMe)
	}
}

func up(ok bool) string {
	if ok {
		return "up"
	}
	return "down"
}
