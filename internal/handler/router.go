package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tablero/web"
)

type RouterOptions struct {
	LoginRate  float64
	LoginBurst int
}

// NewRouter wires the middleware chain, templates and routes.
func NewRouter(h *Handler, logger *zap.Logger, opts RouterOptions) (*gin.Engine, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	// Composite keys may carry escaped slashes.
	r.UseRawPath = true
	r.Use(gin.Recovery(), RequestLogger(logger))
	r.SetHTMLTemplate(tmpl)

	r.GET("/ping", Ping)

	limiter := NewRateLimiter(opts.LoginRate, opts.LoginBurst, 10*time.Minute)

	app := r.Group("/", h.Sessions())
	app.GET("/", h.Index)

	app.GET("/registro", h.RegisterPage)
	app.POST("/registro", limiter.Middleware(), h.RegisterHandler)
	app.GET("/login", h.LoginPage)
	app.POST("/login", limiter.Middleware(), h.LoginHandler)
	app.GET("/logout", h.LogoutHandler)

	app.GET("/ver_tabla/:table", h.ViewTableHandler)
	app.GET("/ver_vista/:view", h.ViewViewHandler)
	app.POST("/crear/:table", h.CreateRecordHandler)
	app.POST("/actualizar/:table/:key", h.UpdateRecordHandler)
	app.POST("/eliminar/:table/:key", h.DeleteRecordHandler)

	return r, nil
}
