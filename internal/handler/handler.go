package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tablero/internal/catalog"
	"tablero/internal/model"
	"tablero/internal/policy"
	"tablero/internal/service"
	"tablero/internal/session"
)

type Options struct {
	SessionTTL   time.Duration
	CookieSecure bool
	BcryptCost   int
}

type Handler struct {
	db       service.DBClient
	catalog  *catalog.Catalog
	policy   *policy.Policy
	sessions session.Store
	logger   *zap.Logger
	opts     Options
}

func New(db service.DBClient, cat *catalog.Catalog, sessions session.Store, logger *zap.Logger, opts Options) *Handler {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.SessionTTL == 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	return &Handler{
		db:       db,
		catalog:  cat,
		policy:   policy.New(cat),
		sessions: sessions,
		logger:   logger,
		opts:     opts,
	}
}

func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// Index lists the tables and views the current role may open.
func (h *Handler) Index(c *gin.Context) {
	sess := currentSession(c)

	h.render(c, http.StatusOK, "index.html", gin.H{
		"tables": names(policy.Visible(sess.Role, h.catalog.Tables())),
		"views":  names(policy.Visible(sess.Role, h.catalog.Views())),
	})
}

func names(specs []model.TableSpec) []string {
	out := make([]string, len(specs))
	for i, spec := range specs {
		out[i] = spec.Name
	}
	return out
}

// render pops the session's flashes and negotiates between the HTML template
// and a JSON body. data is extended with the session and flashes.
func (h *Handler) render(c *gin.Context, code int, name string, data gin.H) {
	sess := currentSession(c)
	flashes := sess.PopFlashes()
	if flashes == nil {
		flashes = []model.Flash{}
	}
	h.saveSession(c, sess)

	data["flashes"] = flashes
	jsonData := gin.H{}
	for k, v := range data {
		jsonData[k] = v
	}
	data["session"] = sess

	c.Negotiate(code, gin.Negotiate{
		Offered:  []string{gin.MIMEHTML, gin.MIMEJSON},
		HTMLName: name,
		HTMLData: data,
		JSONData: jsonData,
	})
}

// redirect flashes message and sends the visitor to location.
func (h *Handler) redirect(c *gin.Context, category, message, location string) {
	sess := currentSession(c)
	sess.AddFlash(category, message)
	h.saveSession(c, sess)
	c.Redirect(http.StatusFound, location)
}

func (h *Handler) saveSession(c *gin.Context, sess *model.Session) {
	if err := h.sessions.Save(c.Request.Context(), sess); err != nil {
		h.logger.Error("Failed to save session", zap.Error(err), zap.String("request_id", requestID(c)))
	}
}

// errorMessage returns the text shown to the user for a failed statement.
func errorMessage(err error) string {
	var qe *service.QueryError
	if errors.As(err, &qe) {
		return qe.Message()
	}
	return err.Error()
}
