package server

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-roast/internal/analyses"
	googleauth "resume-roast/internal/auth"
	"resume-roast/internal/services/health"
	"resume-roast/internal/shared/auth"
	"resume-roast/internal/shared/config"
	"resume-roast/internal/shared/metrics"
	"resume-roast/internal/shared/server/middleware"
	"resume-roast/internal/users"
)

//go:embed templates/index.html
var templatesFS embed.FS

var landingTemplate = template.Must(template.New("index.html").ParseFS(templatesFS, "templates/index.html"))

// RouterDeps carries the handlers the router mounts. Nil handlers skip
// their routes.
type RouterDeps struct {
	Config          config.Config
	Verifier        auth.Verifier
	RateLimiter     *middleware.RateLimiter
	Health          *health.Service
	AnalysisHandler *analyses.Handler
	FileHandler     *analyses.FileHandler
	UserHandler     *users.Handler
	GoogleAuth      *googleauth.GoogleService
	QuotaMax        int
}

// landingData is the public config rendered into the landing page.
type landingData struct {
	AppName   string
	APIBase   string
	SignInURL string
	QuotaMax  int
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.SetHTMLTemplate(landingTemplate)

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		metrics.Middleware(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	landing := landingData{
		AppName:  deps.Config.AppName,
		APIBase:  "/api",
		QuotaMax: deps.QuotaMax,
	}
	if deps.GoogleAuth != nil && deps.GoogleAuth.Configured() {
		landing.SignInURL = googleauth.StartPath
	}
	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", landing)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.Health.Status(c.Request.Context()))
	})
	r.GET("/metrics", metrics.Handler())

	public := r.Group("/api")
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(public)
	}
	if deps.FileHandler != nil {
		deps.FileHandler.RegisterRoutes(public)
	}

	api := r.Group("/api", middleware.Auth(deps.Verifier))
	if deps.RateLimiter != nil {
		api.Use(middleware.RateLimit(deps.RateLimiter))
	}
	if deps.UserHandler != nil {
		api.Use(deps.UserHandler.Touch())
		deps.UserHandler.RegisterRoutes(api)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
