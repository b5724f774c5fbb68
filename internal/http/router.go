package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/filecrate/filecrate/internal/blob"
	"github.com/filecrate/filecrate/internal/service"
	"github.com/filecrate/filecrate/internal/store"
	"github.com/filecrate/filecrate/pkg/httpx"
	"github.com/filecrate/filecrate/pkg/jwtx"
	"github.com/filecrate/filecrate/pkg/slogx"

	_ "github.com/filecrate/filecrate/api/docs" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	Blobs          *blob.Store
	AuthService    *service.AuthService
	FileService    *service.FileService
	MaxUploadBytes int64
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerFiles()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			FileCrate API
//	@version		0.1.0
//	@description	Authenticated file vault: register an account, log in for a bearer
//	@description	token, then upload, list, download, and delete your own files.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	signupHandler := &SignupHandler{AuthService: r.AuthService}
	loginHandler := &LoginHandler{AuthService: r.AuthService}

	// Credential endpoints get the strict limit; they are the brute-force
	// surface of the whole service.
	r.Mux.Handle("POST /api/signup",
		httpx.Chain(signupHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerFiles() {
	uploadHandler := &UploadHandler{
		FileService:    r.FileService,
		MaxUploadBytes: r.MaxUploadBytes,
	}
	filesHandler := &FilesHandler{FileService: r.FileService}

	secured := func(h http.Handler) http.Handler {
		return httpx.Chain(h,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /api/upload", secured(uploadHandler))
	r.Mux.Handle("GET /api/files", secured(http.HandlerFunc(filesHandler.HandleList)))
	r.Mux.Handle("GET /api/files/{id}/download", secured(http.HandlerFunc(filesHandler.HandleDownload)))
	r.Mux.Handle("DELETE /api/files/{id}", secured(http.HandlerFunc(filesHandler.HandleDelete)))
}

func (r *Router) registerSystem() {
	// Monitoring may poll these frequently, so they stay lenient.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.Blobs),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
