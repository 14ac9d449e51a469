// Package server serves the portal HTTP API: the cookie session routes and the
// authenticated proxy routes in front of the backend.
package server

import (
	"net/http"

	"github.com/Dorico-Dynamics/txova-go-core/logging"

	"github.com/Dorico-Dynamics/txova-go-portal/auth"
	"github.com/Dorico-Dynamics/txova-go-portal/external/errorreport"
	"github.com/Dorico-Dynamics/txova-go-portal/services/account"
	"github.com/Dorico-Dynamics/txova-go-portal/services/catalog"
	"github.com/Dorico-Dynamics/txova-go-portal/services/club"
	"github.com/Dorico-Dynamics/txova-go-portal/services/order"
	"github.com/Dorico-Dynamics/txova-go-portal/services/post"
	"github.com/Dorico-Dynamics/txova-go-portal/services/profile"
)

// DefaultLoginPage is where unauthenticated /profile pages are redirected.
const DefaultLoginPage = "/login"

// Services are the backend clients behind the portal routes.
type Services struct {
	Account  *account.Client
	Profile  *profile.Client
	Club     *club.Client
	Post     *post.Client
	Catalog  *catalog.Client
	Order    *order.Client
	Reporter *errorreport.Reporter
}

// Config holds the server configuration.
type Config struct {
	// Production enables Secure cookies and hides error details.
	Production bool

	// Cookies overrides the session cookie names (default: access/refresh).
	Cookies auth.CookieNames

	// LoginPage is the redirect target of the profile guard (default: "/login").
	LoginPage string
}

// Server is the portal HTTP handler.
type Server struct {
	svc     Services
	cookies CookiePolicy
	resp    *Responder
	logger  *logging.Logger
	handler http.Handler
}

// New creates the portal handler.
func New(cfg Config, svc Services, logger *logging.Logger) *Server {
	cookies := NewCookiePolicy(cfg.Production)
	if cfg.Cookies.Access != "" && cfg.Cookies.Refresh != "" {
		cookies.Names = cfg.Cookies
	}
	loginPage := cfg.LoginPage
	if loginPage == "" {
		loginPage = DefaultLoginPage
	}

	s := &Server{
		svc:     svc,
		cookies: cookies,
		resp:    &Responder{Production: cfg.Production, Logger: logger},
		logger:  logger,
	}

	s.handler = chain(s.routes(),
		s.recovery,
		requestID,
		s.accessLog,
		ProfileGuard(cookies.Names.Access, loginPage),
	)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("POST /api/register", s.handleRegister)

	mux.Handle("GET /api/profile", s.authed(s.getProfile, MsgUnauthorized, http.StatusUnauthorized))
	mux.Handle("PATCH /api/profile", s.authed(s.updateProfile, MsgProfileUpdateFailed, http.StatusBadRequest))
	mux.HandleFunc("DELETE /api/profile", s.handleDeleteProfile)
	mux.Handle("POST /api/profile/password", s.authed(s.changePassword, MsgPasswordChangeFailed, http.StatusUnauthorized))

	mux.Handle("GET /api/clubs/{slug}", s.authed(s.getClub, MsgClubLoadFailed, http.StatusBadRequest))
	mux.Handle("PATCH /api/clubs/{slug}", s.authed(s.updateClub, MsgClubUpdateFailed, http.StatusBadRequest))
	mux.Handle("DELETE /api/clubs/{slug}", s.authed(s.deleteClub, MsgClubDeleteFailed, http.StatusBadRequest))
	mux.Handle("GET /api/clubs/{slug}/players", s.authed(s.listPlayers, MsgPlayersLoadFailed, http.StatusBadRequest))
	mux.Handle("POST /api/clubs/{slug}/players", s.authed(s.addPlayer, MsgPlayerAddFailed, http.StatusBadRequest))
	mux.Handle("PATCH /api/clubs/{slug}/players", s.authed(s.patchPlayer, MsgPlayerUpdateFailed, http.StatusBadRequest))
	mux.Handle("GET /api/clubs/{slug}/posts", s.authed(s.listClubPosts, MsgClubPostsLoadFailed, http.StatusBadRequest))
	mux.Handle("GET /api/clubs/{slug}/news", s.authed(s.listClubNews, MsgNewsLoadFailed, http.StatusBadRequest))

	mux.Handle("GET /api/posts/global", s.authed(s.listGlobalPosts, MsgPostsLoadFailed, http.StatusBadRequest))
	mux.Handle("GET /api/posts/global/{postId}", s.authed(s.getGlobalPost, MsgPostLoadFailed, http.StatusBadRequest))
	mux.Handle("GET /api/posts/club/{clubSlug}", s.authed(s.listClubScopedPosts, MsgPostsLoadFailed, http.StatusBadRequest))
	mux.Handle("GET /api/posts/club/{clubSlug}/{postId}", s.authed(s.getClubPost, MsgPostLoadFailed, http.StatusBadRequest))
	mux.Handle("GET /api/posts/athlete/{athleteSlug}", s.authed(s.listAthletePosts, MsgPostsLoadFailed, http.StatusBadRequest))
	mux.Handle("GET /api/posts/athlete/{athleteSlug}/{postId}", s.authed(s.getAthletePost, MsgPostLoadFailed, http.StatusBadRequest))

	mux.Handle("GET /api/orders", s.authed(s.listOrders, MsgUnauthorized, http.StatusUnauthorized))
	mux.Handle("GET /api/orders/{id}", s.authed(s.getOrder, MsgUnauthorized, http.StatusUnauthorized))

	mux.Handle("GET /api/products", s.resp.WithRouteError(s.handleProducts, MsgProductsLoadFailed, http.StatusInternalServerError))
	mux.HandleFunc("POST /api/error-log", s.handleErrorLog)

	return mux
}
