package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-travel-session/clients"
	fakeclientrepo "github.com/jrsteele09/go-travel-session/clients/fakerepo"
	"github.com/jrsteele09/go-travel-session/internal/config"
	"github.com/jrsteele09/go-travel-session/token/jwt"
	"github.com/jrsteele09/go-travel-session/token/keys"
	"github.com/jrsteele09/go-travel-session/token/refresh"
	"github.com/jrsteele09/go-travel-session/users"
	fakeuserrepo "github.com/jrsteele09/go-travel-session/users/repofake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const signingKeyID = "travel-dev-1"

// Repos are the dev server's stores. All of them are in memory.
type Repos struct {
	Users         users.UserRepo
	Clients       clients.Repo
	RefreshTokens refresh.Repo
}

// Server is the dev stand-in for the travel REST backend and its two refresh
// endpoints. It issues short lived RS256 access tokens and rotating refresh
// tokens so the session client can be exercised end to end.
type Server struct {
	env     string
	issuer  string
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	repos   Repos
	signer  keys.Signer
	creator *jwt.Creator
	tokens  *jwt.Inspector
	refresh *refresh.Manager
	metrics *serverMetrics

	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
}

type Option func(*Server)

// WithIssuer overrides the configured base URL as token issuer and discovery root.
func WithIssuer(issuer string) Option {
	return func(s *Server) {
		s.issuer = strings.TrimSuffix(issuer, "/")
	}
}

// WithSigner replaces the generated signing key.
func WithSigner(signer keys.Signer) Option {
	return func(s *Server) {
		s.signer = signer
	}
}

// WithRepos replaces the in-memory fixture stores.
func WithRepos(repos Repos) Option {
	return func(s *Server) {
		s.repos = repos
	}
}

// WithMetricsRegistry registers the server metrics on reg and serves reg on /metrics.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registerer = reg
		s.gatherer = reg
	}
}

func New(cfg config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		env:    cfg.GetEnv(),
		issuer: strings.TrimSuffix(cfg.GetBaseURL(), "/"),
		mux:    http.NewServeMux(),
		config: cfg,
		repos: Repos{
			Users:         fakeuserrepo.NewFakeUserRepo(),
			Clients:       fakeclientrepo.NewFakeClientRepo(),
			RefreshTokens: refresh.NewInMemoryRepo(),
		},
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.signer == nil {
		signer, err := keys.NewGeneratedSigner(signingKeyID)
		if err != nil {
			return nil, fmt.Errorf("[Server New] failed to generate signing key: %w", err)
		}
		s.signer = signer
	}
	s.creator = jwt.NewCreator(s.issuer, cfg, s.signer)
	s.tokens = jwt.NewInspector(s.issuer, s.signer)
	s.refresh = refresh.NewManager(s.repos.RefreshTokens, cfg)

	m, err := newServerMetrics(s.registerer)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to register metrics: %w", err)
	}
	s.metrics = m

	if err := s.InitialiseSystem(cfg); err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Issuer is the token issuer and discovery root.
func (s *Server) Issuer() string {
	return s.issuer
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Info().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
