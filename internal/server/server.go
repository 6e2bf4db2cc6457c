// internal/server/server.go
//
// Routes for the drinks API.
//
/*
Context
--------
`NewRouter` wires the chi tree.  Public routes:

  GET  /            index of endpoints
  GET  /config      client bootstrap (API URL and Auth0 settings)
  GET  /login       302 to the Auth0 authorize page
  GET  /drinks      menu, short form

Protected routes, each gated by one Auth0 permission:

  GET    /drinks-detail  get:drinks-detail  menu, long form
  POST   /drinks         post:drinks        create
  PATCH  /drinks/{id}    patch:drinks       update
  DELETE /drinks/{id}    delete:drinks      delete

Every failure uses the envelope `{"success": false, "error": <status>,
"message": <text>}`.

The router receives the loaded Configuration by value.  It never reads a
global and never sees the Provider.
*/
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/drinks/internal/auth"
	"github.com/yanizio/drinks/internal/config"
	"github.com/yanizio/drinks/internal/drink"
	"github.com/yanizio/drinks/internal/middleware"
)

// Store is the persistence surface the handlers need.  *drink.Repository
// satisfies it.
type Store interface {
	List(ctx context.Context) ([]drink.Drink, error)
	Get(ctx context.Context, id int64) (drink.Drink, error)
	Create(ctx context.Context, in drink.Input) (drink.Drink, error)
	Update(ctx context.Context, id int64, p drink.Patch) (drink.Drink, error)
	Delete(ctx context.Context, id int64) error
}

// Deps are the collaborators NewRouter wires together.
type Deps struct {
	Config config.Configuration
	Store  Store
	Auth   auth.Authenticator
	Log    *zap.SugaredLogger
	// Metrics, when non-nil, is mounted at /metrics.
	Metrics http.Handler
}

type api struct {
	cfg   config.Configuration
	store Store
	log   *zap.SugaredLogger
}

// NewRouter builds the full handler tree.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.S()
	}
	a := &api{cfg: d.Config, store: d.Store, log: d.Log}

	r := chi.NewRouter()
	r.Use(
		middleware.AccessLog(d.Log),
		chimw.Recoverer,
		middleware.ForceHTTPS(d.Config.ProductionMode),
		middleware.Security(d.Config.ProductionMode),
		middleware.CORS(),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed)
	})

	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Get("/", a.index)
	r.Get("/config", a.clientConfig)
	r.Get("/login", a.login)
	r.Get("/drinks", a.listDrinks)

	need := func(perm string) func(http.Handler) http.Handler {
		return auth.RequirePermission(d.Auth, perm, writeAuthError)
	}
	r.With(need("get:drinks-detail")).Get("/drinks-detail", a.listDrinksDetail)
	r.With(need("post:drinks")).Post("/drinks", a.createDrink)
	r.With(need("patch:drinks")).Patch("/drinks/{id}", a.updateDrink)
	r.With(need("delete:drinks")).Delete("/drinks/{id}", a.deleteDrink)

	return r
}

func (a *api) index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"/drinks": "List drinks"})
}

// clientBootstrap is what a browser client needs to talk to this API and to
// log in.  The client id is public in the implicit flow.
type clientBootstrap struct {
	Production   bool   `json:"production"`
	APIServerURL string `json:"apiServerUrl"`
	Auth0        struct {
		URL         string `json:"url"`
		Audience    string `json:"audience"`
		ClientID    string `json:"clientId"`
		CallbackURL string `json:"callbackURL"`
	} `json:"auth0"`
}

func (a *api) clientConfig(w http.ResponseWriter, _ *http.Request) {
	var b clientBootstrap
	b.Production = a.cfg.ProductionMode
	b.APIServerURL = a.cfg.APIServerURL
	b.Auth0.URL = a.cfg.IdentityProvider.DomainPrefix
	b.Auth0.Audience = a.cfg.IdentityProvider.Audience
	b.Auth0.ClientID = a.cfg.IdentityProvider.ClientID
	b.Auth0.CallbackURL = a.cfg.IdentityProvider.CallbackURL
	writeJSON(w, http.StatusOK, b)
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, a.cfg.IdentityProvider.AuthorizeURL(), http.StatusFound)
}
