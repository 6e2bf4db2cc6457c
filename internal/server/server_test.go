package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/yanizio/drinks/internal/auth"
	"github.com/yanizio/drinks/internal/config"
	"github.com/yanizio/drinks/internal/drink"
)

/*──────────────────────────── fakes ───────────────────────────────────────*/

type memStore struct {
	next   int64
	drinks map[int64]drink.Drink
}

func newMemStore() *memStore {
	return &memStore{next: 1, drinks: map[int64]drink.Drink{}}
}

func (m *memStore) List(context.Context) ([]drink.Drink, error) {
	out := make([]drink.Drink, 0, len(m.drinks))
	for id := int64(1); id < m.next; id++ {
		if d, ok := m.drinks[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id int64) (drink.Drink, error) {
	d, ok := m.drinks[id]
	if !ok {
		return drink.Drink{}, drink.ErrNotFound
	}
	return d, nil
}

func (m *memStore) Create(_ context.Context, in drink.Input) (drink.Drink, error) {
	if err := in.Validate(); err != nil {
		return drink.Drink{}, err
	}
	for _, d := range m.drinks {
		if d.Title == in.Title {
			return drink.Drink{}, drink.ErrDuplicateTitle
		}
	}
	d := drink.Drink{ID: m.next, Title: in.Title, Recipe: in.Recipe}
	m.drinks[d.ID] = d
	m.next++
	return d, nil
}

func (m *memStore) Update(ctx context.Context, id int64, p drink.Patch) (drink.Drink, error) {
	d, err := m.Get(ctx, id)
	if err != nil {
		return d, err
	}
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Recipe != nil {
		d.Recipe = *p.Recipe
	}
	m.drinks[id] = d
	return d, nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	if _, ok := m.drinks[id]; !ok {
		return drink.ErrNotFound
	}
	delete(m.drinks, id)
	return nil
}

// tokenAuth treats the bearer token as a comma-separated permission list.
type tokenAuth struct{}

func (tokenAuth) Verify(_ context.Context, raw string) (*auth.Claims, error) {
	if raw == "expired" {
		return nil, auth.ErrTokenExpired
	}
	return &auth.Claims{Permissions: strings.Split(raw, ",")}, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func testConfig() config.Configuration {
	return config.Configuration{
		ProductionMode: false,
		APIServerURL:   "http://127.0.0.1:5000",
		IdentityProvider: config.IdentityProvider{
			DomainPrefix: "alexparra.eu",
			Audience:     "fsnd-drinks.alex-parra.com",
			ClientID:     "1vztlBsibNgM6I3IKzBm5V70wOiGFDO8",
			CallbackURL:  "http://localhost:4200",
		},
	}
}

func newTestRouter(store Store) http.Handler {
	return NewRouter(Deps{
		Config: testConfig(),
		Store:  store,
		Auth:   tokenAuth{},
		Log:    zap.NewNop().Sugar(),
	})
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return m
}

const waterBody = `{"title":"water","recipe":[{"name":"water","color":"blue","parts":1}]}`

/*──────────────────────────── tests ───────────────────────────────────────*/

func TestIndex(t *testing.T) {
	rr := do(t, newTestRouter(newMemStore()), http.MethodGet, "/", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if decode(t, rr)["/drinks"] != "List drinks" {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestClientConfig(t *testing.T) {
	rr := do(t, newTestRouter(newMemStore()), http.MethodGet, "/config", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var got clientBootstrap
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.APIServerURL != "http://127.0.0.1:5000" ||
		got.Auth0.URL != "alexparra.eu" ||
		got.Auth0.ClientID != "1vztlBsibNgM6I3IKzBm5V70wOiGFDO8" ||
		got.Auth0.CallbackURL != "http://localhost:4200" {
		t.Fatalf("unexpected bootstrap: %+v", got)
	}
}

func TestLogin_Redirects(t *testing.T) {
	rr := do(t, newTestRouter(newMemStore()), http.MethodGet, "/login", "", "")
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d", rr.Code)
	}
	u, err := url.Parse(rr.Header().Get("Location"))
	if err != nil || u.Host != "alexparra.eu.auth0.com" {
		t.Fatalf("Location = %q", rr.Header().Get("Location"))
	}
}

func TestDrinksLifecycle(t *testing.T) {
	h := newTestRouter(newMemStore())

	rr := do(t, h, http.MethodPost, "/drinks", "post:drinks", waterBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("create status = %d body=%s", rr.Code, rr.Body.String())
	}

	// Public list hides ingredient names.
	rr = do(t, h, http.MethodGet, "/drinks", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), `"name"`) {
		t.Fatalf("short form leaked ingredient names: %s", rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/drinks-detail", "get:drinks-detail", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"name":"water"`) {
		t.Fatalf("detail status = %d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodPatch, "/drinks/1", "patch:drinks", `{"title":"sparkling water"}`)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "sparkling water") {
		t.Fatalf("patch status = %d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodDelete, "/drinks/1", "delete:drinks", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}
	body := decode(t, rr)
	if body["success"] != true || body["delete"] != float64(1) {
		t.Fatalf("delete body = %v", body)
	}

	rr = do(t, h, http.MethodDelete, "/drinks/1", "delete:drinks", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rr.Code)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	h := newTestRouter(newMemStore())
	do(t, h, http.MethodPost, "/drinks", "post:drinks", waterBody)

	rr := do(t, h, http.MethodPost, "/drinks", "post:drinks", waterBody)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	body := decode(t, rr)
	if body["success"] != false || body["message"] != "unprocessable" {
		t.Fatalf("envelope = %v", body)
	}
}

func TestCreate_SingleObjectRecipe(t *testing.T) {
	h := newTestRouter(newMemStore())
	rr := do(t, h, http.MethodPost, "/drinks", "post:drinks",
		`{"title":"water","recipe":{"name":"water","color":"blue","parts":1}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreate_BadJSON(t *testing.T) {
	rr := do(t, newTestRouter(newMemStore()), http.MethodPost, "/drinks", "post:drinks", `{`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestProtectedRoutes(t *testing.T) {
	h := newTestRouter(newMemStore())

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
		msg    string
	}{
		{"no token", http.MethodGet, "/drinks-detail", "", http.StatusUnauthorized, "invalid auth header"},
		{"expired", http.MethodGet, "/drinks-detail", "expired", http.StatusUnauthorized, "token expired"},
		{"wrong perm", http.MethodPost, "/drinks", "get:drinks-detail", http.StatusForbidden, "Permission not found."},
		{"patch missing", http.MethodPatch, "/drinks/42", "patch:drinks", http.StatusNotFound, "resource not found"},
		{"bad id", http.MethodDelete, "/drinks/abc", "delete:drinks", http.StatusNotFound, "resource not found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, tc.method, tc.path, tc.token, `{"title":"x"}`)
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
			body := decode(t, rr)
			if body["message"] != tc.msg || body["error"] != float64(tc.want) {
				t.Fatalf("envelope = %v", body)
			}
		})
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newTestRouter(newMemStore())

	if rr := do(t, h, http.MethodGet, "/nope", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status = %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPut, "/drinks", "", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PUT status = %d", rr.Code)
	}
}

func TestNew_UsesConfiguredTimeouts(t *testing.T) {
	cfg := config.HTTP{ListenAddr: ":5000", ReadTimeout: 1, WriteTimeout: 2, IdleTimeout: 3}
	srv := New(cfg, http.NotFoundHandler())
	if srv.Addr != ":5000" || srv.WriteTimeout != 2 || srv.IdleTimeout != 3 {
		t.Fatalf("unexpected server: %+v", srv)
	}
}
