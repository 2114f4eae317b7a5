// Command stubapi is a stand-in for the remote dashboard API during local
// development. It authenticates a few seeded accounts, mints short-lived
// bearer tokens and serves fixture collections behind them.
package main

import (
	"errors"
	"flag"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/courierdash/courierdash/internal/orders"
	"github.com/courierdash/courierdash/internal/platform/httpx"
	"github.com/courierdash/courierdash/internal/riders"
	"github.com/courierdash/courierdash/internal/settings"
	"github.com/courierdash/courierdash/internal/users"
)

type account struct {
	passwordHash []byte
	role         string
}

type stub struct {
	secret   []byte
	tokenTTL time.Duration
	accounts map[string]account
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	secret := flag.String("secret", "stub-secret", "token signing secret")
	ttl := flag.Duration("token-ttl", 30*time.Minute, "issued token lifetime")
	flag.Parse()

	s := &stub{
		secret:   []byte(*secret),
		tokenTTL: *ttl,
		accounts: seedAccounts(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Post("/auth/login", s.login)
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/orders", s.listOrders)
		r.Get("/users", s.listUsers)
		r.Get("/riders", s.listRiders)
		r.Get("/settings", s.getSettings)
	})

	log.Printf("stub dashboard API listening on %s (token ttl %s)", *addr, *ttl)
	log.Fatal(http.ListenAndServe(*addr, r))
}

func seedAccounts() map[string]account {
	hash := func(pw string) []byte {
		h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash seed password: %v", err)
		}
		return h
	}
	return map[string]account{
		"admin@courierdash.io":  {passwordHash: hash("admin123"), role: "Admin"},
		"editor@courierdash.io": {passwordHash: hash("editor123"), role: "Editor"},
		"viewer@courierdash.io": {passwordHash: hash("viewer123"), role: "Viewer"},
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *stub) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "malformed request body")
		return
	}
	acct, ok := s.accounts[req.Email]
	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
		httpx.Error(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  req.Email,
		"role": acct.role,
		"exp":  time.Now().Add(s.tokenTTL).Unix(),
	}).SignedString(s.secret)
	if err != nil {
		httpx.Error(w, http.StatusInternalServerError, "failed to sign token")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *stub) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			httpx.Error(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.secret, nil
		})
		if err != nil {
			httpx.Error(w, http.StatusUnauthorized, "token rejected")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *stub) listOrders(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, []orders.Order{
		{ID: "ord-1001", Item: "Ramen set x2", Status: "pending"},
		{ID: "ord-1002", Item: "Office chairs", Status: "in transit"},
		{ID: "ord-1003", Item: "Coffee beans 5kg", Status: "delivered"},
	})
}

func (s *stub) listUsers(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, []users.User{
		{ID: "usr-1", Email: "admin@courierdash.io", Role: "Admin"},
		{ID: "usr-2", Email: "editor@courierdash.io", Role: "Editor"},
		{ID: "usr-3", Email: "viewer@courierdash.io", Role: "Viewer"},
	})
}

func (s *stub) listRiders(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, []riders.Rider{
		{ID: "rid-1", Name: "Ayu Lestari", Status: "on delivery", AssignedOrderID: "ord-1002"},
		{ID: "rid-2", Name: "Budi Santoso", Status: "available"},
		{ID: "rid-3", Name: "Citra Dewi", Status: "offline"},
	})
}

func (s *stub) getSettings(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, settings.Values{
		"delivery_radius_km":  12,
		"max_active_orders":   50,
		"support_email":       "ops@courierdash.io",
		"maintenance_banner":  false,
		"rider_shift_minutes": 480,
	})
}
