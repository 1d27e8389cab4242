// Package handlers provides HTTP handlers for signup, login and logout.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/accounts"
	"github.com/aristath/papertrader/internal/session"
	"github.com/aristath/papertrader/internal/web"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AccountHandlers contains HTTP handlers for the authentication pages
type AccountHandlers struct {
	service  *accounts.Service
	sessions *session.Manager
	resp     *web.Responder
	log      zerolog.Logger
}

// NewAccountHandlers creates a new account handlers instance
func NewAccountHandlers(service *accounts.Service, sessions *session.Manager, renderer *web.Renderer, log zerolog.Logger) *AccountHandlers {
	l := log.With().Str("handler", "accounts").Logger()
	return &AccountHandlers{
		service:  service,
		sessions: sessions,
		resp:     web.NewResponder(renderer, l),
		log:      l,
	}
}

// credentials is the signup/login request body
type credentials struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// formData is what the login and signup pages show
type formData struct {
	Username        string
	StartingBalance decimal.Decimal
}

// AuthResponse is the JSON body of a successful signup or login
type AuthResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Username string `json:"username"`
}

func readCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			return c, fmt.Errorf("%w: malformed JSON body", domain.ErrValidation)
		}
		return c, nil
	}

	if err := r.ParseForm(); err != nil {
		return c, fmt.Errorf("%w: malformed form body", domain.ErrValidation)
	}
	c.Username = r.PostFormValue("username")
	c.Password = r.PostFormValue("password")
	c.ConfirmPassword = r.PostFormValue("confirm_password")
	return c, nil
}

// HandleSignupPage handles GET /signup
func (h *AccountHandlers) HandleSignupPage(w http.ResponseWriter, r *http.Request) {
	h.resp.HTML(w, r, http.StatusOK, "signup", web.Page{Data: formData{StartingBalance: h.service.StartingBalance()}})
}

// HandleSignup handles POST /signup
func (h *AccountHandlers) HandleSignup(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r)
	if err == nil && c.ConfirmPassword != "" && c.ConfirmPassword != c.Password {
		err = fmt.Errorf("%w: passwords do not match", domain.ErrValidation)
	}

	var account *domain.Account
	if err == nil {
		account, err = h.service.Signup(r.Context(), c.Username, c.Password)
	}
	if err != nil {
		h.fail(w, r, "signup", c.Username, err)
		return
	}

	if err := h.sessions.Issue(w, account.Username); err != nil {
		h.fail(w, r, "signup", c.Username, err)
		return
	}

	if web.WantsJSON(r) {
		h.resp.JSON(w, http.StatusCreated, AuthResponse{
			Success:  true,
			Message:  "Account created successfully",
			Username: account.Username,
		})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// HandleLoginPage handles GET /login
func (h *AccountHandlers) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.UserFrom(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.resp.HTML(w, r, http.StatusOK, "login", web.Page{Data: formData{}})
}

// HandleLogin handles POST /login
func (h *AccountHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r)

	var account *domain.Account
	if err == nil {
		account, err = h.service.Login(r.Context(), c.Username, c.Password)
	}
	if err != nil {
		h.fail(w, r, "login", c.Username, err)
		return
	}

	if err := h.sessions.Issue(w, account.Username); err != nil {
		h.fail(w, r, "login", c.Username, err)
		return
	}

	if web.WantsJSON(r) {
		h.resp.JSON(w, http.StatusOK, AuthResponse{
			Success:  true,
			Message:  "Logged in successfully",
			Username: account.Username,
		})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// HandleLogout handles GET /logout
func (h *AccountHandlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AccountHandlers) fail(w http.ResponseWriter, r *http.Request, page, username string, err error) {
	if web.WantsJSON(r) {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.HTMLError(w, r, page, web.Page{Data: formData{
		Username:        username,
		StartingBalance: h.service.StartingBalance(),
	}}, err)
}
