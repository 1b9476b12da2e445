package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/auth"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/httpx"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/observability"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/requestctx"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/services"
)

// Messages returned by the account pages.
const (
	MsgRegistered      = "Registration successful!"
	MsgLoginRequired   = "Please log in to continue."
	MsgLoginFailedPage = "Login failed. Please try again."
)

// AccountHandlers serves login, registration and the dashboard.
type AccountHandlers struct {
	visitors *Visitors
	accounts services.AccountService
}

// NewAccountHandlers constructs the account handlers.
func NewAccountHandlers(visitors *Visitors, accounts services.AccountService) *AccountHandlers {
	return &AccountHandlers{visitors: visitors, accounts: accounts}
}

// Routes wires the account pages.
func (h *AccountHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/login", h.loginPage)
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Get("/register", h.registerPage)
	r.Post("/register", h.register)
	r.Get("/dashboard", h.dashboard)
	r.Delete("/dashboard", h.deleteAccount)
}

type loginPageResponse struct {
	Authenticated bool   `json:"authenticated"`
	Redirect      string `json:"redirect,omitempty"`
}

type redirectResponse struct {
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect"`
}

func (h *AccountHandlers) loginPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}
	resp := loginPageResponse{Authenticated: sess.IsAuthenticated(r.Context())}
	if resp.Authenticated {
		resp.Redirect = "/dashboard"
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *AccountHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}
	form, err := httpx.DecodeForm(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is invalid", http.StatusBadRequest))
		return
	}
	email := form.Get("email")
	if err := sess.Login(ctx, email, form.Get("password")); err != nil {
		requestctx.Logger(ctx).Info("login rejected",
			zap.String("email", observability.MaskEmail(email)),
			zap.Error(err),
		)
		httpx.WriteError(ctx, w, httpx.NewError("login_failed", auth.Message(err, MsgLoginFailedPage), http.StatusUnauthorized))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, redirectResponse{Redirect: "/dashboard"})
}

func (h *AccountHandlers) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}
	if err := sess.Logout(ctx); err != nil {
		requestctx.Logger(ctx).Warn("logout failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("storage_failed", "Failed to log out.", http.StatusInternalServerError))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, redirectResponse{Redirect: "/login"})
}

func (h *AccountHandlers) registerPage(w http.ResponseWriter, r *http.Request) {
	if h.accounts == nil {
		unavailable(w, r, "accounts")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.accounts.Roles(r.Context()))
}

type registerResponse struct {
	Message  string               `json:"message"`
	Redirect string               `json:"redirect"`
	User     services.UserProfile `json:"user"`
}

func (h *AccountHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		unavailable(w, r, "accounts")
		return
	}
	form, err := httpx.DecodeForm(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is invalid", http.StatusBadRequest))
		return
	}
	user, err := h.accounts.Register(ctx, services.RegisterCommand{
		Name:            form.Get("name"),
		Email:           form.Get("email"),
		Password:        form.Get("password"),
		ConfirmPassword: form.Get("confirmPassword"),
		Role:            form.Get("role"),
		DateOfBirth:     form.Get("dob"),
	})
	if err != nil {
		writeServiceError(ctx, w, err, services.MsgRegisterFailed)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, registerResponse{
		Message:  MsgRegistered,
		Redirect: "/login",
		User:     user,
	})
}

func (h *AccountHandlers) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}
	if h.accounts == nil {
		unavailable(w, r, "accounts")
		return
	}
	profile, err := h.accounts.Profile(ctx, sess)
	if err != nil {
		writeServiceError(ctx, w, err, MsgLoginRequired)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profile)
}

func (h *AccountHandlers) deleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.sessionFor(w, r)
	if !ok {
		return
	}
	if h.accounts == nil {
		unavailable(w, r, "accounts")
		return
	}
	if err := h.accounts.DeleteAccount(ctx, sess); err != nil {
		writeServiceError(ctx, w, err, services.MsgDeleteFailed)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, redirectResponse{Redirect: "/"})
}

func (h *AccountHandlers) sessionFor(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	visitorID, ok := requireVisitor(w, r)
	if !ok {
		return nil, false
	}
	sess := h.visitors.Session(visitorID)
	if sess == nil {
		unavailable(w, r, "session")
		return nil, false
	}
	return sess, true
}
