package httpapi

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/accounts"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/verification"
)

// Handler serves the session endpoints.
type Handler struct {
	auth     *goSession.Authenticator
	accounts accounts.Store
	hasher   *password.PBKDF2
	codes    *verification.Store
	mailer   verification.Mailer
	limiter  *rate.Limiter
	cookie   middleware.CookieConfig
	logger   *slog.Logger
}

type loginRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      userView `json:"user"`
	SessionID string   `json:"session_id"`
	ExpiresIn int64    `json:"expires_in"`
	Degraded  bool     `json:"degraded"`
}

type userView struct {
	Account string `json:"account"`
}

// Login checks credentials and sets the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}
	if strings.TrimSpace(req.Account) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "missing_fields", "account and password are required")
		return
	}

	res, err := h.auth.Login(r.Context(), req.Account, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, goSession.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid_credentials", "account or password is incorrect")
		return
	case errors.Is(err, goSession.ErrLoginRateLimited):
		writeError(w, r, http.StatusTooManyRequests, "rate_limited", "too many failed logins, try again later")
		return
	default:
		h.logger.ErrorContext(r.Context(), "login failed", slog.String("account", req.Account), slog.Any("error", err))
		writeError(w, r, http.StatusServiceUnavailable, "login_unavailable", "login is temporarily unavailable")
		return
	}

	middleware.SetSessionCookie(w, h.cookie, res.Token, res.TTL)
	writeJSON(w, r, http.StatusOK, loginResponse{
		User:      userView{Account: res.Account},
		SessionID: res.Token,
		ExpiresIn: int64(res.TTL / time.Second),
		Degraded:  res.Degraded,
	})
}

// Logout deletes the caller's session. The cookie is cleared even when no
// session was found.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	deleted := false
	if token, ok := middleware.TokenFromRequest(r, h.cookie.Name); ok {
		deleted = h.auth.Logout(r.Context(), token)
	}
	middleware.ClearSessionCookie(w, h.cookie)
	writeJSON(w, r, http.StatusOK, map[string]bool{"session_deleted": deleted})
}

type sessionResponse struct {
	Account  string                 `json:"account"`
	Degraded bool                   `json:"degraded"`
	Session  *goSession.SessionInfo `json:"session,omitempty"`
}

// Session describes the caller's session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	resp := sessionResponse{Account: id.Account, Degraded: id.Degraded}
	if !id.Degraded {
		if info, ok := h.auth.Manager().Get(r.Context(), id.Token); ok {
			resp.Session = info
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// SessionCount returns how many live sessions the caller's account holds.
func (h *Handler) SessionCount(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	count := h.auth.Manager().ActiveSessionCount(r.Context(), id.Account)
	writeJSON(w, r, http.StatusOK, map[string]int{"active_sessions": count})
}

// ForceLogout ends every session of the caller's account, this one included.
func (h *Handler) ForceLogout(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	removed := h.auth.ForceLogout(r.Context(), id.Account)
	middleware.ClearSessionCookie(w, h.cookie)
	writeJSON(w, r, http.StatusOK, map[string]int{"removed": removed})
}

type sendCodeRequest struct {
	Email string `json:"email"`
}

// SendVerificationCode issues an email code for registration.
func (h *Handler) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}
	email, err := verification.NormalizeEmail(req.Email)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_email", "email address is invalid")
		return
	}

	if h.limiter != nil {
		if err := h.limiter.AllowSend(r.Context(), email, clientIP(r)); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				writeError(w, r, http.StatusTooManyRequests, "rate_limited", "too many codes requested, try again later")
				return
			}
			h.logger.WarnContext(r.Context(), "send limiter unavailable", slog.Any("error", err))
		}
	}

	code, err := h.codes.Issue(r.Context(), email)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "verification code issue failed", slog.Any("error", err))
		writeError(w, r, http.StatusServiceUnavailable, "verification_unavailable", "verification is temporarily unavailable")
		return
	}
	if err := h.mailer.SendCode(r.Context(), email, code); err != nil {
		h.logger.ErrorContext(r.Context(), "verification mail failed", slog.String("email", email), slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "send_failed", "could not send the verification code")
		return
	}
	h.metrics().Inc(goSession.MetricVerificationSent)

	writeJSON(w, r, http.StatusOK, map[string]int64{"expires_in": int64(h.codes.TTL() / time.Second)})
}

type registerRequest struct {
	Name             string `json:"name"`
	Account          string `json:"account"`
	Password         string `json:"password"`
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code"`
}

// Register creates an account after checking the email code.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}
	req.Account = strings.TrimSpace(req.Account)
	if req.Account == "" || req.Password == "" || req.Email == "" || req.VerificationCode == "" {
		writeError(w, r, http.StatusBadRequest, "missing_fields", "account, password, email and verification_code are required")
		return
	}
	if err := accounts.ValidateID(req.Account); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_account", "account may contain letters, digits and underscore only")
		return
	}
	if err := password.CheckLength(req.Password); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_password", err.Error())
		return
	}

	switch err := h.codes.Verify(r.Context(), req.Email, req.VerificationCode); {
	case err == nil:
		h.metrics().Inc(goSession.MetricVerificationSuccess)
	case errors.Is(err, verification.ErrRedisUnavailable):
		h.logger.ErrorContext(r.Context(), "verification check failed", slog.Any("error", err))
		writeError(w, r, http.StatusServiceUnavailable, "verification_unavailable", "verification is temporarily unavailable")
		return
	default:
		h.metrics().Inc(goSession.MetricVerificationFailure)
		writeError(w, r, http.StatusBadRequest, "invalid_code", "verification code is wrong or expired")
		return
	}

	email, _ := verification.NormalizeEmail(req.Email)
	err := accounts.Register(r.Context(), h.accounts, h.hasher, req.Account, email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, accounts.ErrAccountExists):
		writeError(w, r, http.StatusConflict, "account_exists", "account already exists")
		return
	default:
		h.logger.ErrorContext(r.Context(), "account registration failed", slog.String("account", req.Account), slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "register_failed", "registration failed")
		return
	}

	h.logger.InfoContext(r.Context(), "account registered", slog.String("account", req.Account))
	writeJSON(w, r, http.StatusCreated, userView{Account: req.Account})
}

func (h *Handler) metrics() *goSession.Metrics {
	return h.auth.Manager().Metrics()
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
