package auth

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/feanor77ist/Basketball-AI-BE/internal/httputil"
)

type Handler struct {
	db *sql.DB
}

func NewHandler(db *sql.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	return r
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "MISSING_FIELDS", "username, email, and password are required")
		return
	}

	req.Username = NormalizeUsername(req.Username)

	if err := ValidatePassword(req.Password, 8); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "WEAK_PASSWORD", err.Error())
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to hash password")
		return
	}

	var count int
	h.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	isAdmin := count == 0

	userID := uuid.New()
	_, err = h.db.Exec(`
		INSERT INTO users (id, username, email, password_hash, is_admin)
		VALUES ($1, $2, $3, $4, $5)`,
		userID, req.Username, req.Email, hash, isAdmin,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusConflict, "USER_EXISTS", "username or email already registered")
		return
	}

	token := h.startSession(w, userID.String(), isAdmin)
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"user_id":  userID.String(),
		"is_admin": isAdmin,
		"token":    token,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	req.Username = NormalizeUsername(req.Username)

	var userID, passwordHash string
	var isAdmin bool
	err := h.db.QueryRow(
		"SELECT id, password_hash, is_admin FROM users WHERE username=$1", req.Username,
	).Scan(&userID, &passwordHash, &isAdmin)
	if err != nil || !CheckPassword(passwordHash, req.Password) {
		httputil.WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password")
		return
	}

	token := h.startSession(w, userID, isAdmin)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  userID,
		"is_admin": isAdmin,
		"token":    token,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token != "" {
		h.db.Exec("DELETE FROM sessions WHERE token=$1", token)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *Handler) startSession(w http.ResponseWriter, userID string, isAdmin bool) string {
	token, _ := GenerateToken()
	exp := time.Now().Add(30 * 24 * time.Hour).Unix()
	h.db.Exec(
		"INSERT INTO sessions (token, user_id, is_admin, expires_at) VALUES ($1, $2, $3, $4)",
		token, userID, isAdmin, exp,
	)

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   30 * 24 * 3600,
	})
	return token
}
