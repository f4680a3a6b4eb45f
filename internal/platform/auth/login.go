package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Account is a single staff login configured at startup.
type Account struct {
	Username     string
	PasswordHash string
	Roles        []string
}

// LoginHandler exchanges account credentials for a bearer token.
type LoginHandler struct {
	cfg      JWTConfig
	accounts map[string]Account
	clinicID string
}

func NewLoginHandler(cfg JWTConfig, clinicID string, accounts ...Account) *LoginHandler {
	m := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		if a.Username != "" && a.PasswordHash != "" {
			m[a.Username] = a
		}
	}
	return &LoginHandler{cfg: cfg, accounts: m, clinicID: clinicID}
}

func (h *LoginHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/auth/login", h.HandleLogin)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Roles     []string  `json:"roles"`
}

// dummyHash keeps the timing of unknown usernames close to wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("mediqueue-dummy"), bcrypt.MinCost)

func (h *LoginHandler) HandleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	acct, ok := h.accounts[req.Username]
	hash := dummyHash
	if ok {
		hash = []byte(acct.PasswordHash)
	}
	err := bcrypt.CompareHashAndPassword(hash, []byte(req.Password))
	if !ok || err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	token, exp, err := MintToken(h.cfg, acct.Username, h.clinicID, acct.Roles)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "token issuance unavailable")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data": loginResponse{Token: token, ExpiresAt: exp, Roles: acct.Roles},
	})
}
