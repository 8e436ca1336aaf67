package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"billister-api/models"
	"billister-api/repository"
	"billister-api/types"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidToken = errors.New("invalid token")

// JWTConfig controls token issuing and validation.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

type tokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token whose subject is the user id.
func IssueToken(cfg JWTConfig, user *models.User) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

func parseToken(cfg JWTConfig, raw string) (uuid.UUID, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return uuid.Nil, errInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errInvalidToken
	}
	return id, nil
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware requires a valid bearer token and sets userId (uuid.UUID) in the context.
func AuthMiddleware(cfg JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.NewErrorResponse(types.ErrorCodeUnauthorized, "Authorization header required"))
			return
		}
		raw, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.NewErrorResponse(types.ErrorCodeUnauthorized, "Invalid authorization header"))
			return
		}
		userID, err := parseToken(cfg, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.NewErrorResponse(types.ErrorCodeInvalidToken, "Invalid token"))
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// OptionalAuthMiddleware sets userId when a valid token is present and otherwise lets the request through.
func OptionalAuthMiddleware(cfg JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearerToken(c); ok {
			if userID, err := parseToken(cfg, raw); err == nil {
				c.Set(userIDKey, userID)
			}
		}
		c.Next()
	}
}

// UserStore is the account persistence used by AuthHandler.
type UserStore interface {
	CreateUser(ctx context.Context, email, password string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuthHandler struct {
	users UserStore
	jwt   JWTConfig
}

func NewAuthHandler(users UserStore, cfg JWTConfig) *AuthHandler {
	return &AuthHandler{users: users, jwt: cfg}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeInvalidRequest, "invalid request body"))
		return
	}

	var problems []string
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		problems = append(problems, "Email is not valid.")
	}
	problems = append(problems, passwordProblems(req.Password)...)
	if len(problems) > 0 {
		c.JSON(http.StatusBadRequest, types.NewErrorResponseWithDetails(types.ErrorCodeValidation, "registration rejected",
			map[string]interface{}{"errors": problems}))
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, repository.ErrEmailTaken) {
		c.JSON(http.StatusConflict, types.NewErrorResponse(types.ErrorCodeConflict, "email already registered"))
		return
	}
	if err != nil {
		internalError(c, "failed to register user", err)
		return
	}
	h.respondWithToken(c, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeInvalidRequest, "invalid request body"))
		return
	}
	user, err := h.users.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		internalError(c, "failed to load user", err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse(types.ErrorCodeUnauthorized, "invalid email or password"))
		return
	}
	h.respondWithToken(c, user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, user *models.User) {
	token, err := IssueToken(h.jwt, user)
	if err != nil {
		internalError(c, "failed to generate token", err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"token": token}))
}

func passwordProblems(pw string) []string {
	var problems []string
	if len(pw) < 8 {
		problems = append(problems, "Passwords must be at least 8 characters.")
	}
	var digit, upper, lower bool
	for _, r := range pw {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
	}
	if !digit {
		problems = append(problems, "Passwords must have at least one digit ('0'-'9').")
	}
	if !upper {
		problems = append(problems, "Passwords must have at least one uppercase ('A'-'Z').")
	}
	if !lower {
		problems = append(problems, "Passwords must have at least one lowercase ('a'-'z').")
	}
	return problems
}
