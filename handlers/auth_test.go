package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"billister-api/models"
	"billister-api/repository"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsers struct {
	byEmail map[string]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]*models.User{}}
}

func (f *fakeUsers) CreateUser(_ context.Context, email, password string) (*models.User, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if _, ok := f.byEmail[key]; ok {
		return nil, repository.ErrEmailTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{ID: uuid.New(), Email: key, PasswordHash: string(hash), CreatedAt: time.Now()}
	f.byEmail[key] = u
	return u, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return f.byEmail[strings.ToLower(strings.TrimSpace(email))], nil
}

func authRouter(users UserStore) *gin.Engine {
	h := NewAuthHandler(users, testJWT)
	r := gin.New()
	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)
	r.GET("/me", AuthMiddleware(testJWT), func(c *gin.Context) {
		id, _ := currentUserID(c)
		c.String(http.StatusOK, id.String())
	})
	r.GET("/maybe", OptionalAuthMiddleware(testJWT), func(c *gin.Context) {
		id, ok := currentUserID(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, id.String())
	})
	return r
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	r := authRouter(newFakeUsers())

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", `{"email":"Ada@Example.dk","password":"Secret123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var reg struct {
		Token string `json:"token"`
	}
	decodeData(t, w, &reg)
	require.NotEmpty(t, reg.Token)

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", `{"email":"ada@example.dk","password":"Secret123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	decodeData(t, w, &login)

	userID, err := parseToken(testJWT, login.Token)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, userID)
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	r := authRouter(newFakeUsers())

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", `{"email":"not-an-email","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	problems, ok := env.Error.Details["errors"].([]interface{})
	require.True(t, ok)
	assert.Contains(t, problems, "Email is not valid.")
	assert.Contains(t, problems, "Passwords must be at least 8 characters.")
	assert.Contains(t, problems, "Passwords must have at least one digit ('0'-'9').")
	assert.Contains(t, problems, "Passwords must have at least one uppercase ('A'-'Z').")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r := authRouter(newFakeUsers())
	body := `{"email":"ada@example.dk","password":"Secret123"}`
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/api/auth/register", body).Code)
	assert.Equal(t, http.StatusConflict, doJSON(t, r, http.MethodPost, "/api/auth/register", body).Code)
}

func TestLoginWrongPassword(t *testing.T) {
	r := authRouter(newFakeUsers())
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/api/auth/register", `{"email":"ada@example.dk","password":"Secret123"}`).Code)

	assert.Equal(t, http.StatusUnauthorized, doJSON(t, r, http.MethodPost, "/api/auth/login", `{"email":"ada@example.dk","password":"Secret124"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, r, http.MethodPost, "/api/auth/login", `{"email":"nobody@example.dk","password":"Secret123"}`).Code)
}

func TestAuthMiddleware(t *testing.T) {
	r := authRouter(newFakeUsers())
	user := &models.User{ID: uuid.New(), Email: "ada@example.dk"}
	token, err := IssueToken(testJWT, user)
	require.NoError(t, err)

	call := func(path, header string) (int, string) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code, w.Body.String()
	}

	code, body := call("/me", "Bearer "+token)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, user.ID.String(), body)

	code, _ = call("/me", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = call("/me", "Token "+token)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = call("/me", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, code)

	_, body = call("/maybe", "Bearer garbage")
	assert.Equal(t, "anonymous", body)
	_, body = call("/maybe", "Bearer "+token)
	assert.Equal(t, user.ID.String(), body)
}

func TestParseTokenRejectsForeignTokens(t *testing.T) {
	user := &models.User{ID: uuid.New()}

	otherAudience := testJWT
	otherAudience.Audience = "Billister.Web"
	token, err := IssueToken(otherAudience, user)
	require.NoError(t, err)
	_, err = parseToken(testJWT, token)
	assert.ErrorIs(t, err, errInvalidToken)

	expired := testJWT
	expired.TTL = -time.Minute
	token, err = IssueToken(expired, user)
	require.NoError(t, err)
	_, err = parseToken(testJWT, token)
	assert.ErrorIs(t, err, errInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		Issuer:    testJWT.Issuer,
		Audience:  jwt.ClaimStrings{testJWT.Audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = parseToken(testJWT, unsigned)
	assert.ErrorIs(t, err, errInvalidToken)
}
