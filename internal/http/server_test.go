package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/kabirpofficial/trackify/internal/auth"
	"github.com/kabirpofficial/trackify/internal/core"
	"github.com/kabirpofficial/trackify/internal/services"
	"github.com/kabirpofficial/trackify/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ServerTestSuite struct {
	suite.Suite
	store  *storage.SQLiteRepository
	server *Server
	ts     *httptest.Server
}

func (s *ServerTestSuite) SetupTest() {
	store, err := storage.NewSQLiteRepository(filepath.Join(s.T().TempDir(), "test.db"))
	require.NoError(s.T(), err)
	s.store = store

	issuer := auth.NewTokenIssuer("server-test-secret-key", time.Hour)
	authSvc := services.NewAuthService(store, issuer)
	cats := services.NewCategoryService(store)
	expenses := services.NewExpenseService(store, cats, nil)

	s.server = NewServer(":0", authSvc, cats, expenses, issuer)
	s.ts = httptest.NewServer(s.server.Handler)
}

func (s *ServerTestSuite) TearDownTest() {
	if s.ts != nil {
		s.ts.Close()
	}
	if s.server != nil {
		s.server.rateLimiter.stop()
	}
	if s.store != nil {
		s.store.Close()
	}
}

// do performs a request against the test server, optionally authenticated,
// and decodes the JSON response into out when out is non-nil.
func (s *ServerTestSuite) do(method, path, token string, body any, out any) *http.Response {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, s.ts.URL+path, reader)
	require.NoError(s.T(), err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.ts.Client().Do(req)
	require.NoError(s.T(), err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(out))
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp
}

func (s *ServerTestSuite) register(email string) services.AuthResult {
	var res services.AuthResult
	resp := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": "password-123",
	}, &res)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)
	require.NotEmpty(s.T(), res.AccessToken)
	return res
}

func (s *ServerTestSuite) createCategory(token, name string) core.Category {
	var cat core.Category
	resp := s.do(http.MethodPost, "/api/categories", token, map[string]string{"name": name}, &cat)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)
	return cat
}

func (s *ServerTestSuite) TestHealthEndpoints() {
	resp := s.do(http.MethodGet, "/healthz", "", nil, nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	resp = s.do(http.MethodGet, "/readyz", "", nil, nil)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
}

func (s *ServerTestSuite) TestRegisterAndLogin() {
	res := s.register("alice@example.com")
	assert.Equal(s.T(), "alice@example.com", res.User.Email)
	assert.NotZero(s.T(), res.User.ID)

	var login services.AuthResult
	resp := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "password-123",
	}, &login)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	assert.NotEmpty(s.T(), login.AccessToken)
	assert.Equal(s.T(), res.User.ID, login.User.ID)
}

func (s *ServerTestSuite) TestRegisterDuplicateEmailConflicts() {
	s.register("dup@example.com")

	var body map[string]string
	resp := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Other", "email": "dup@example.com", "password": "other-password",
	}, &body)
	assert.Equal(s.T(), http.StatusConflict, resp.StatusCode)
	assert.NotEmpty(s.T(), body["error"])
}

func (s *ServerTestSuite) TestRegisterValidation() {
	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"email": "a@b.com", "password": "pw-123456"}},
		{"bad email", map[string]string{"name": "A", "email": "not-an-email", "password": "pw-123456"}},
		{"missing password", map[string]string{"name": "A", "email": "a@b.com"}},
	}
	for _, tc := range cases {
		resp := s.do(http.MethodPost, "/api/auth/register", "", tc.body, nil)
		assert.Equal(s.T(), http.StatusBadRequest, resp.StatusCode, tc.name)
	}
}

func (s *ServerTestSuite) TestLoginFailuresAreIndistinguishable() {
	s.register("alice@example.com")

	var wrongPw, noUser map[string]string
	respWrongPw := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	}, &wrongPw)
	respNoUser := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "password-123",
	}, &noUser)

	assert.Equal(s.T(), http.StatusUnauthorized, respWrongPw.StatusCode)
	assert.Equal(s.T(), http.StatusUnauthorized, respNoUser.StatusCode)
	assert.Equal(s.T(), wrongPw["error"], noUser["error"])
}

func (s *ServerTestSuite) TestProtectedRoutesRejectBadTokens() {
	paths := []string{"/api/categories", "/api/expenses", "/api/reports/summary"}
	for _, p := range paths {
		resp := s.do(http.MethodGet, p, "", nil, nil)
		assert.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode, p)

		resp = s.do(http.MethodGet, p, "not-a-token", nil, nil)
		assert.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode, p)
	}
}

func (s *ServerTestSuite) TestExpiredTokenRejected() {
	res := s.register("alice@example.com")
	expired := auth.NewTokenIssuer("server-test-secret-key", -time.Minute)
	token, err := expired.Issue(res.User.ID, res.User.Email)
	require.NoError(s.T(), err)

	resp := s.do(http.MethodGet, "/api/categories", token, nil, nil)
	assert.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode)
}

func (s *ServerTestSuite) TestCategoriesScopedPerUser() {
	alice := s.register("alice@example.com")
	bob := s.register("bob@example.com")

	s.createCategory(alice.AccessToken, "Food")
	s.createCategory(alice.AccessToken, "Transport")
	s.createCategory(bob.AccessToken, "Books")

	var aliceCats, bobCats []core.Category
	resp := s.do(http.MethodGet, "/api/categories", alice.AccessToken, nil, &aliceCats)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	resp = s.do(http.MethodGet, "/api/categories", bob.AccessToken, nil, &bobCats)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)

	require.Len(s.T(), aliceCats, 2)
	assert.Equal(s.T(), "Food", aliceCats[0].Name) // alphabetical
	require.Len(s.T(), bobCats, 1)
	assert.Equal(s.T(), "Books", bobCats[0].Name)
}

func (s *ServerTestSuite) TestCreateCategoryValidation() {
	alice := s.register("alice@example.com")

	resp := s.do(http.MethodPost, "/api/categories", alice.AccessToken, map[string]string{"name": "   "}, nil)
	assert.Equal(s.T(), http.StatusBadRequest, resp.StatusCode)
}

func (s *ServerTestSuite) TestCreateAndListExpenses() {
	alice := s.register("alice@example.com")
	cat := s.createCategory(alice.AccessToken, "Food")

	var created core.Expense
	resp := s.do(http.MethodPost, "/api/expenses", alice.AccessToken, map[string]any{
		"amount":      "12.50",
		"description": "groceries",
		"date":        "2025-03-10",
		"categoryId":  cat.ID,
	}, &created)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)
	assert.Equal(s.T(), int64(1250), created.Amount.Cents)
	assert.Equal(s.T(), alice.User.ID, created.UserID)
	require.NotNil(s.T(), created.Category)
	assert.Equal(s.T(), "Food", created.Category.Name)

	var list []core.Expense
	resp = s.do(http.MethodGet, "/api/expenses", alice.AccessToken, nil, &list)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	require.Len(s.T(), list, 1)
	assert.Equal(s.T(), "groceries", list[0].Description)
	assert.Equal(s.T(), "2025-03-10", list[0].Date.String())
}

func (s *ServerTestSuite) TestCreateExpenseValidation() {
	alice := s.register("alice@example.com")
	cat := s.createCategory(alice.AccessToken, "Food")

	cases := []struct {
		name string
		body map[string]any
	}{
		{"zero amount", map[string]any{"amount": 0, "description": "x", "date": "2025-01-01", "categoryId": cat.ID}},
		{"negative amount", map[string]any{"amount": -5, "description": "x", "date": "2025-01-01", "categoryId": cat.ID}},
		{"empty description", map[string]any{"amount": 100, "description": "  ", "date": "2025-01-01", "categoryId": cat.ID}},
		{"bad date", map[string]any{"amount": 100, "description": "x", "date": "01/01/2025", "categoryId": cat.ID}},
		{"missing category", map[string]any{"amount": 100, "description": "x", "date": "2025-01-01"}},
	}
	for _, tc := range cases {
		resp := s.do(http.MethodPost, "/api/expenses", alice.AccessToken, tc.body, nil)
		assert.Equal(s.T(), http.StatusBadRequest, resp.StatusCode, tc.name)
	}
}

func (s *ServerTestSuite) TestCreateExpenseForeignCategoryIsNotFound() {
	alice := s.register("alice@example.com")
	bob := s.register("bob@example.com")
	bobCat := s.createCategory(bob.AccessToken, "Books")

	resp := s.do(http.MethodPost, "/api/expenses", alice.AccessToken, map[string]any{
		"amount": 100, "description": "sneaky", "date": "2025-01-01", "categoryId": bobCat.ID,
	}, nil)
	assert.Equal(s.T(), http.StatusNotFound, resp.StatusCode)

	// Missing category looks identical
	resp = s.do(http.MethodPost, "/api/expenses", alice.AccessToken, map[string]any{
		"amount": 100, "description": "ghost", "date": "2025-01-01", "categoryId": 99999,
	}, nil)
	assert.Equal(s.T(), http.StatusNotFound, resp.StatusCode)
}

func (s *ServerTestSuite) TestExpensesIsolatedBetweenUsers() {
	alice := s.register("alice@example.com")
	bob := s.register("bob@example.com")
	aliceCat := s.createCategory(alice.AccessToken, "Food")

	resp := s.do(http.MethodPost, "/api/expenses", alice.AccessToken, map[string]any{
		"amount": 500, "description": "lunch", "date": "2025-01-01", "categoryId": aliceCat.ID,
	}, nil)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)

	var bobList []core.Expense
	resp = s.do(http.MethodGet, "/api/expenses", bob.AccessToken, nil, &bobList)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	assert.Empty(s.T(), bobList)
}

func (s *ServerTestSuite) TestSummaryReport() {
	alice := s.register("alice@example.com")
	food := s.createCategory(alice.AccessToken, "Food")
	transport := s.createCategory(alice.AccessToken, "Transport")

	for i, e := range []struct {
		amount string
		catID  int64
	}{
		{"10.00", food.ID},
		{"30.00", transport.ID},
	} {
		resp := s.do(http.MethodPost, "/api/expenses", alice.AccessToken, map[string]any{
			"amount":      e.amount,
			"description": fmt.Sprintf("expense %d", i),
			"date":        "2025-01-01",
			"categoryId":  e.catID,
		}, nil)
		require.Equal(s.T(), http.StatusCreated, resp.StatusCode)
	}

	var summary core.Summary
	resp := s.do(http.MethodGet, "/api/reports/summary", alice.AccessToken, nil, &summary)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(s.T(), int64(4000), summary.Total.Cents)
	require.Len(s.T(), summary.ByCategory, 2)

	byName := map[string]core.CategorySummary{}
	for _, b := range summary.ByCategory {
		byName[b.CategoryName] = b
	}
	assert.Equal(s.T(), float64(25), byName["Food"].Percentage)
	assert.Equal(s.T(), float64(75), byName["Transport"].Percentage)
}

func (s *ServerTestSuite) TestSummaryEmptyHasEmptyList() {
	alice := s.register("alice@example.com")

	body := map[string]json.RawMessage{}
	resp := s.do(http.MethodGet, "/api/reports/summary", alice.AccessToken, nil, &body)
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)
	assert.JSONEq(s.T(), "0", string(body["total"]))
	assert.JSONEq(s.T(), "[]", string(body["byCategory"]))
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
