package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *testFixture) {
	gin.SetMode(gin.TestMode)
	f := newTestFixture(t)
	router := gin.New()
	NewHandlers(f.orchestrator).RegisterRoutes(router)
	return router, f
}

func doJSON(router *gin.Engine, method, path, bearer string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerUser(t *testing.T, router *gin.Engine, name, password string) credentialsResponse {
	t.Helper()
	w := doJSON(router, http.MethodPut, "/user", "", gin.H{"name": name, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp credentialsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRegisterEndpoint(t *testing.T) {
	router, f := newTestRouter(t)

	t.Run("Success", func(t *testing.T) {
		resp := registerUser(t, router, "alice", "secret")
		uid, err := uuid.Parse(resp.UID)
		require.NoError(t, err)
		assert.Equal(t, f.scheme.DeriveUserToken(uid), resp.AccessToken)
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		w := doJSON(router, http.MethodPut, "/user", "", gin.H{"name": "alice", "password": "other"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MissingName", func(t *testing.T) {
		w := doJSON(router, http.MethodPut, "/user", "", gin.H{"password": "secret"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Missing field: name")
	})

	t.Run("MissingPassword", func(t *testing.T) {
		w := doJSON(router, http.MethodPut, "/user", "", gin.H{"name": "bob"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Missing field: password")
	})

	t.Run("ProvisionFailure", func(t *testing.T) {
		f.library.provisionErr = fmt.Errorf("library unreachable")
		defer func() { f.library.provisionErr = nil }()

		w := doJSON(router, http.MethodPut, "/user", "", gin.H{"name": "carol", "password": "secret"})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestLoginEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	created := registerUser(t, router, "alice", "secret")

	t.Run("Success", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/user", "", gin.H{"name": "alice", "password": "secret"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp credentialsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, created.UID, resp.UID)
		assert.Equal(t, created.AccessToken, resp.AccessToken)
	})

	// Wrong password and unknown user are indistinguishable on the wire.
	t.Run("WrongPassword", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/user", "", gin.H{"name": "alice", "password": "nope"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid username or password")
	})

	t.Run("UnknownUser", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/user", "", gin.H{"name": "ghost", "password": "secret"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid username or password")
	})
}

func TestDeleteEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("MissingAuthorization", func(t *testing.T) {
		w := doJSON(router, http.MethodDelete, "/user/alice", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("MalformedAuthorization", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/user/alice", nil)
		req.Header.Set("Authorization", "Basic abc123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		w := doJSON(router, http.MethodDelete, "/user/ghost", uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("WrongToken", func(t *testing.T) {
		registerUser(t, router, "alice", "secret")
		bob := registerUser(t, router, "bob", "secret")

		w := doJSON(router, http.MethodDelete, "/user/alice", bob.AccessToken, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Success", func(t *testing.T) {
		carol := registerUser(t, router, "carol", "secret")

		w := doJSON(router, http.MethodDelete, "/user/carol", carol.AccessToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(router, http.MethodGet, "/user", "", gin.H{"name": "carol", "password": "secret"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestValidateEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	alice := registerUser(t, router, "alice", "secret")
	bob := registerUser(t, router, "bob", "secret")

	t.Run("RequiresServiceCredential", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/user/"+alice.UID, alice.AccessToken,
			gin.H{"access_token": alice.AccessToken})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("PinnedMatch", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/user/"+alice.UID, testSecret,
			gin.H{"access_token": alice.AccessToken})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("PinnedMismatch", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/user/"+alice.UID, testSecret,
			gin.H{"access_token": bob.AccessToken})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("BlankIdentifierMatchesAnyUser", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/user/%20", testSecret,
			gin.H{"access_token": bob.AccessToken})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("BlankIdentifierUnknownToken", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/user/%20", testSecret,
			gin.H{"access_token": uuid.NewString()})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("MissingBody", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/user/"+alice.UID, testSecret, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
