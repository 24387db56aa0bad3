package library

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *serviceFixture) {
	gin.SetMode(gin.TestMode)
	f := newServiceFixture(t)
	router := gin.New()
	NewHandlers(f.service).RegisterRoutes(router)
	return router, f
}

func doRequest(router *gin.Engine, method, path, bearer string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProvisionEndpoint(t *testing.T) {
	router, f := newTestRouter(t)
	uid := uuid.New()

	t.Run("MissingAuthorization", func(t *testing.T) {
		w := doRequest(router, http.MethodPut, "/file/"+uid.String(), "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("UserTokenRejected", func(t *testing.T) {
		w := doRequest(router, http.MethodPut, "/file/"+uid.String(), f.scheme.DeriveUserToken(uid), nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Success", func(t *testing.T) {
		w := doRequest(router, http.MethodPut, "/file/"+uid.String(), testSecret, nil)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), uid.String())
	})

	t.Run("Conflict", func(t *testing.T) {
		w := doRequest(router, http.MethodPut, "/file/"+uid.String(), testSecret, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("NonUUIDPath", func(t *testing.T) {
		w := doRequest(router, http.MethodPut, "/file/not-a-uuid", testSecret, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDeprovisionEndpoint(t *testing.T) {
	router, f := newTestRouter(t)
	uid, _ := f.registerOwner(t)

	t.Run("Success", func(t *testing.T) {
		w := doRequest(router, http.MethodDelete, "/file/"+uid.String(), testSecret, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("AlreadyGone", func(t *testing.T) {
		w := doRequest(router, http.MethodDelete, "/file/"+uid.String(), testSecret, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestFileEndpoints(t *testing.T) {
	router, f := newTestRouter(t)
	uid, tok := f.registerOwner(t)
	_, otherToken := f.registerOwner(t)

	base := "/file/" + uid.String()

	t.Run("PutFile", func(t *testing.T) {
		w := doRequest(router, http.MethodPut, base+"/notes.txt", tok, []byte("hello"))
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "notes.txt")
	})

	t.Run("ListFiles", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, base, tok, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "notes.txt")
	})

	t.Run("ListRejectsOtherUser", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, base, otherToken, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("GetFileBytes", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, base+"/notes.txt", tok, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
		assert.Equal(t, "hello", w.Body.String())
	})

	t.Run("GetFileAnyRegisteredUser", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, base+"/notes.txt", otherToken, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("GetFileUnknownToken", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, base+"/notes.txt", uuid.NewString(), nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("GetMissingFile", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, base+"/missing.txt", tok, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("RemoveRejectsOtherUser", func(t *testing.T) {
		w := doRequest(router, http.MethodDelete, base+"/notes.txt", otherToken, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("RemoveFile", func(t *testing.T) {
		w := doRequest(router, http.MethodDelete, base+"/notes.txt", tok, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doRequest(router, http.MethodDelete, base+"/notes.txt", tok, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
