package user_client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Jawfish/klink/internal/apperr"
	"github.com/Jawfish/klink/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const hash = "$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaA"

func TestRetrieveHashedPassword_OK(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/auth/alice", r.URL.Path)
		_ = json.NewEncoder(w).Encode(models.UserAuthData{UUID: id, HashedPassword: hash})
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL+"/", 0, zap.NewNop()).RetrieveHashedPassword(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, id, got.UUID)
	assert.Equal(t, hash, got.HashedPassword)
}

func TestRetrieveHashedPassword_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   apperr.Kind
	}{
		{http.StatusNotFound, `{"detail":"User does not exist"}`, apperr.Unauthorized},
		{http.StatusInternalServerError, `{"detail":"Internal error"}`, apperr.Internal},
		{http.StatusBadRequest, `{"detail":"Bad request"}`, apperr.Internal},
		{http.StatusOK, `not json`, apperr.Internal},
		{http.StatusOK, `{"uuid":"00000000-0000-0000-0000-000000000000"}`, apperr.Internal},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))

		_, err := NewClient(srv.URL, 0, zap.NewNop()).RetrieveHashedPassword(context.Background(), "alice")
		assert.Equal(t, tc.want, apperr.KindOf(err), "status %d body %s", tc.status, tc.body)
		srv.Close()
	}
}

func TestRetrieveHashedPassword_EmptyUsernameNoNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0, zap.NewNop()).RetrieveHashedPassword(context.Background(), "")
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestRetrieveHashedPassword_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewClient(addr, 0, zap.NewNop()).RetrieveHashedPassword(context.Background(), "alice")
	assert.Equal(t, apperr.Unavailable, apperr.KindOf(err))
}

func TestRetrieveHashedPassword_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewClient(srv.URL, 50*time.Millisecond, zap.NewNop()).RetrieveHashedPassword(context.Background(), "alice")
	assert.Equal(t, apperr.Unavailable, apperr.KindOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRetrieveHashedPassword_EscapesUsername(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0, zap.NewNop()).RetrieveHashedPassword(context.Background(), "a/b c")
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(err))
	assert.Equal(t, "/auth/a%2Fb%20c", gotPath)
}

func TestCreateUser(t *testing.T) {
	id := uuid.New()
	existing := map[string]bool{"taken": true}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		var req models.CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if existing[req.Username] {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.CreateUserResponse{UUID: id})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, zap.NewNop())

	got, err := c.CreateUser(context.Background(), "fresh", hash)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = c.CreateUser(context.Background(), "taken", hash)
	assert.Equal(t, apperr.UserAlreadyExists, apperr.KindOf(err))
}
