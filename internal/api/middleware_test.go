package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinova/clinic-scheduling/internal/access"
)

func actorThrough(t *testing.T, headers map[string]string) access.Actor {
	t.Helper()

	var got access.Actor
	h := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetActor(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestActorMiddlewareStaff(t *testing.T) {
	id := uuid.New()
	actor := actorThrough(t, map[string]string{
		"X-Actor-Role": "staff",
		"X-Actor-ID":   id.String(),
	})

	assert.Equal(t, access.RoleStaff, actor.Role)
	assert.Equal(t, id, actor.ID)
	assert.Equal(t, uuid.Nil, actor.PractitionerID)
}

func TestActorMiddlewarePractitionerBinding(t *testing.T) {
	id := uuid.New()
	bound := uuid.New()
	actor := actorThrough(t, map[string]string{
		"X-Actor-Role":      "doctor",
		"X-Actor-ID":        id.String(),
		"X-Practitioner-ID": bound.String(),
	})

	assert.Equal(t, access.RolePractitioner, actor.Role, "doctor is an alias")
	assert.Equal(t, bound, actor.PractitionerID)
}

func TestActorMiddlewareMissingOrBadHeaders(t *testing.T) {
	assert.Equal(t, access.Actor{}, actorThrough(t, nil))

	actor := actorThrough(t, map[string]string{
		"X-Actor-Role": "root",
		"X-Actor-ID":   "not-a-uuid",
	})
	assert.Equal(t, access.RoleNone, actor.Role)
	assert.Equal(t, uuid.Nil, actor.ID)
}

func TestGetActorWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, access.Actor{}, GetActor(req.Context()), "the zero actor has no scope")
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generates when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("propagates when present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	})
}
