package mailsink

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "From: a@example.com\r\nTo: b@example.com\r\nReply-To: c@example.com\r\nSubject: =?utf-8?q?Hello_W=C3=B6rld?=\r\n\r\nbody\r\n"

func TestStore(t *testing.T) {
	t.Run("parses headers", func(t *testing.T) {
		s := NewStore(10)
		m := s.Add("a@example.com", []string{"b@example.com"}, []byte(sample))
		assert.Equal(t, "Hello Wörld", m.Subject)
		assert.Equal(t, "c@example.com", m.ReplyTo)
		assert.Equal(t, len(sample), m.Size)
	})

	t.Run("evicts oldest and lists newest first", func(t *testing.T) {
		s := NewStore(2)
		for i := 0; i < 3; i++ {
			s.Add(fmt.Sprintf("%d@example.com", i), nil, []byte(sample))
		}
		list := s.List()
		require.Len(t, list, 2)
		assert.Equal(t, "2@example.com", list[0].From)
		assert.Equal(t, "1@example.com", list[1].From)
		assert.Empty(t, list[0].Raw)
	})

	t.Run("clear", func(t *testing.T) {
		s := NewStore(2)
		s.Add("a@example.com", nil, []byte(sample))
		assert.Equal(t, 1, s.Clear())
		assert.Equal(t, 0, s.Len())
	})
}

func TestAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewStore(10)
	m := store.Add("a@example.com", []string{"b@example.com"}, []byte(sample))
	router := SetupRouter(NewHandler(store))

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Count    int       `json:"count"`
			Messages []Message `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, m.ID, body.Messages[0].ID)
	})

	t.Run("raw", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/messages/"+m.ID+"/raw", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, sample, w.Body.String())
	})

	t.Run("missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/messages/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("clear", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/messages", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, store.Len())
	})
}
