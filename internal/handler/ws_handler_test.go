package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/cresciperdi/intranet-api/internal/websocket"
	"github.com/cresciperdi/intranet-api/pkg/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newWSServer(t *testing.T, verifier *MockTokenVerifier, profiles *MockProfileLoader) (*httptest.Server, *websocket.Hub, *websocket.Manager) {
	t.Helper()
	hub := websocket.NewHub()
	go hub.Run()
	manager := websocket.NewManager(hub, nil)

	h := NewWSHandler(hub, manager, verifier, profiles, []string{"https://intranet.cresciperdi.com.br"}, 16)
	router := gin.New()
	router.GET("/ws", h.HandleConnection)

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		hub.Close()
	})
	return server, hub, manager
}

func wsURL(server *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
}

func TestWSHandler_DeliversComplianceStatus(t *testing.T) {
	profile := &entity.Profile{ID: uuid.New(), Role: entity.RoleColaborador, Active: true}
	verifier := new(MockTokenVerifier)
	profiles := new(MockProfileLoader)
	verifier.On("Verify", "good").Return(&auth.Identity{UserID: profile.ID}, nil)
	profiles.On("GetProfile", mock.Anything, profile.ID).Return(profile, nil)

	server, hub, manager := newWSServer(t, verifier, profiles)

	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL(server, "good"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.UserConnections(profile.ID.String()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, manager.SendToUser(profile.ID, websocket.EventComplianceStatus, map[string]bool{"pending": false}))

	var event websocket.Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, websocket.EventComplianceStatus, event.Type)
	assert.Equal(t, map[string]interface{}{"pending": false}, event.Data)
}

func TestWSHandler_RejectsBeforeUpgrade(t *testing.T) {
	userID := uuid.New()

	testCases := []struct {
		name  string
		token string
		setup func(v *MockTokenVerifier, p *MockProfileLoader)
	}{
		{"без токена", "", func(v *MockTokenVerifier, p *MockProfileLoader) {}},
		{"невалидный токен", "bad", func(v *MockTokenVerifier, p *MockProfileLoader) {
			v.On("Verify", "bad").Return(nil, auth.ErrTokenInvalid)
		}},
		{"профиль неактивен", "stale", func(v *MockTokenVerifier, p *MockProfileLoader) {
			v.On("Verify", "stale").Return(&auth.Identity{UserID: userID}, nil)
			p.On("GetProfile", mock.Anything, userID).Return(nil, errors.New("inactive"))
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			verifier := new(MockTokenVerifier)
			profiles := new(MockProfileLoader)
			tc.setup(verifier, profiles)
			server, hub, _ := newWSServer(t, verifier, profiles)

			_, resp, err := gorillaws.DefaultDialer.Dial(wsURL(server, tc.token), nil)

			require.ErrorIs(t, err, gorillaws.ErrBadHandshake)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, 0, hub.ClientCount())
		})
	}
}

func TestWSHandler_RejectsForeignOrigin(t *testing.T) {
	profile := &entity.Profile{ID: uuid.New(), Role: entity.RoleColaborador, Active: true}
	verifier := new(MockTokenVerifier)
	profiles := new(MockProfileLoader)
	verifier.On("Verify", "good").Return(&auth.Identity{UserID: profile.ID}, nil)
	profiles.On("GetProfile", mock.Anything, profile.ID).Return(profile, nil)

	server, _, _ := newWSServer(t, verifier, profiles)

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	_, resp, err := gorillaws.DefaultDialer.Dial(wsURL(server, "good"), header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
