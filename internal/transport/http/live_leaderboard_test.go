package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type liveBoard struct {
	Leaderboard []struct {
		Rank int `json:"rank"`
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	} `json:"leaderboard"`
	TotalParticipants int `json:"totalParticipants"`
}

func readFrame(t *testing.T, conn *websocket.Conn) liveFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame liveFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func readBoard(t *testing.T, conn *websocket.Conn) liveBoard {
	t.Helper()
	frame := readFrame(t, conn)
	require.Equal(t, "leaderboard", frame.Type, string(frame.Payload))
	var board liveBoard
	require.NoError(t, json.Unmarshal(frame.Payload, &board))
	return board
}

func dialLive(t *testing.T, server *httptest.Server, contestID, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + server.URL[len("http"):] + "/api/contest/admin/" + contestID + "/leaderboard/live?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestLiveLeaderboardPushesSubmissions(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.admin(t)
	alice := s.participant(t, "Alice", "alice@example.com")
	contestID := s.createLiveContest(t, adminToken)

	server := httptest.NewServer(s.router)
	defer server.Close()

	conn, _, err := dialLive(t, server, contestID, adminToken)
	require.NoError(t, err)
	defer conn.Close()

	initial := readBoard(t, conn)
	assert.Empty(t, initial.Leaderboard)
	assert.Equal(t, 0, initial.TotalParticipants)

	rec := s.do(t, http.MethodGet, "/api/contest/"+contestID+"/attempt", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/contest/"+contestID+"/submit", alice, gin.H{
		"answers": []gin.H{{"questionIndex": 0, "selectedOption": 1, "timeSpent": 3}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := readBoard(t, conn)
	require.Len(t, updated.Leaderboard, 1)
	assert.Equal(t, 1, updated.Leaderboard[0].Rank)
	assert.Equal(t, "alice@example.com", updated.Leaderboard[0].User.Email)
	assert.Equal(t, 1, updated.TotalParticipants)
}

func TestLiveLeaderboardClosesWhenContestIsDeleted(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.admin(t)
	contestID := s.createLiveContest(t, adminToken)

	server := httptest.NewServer(s.router)
	defer server.Close()

	conn, _, err := dialLive(t, server, contestID, adminToken)
	require.NoError(t, err)
	defer conn.Close()
	readBoard(t, conn)

	rec := s.do(t, http.MethodDelete, "/api/contest/admin/"+contestID, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame.Type)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	assert.Equal(t, "not_found", payload["kind"])

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected read error: %v", err)
}

func TestLiveLeaderboardRejectsBeforeUpgrade(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.admin(t)
	alice := s.participant(t, "Alice", "alice@example.com")
	contestID := s.createLiveContest(t, adminToken)

	server := httptest.NewServer(s.router)
	defer server.Close()

	_, resp, err := dialLive(t, server, contestID, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dialLive(t, server, contestID, alice)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = dialLive(t, server, "missing", adminToken)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
