package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tokmz/relay/internal/collab"
	"github.com/tokmz/relay/pkg/config"
	"github.com/tokmz/relay/pkg/hub"
	"github.com/tokmz/relay/pkg/protocol"
)

// newTestServer 搭一套完整服务：内存协作方 + hub + 分发器 + HTTP
func newTestServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()

	h, err := hub.New()
	require.NoError(t, err)

	d := protocol.NewDispatcher(h, collab.TokenAuthenticator{}, collab.OpenRoomDirectory{}, collab.NewMemoryMessageStore())
	s := New(&config.ServerConfig{Addr: ":0"}, h, d, zap.NewNop())

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, h
}

// dial 建立一条 WebSocket 连接
func dial(t *testing.T, ts *httptest.Server, roomID, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + roomID + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitForType 读信封直到出现指定类型
func waitForType(t *testing.T, conn *websocket.Conn, typ hub.EnvelopeType) map[string]any {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))

	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "等待 %s 信封时连接出错", typ)

		var env hub.Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Type == typ {
			payload, _ := env.Data.(map[string]any)
			return payload
		}
	}
}

// TestWebSocketFlow 测试完整的连接、消息与离开流程
func TestWebSocketFlow(t *testing.T) {
	ts, h := newTestServer(t)

	c1 := dial(t, ts, "r1", "U1")
	established := waitForType(t, c1, hub.TypeConnectionEstablished)
	assert.Equal(t, "U1", established["identity"])

	c2 := dial(t, ts, "r1", "U2")
	waitForType(t, c2, hub.TypeConnectionEstablished)

	joined := waitForType(t, c1, hub.TypeUserJoined)
	assert.Equal(t, "U2", joined["identity"])

	// U1 发消息，双方都收到
	require.NoError(t, c1.WriteJSON(map[string]any{
		"action":  "send_message",
		"message": "hello from U1",
	}))

	msg := waitForType(t, c2, hub.TypeNewMessage)
	assert.Equal(t, "hello from U1", msg["content"])
	assert.Equal(t, "U1", msg["sender_id"])
	waitForType(t, c1, hub.TypeNewMessage)

	// U1 断开，U2 收到离开事件
	require.NoError(t, c1.Close())
	left := waitForType(t, c2, hub.TypeUserLeft)
	assert.Equal(t, "U1", left["identity"])

	require.Eventually(t, func() bool {
		members := h.Members("r1")
		return len(members) == 1 && members[0] == "U2"
	}, 3*time.Second, 10*time.Millisecond)
}

// TestWebSocketRejectsEmptyToken 测试空令牌被拒并收到区分性关闭码
func TestWebSocketRejectsEmptyToken(t *testing.T) {
	ts, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/r1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "升级本身应成功，拒绝通过关闭码表达")
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, protocol.CloseInvalidToken),
		"期望关闭码 %d，实际 %v", protocol.CloseInvalidToken, err)
}

// TestOnlineUsersEndpoint 测试在线用户查询
func TestOnlineUsersEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	c1 := dial(t, ts, "r1", "U1")
	waitForType(t, c1, hub.TypeConnectionEstablished)

	resp, err := http.Get(ts.URL + "/api/online-users")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		OnlineUsers []string `json:"online_users"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.ElementsMatch(t, []string{"U1"}, body.OnlineUsers)
}

// TestParticipantsEndpoint 测试房间成员查询
func TestParticipantsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	c1 := dial(t, ts, "r1", "U1")
	waitForType(t, c1, hub.TypeConnectionEstablished)

	resp, err := http.Get(ts.URL + "/api/rooms/r1/participants")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		RoomID       string `json:"room_id"`
		Participants []struct {
			Identity string `json:"identity"`
			IsOnline bool   `json:"is_online"`
		} `json:"participants"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "r1", body.RoomID)
	require.Len(t, body.Participants, 1)
	assert.Equal(t, "U1", body.Participants[0].Identity)
	assert.True(t, body.Participants[0].IsOnline)
}

// TestSystemMessageEndpoint 测试系统消息广播与历史查询
func TestSystemMessageEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	c1 := dial(t, ts, "r1", "U1")
	waitForType(t, c1, hub.TypeConnectionEstablished)

	resp, err := http.Post(ts.URL+"/api/rooms/r1/system-message", "application/json",
		strings.NewReader(`{"content":"maintenance at noon"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sys := waitForType(t, c1, hub.TypeSystemMessage)
	assert.Equal(t, "maintenance at noon", sys["content"])

	// 系统消息进入房间历史
	resp, err = http.Get(ts.URL + "/api/rooms/r1/history")
	require.NoError(t, err)
	defer resp.Body.Close()

	var history struct {
		Messages []hub.Envelope `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history.Messages, 1)
	assert.Equal(t, hub.TypeSystemMessage, history.Messages[0].Type)
}

// TestMessageLifecycleEndpoints 测试消息编辑与删除事件推送
func TestMessageLifecycleEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	c1 := dial(t, ts, "r1", "U1")
	waitForType(t, c1, hub.TypeConnectionEstablished)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/rooms/r1/messages/m1",
		strings.NewReader(`{"sender_id":"U1","content":"edited"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := waitForType(t, c1, hub.TypeMessageUpdated)
	assert.Equal(t, "m1", updated["id"])
	assert.Equal(t, "edited", updated["content"])
	assert.Equal(t, true, updated["is_edited"])

	req, err = http.NewRequest(http.MethodDelete, ts.URL+"/api/rooms/r1/messages/m1", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	deleted := waitForType(t, c1, hub.TypeMessageDeleted)
	assert.Equal(t, "m1", deleted["id"])
}

// TestSystemMessageRequiresContent 测试缺少内容时返回 400
func TestSystemMessageRequiresContent(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/rooms/r1/system-message", "application/json",
		strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
