package hub

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHubEndToEnd 测试完整的加入-输入-离开流程
func TestHubEndToEnd(t *testing.T) {
	h := newTestHub(t)

	u1, u2 := newFakeSender(), newFakeSender()

	members, replaced := h.Join("U1", "r1", u1)
	assert.Nil(t, replaced)
	assert.ElementsMatch(t, []string{"U1"}, members)
	h.AnnounceJoin("U1", "r1")

	members, _ = h.Join("U2", "r1", u2)
	assert.ElementsMatch(t, []string{"U1", "U2"}, members)
	h.AnnounceJoin("U2", "r1")

	// U1 收到 U2 的加入事件，U2 自己收不到
	data, ok := u1.lastOfType(TypeUserJoined)
	require.True(t, ok)
	assert.Equal(t, "U2", data["identity"])
	assert.Zero(t, u2.countType(TypeUserJoined))

	// U1 开始输入：U2 收到指示，U1 自己收不到
	h.Typing("U1", "r1", true)

	data, ok = u2.lastOfType(TypeTypingIndicator)
	require.True(t, ok)
	assert.Equal(t, "U1", data["identity"])
	assert.Equal(t, true, data["is_typing"])
	assert.Equal(t, "r1", data["room_id"])
	assert.Zero(t, u1.countType(TypeTypingIndicator))

	// U1 断开：U2 收到离开事件，成员只剩 U2
	require.True(t, h.Leave("U1", "r1"))

	data, ok = u2.lastOfType(TypeUserLeft)
	require.True(t, ok)
	assert.Equal(t, "U1", data["identity"])
	assert.Equal(t, "r1", data["room_id"])
	assert.ElementsMatch(t, []string{"U2"}, h.Members("r1"))
}

// TestHubJoinReplacesStaleHandle 测试重连时返回旧句柄供调用方关闭
func TestHubJoinReplacesStaleHandle(t *testing.T) {
	h := newTestHub(t)

	stale := newFakeSender()
	h.Join("U1", "r1", stale)

	fresh := newFakeSender()
	_, replaced := h.Join("U1", "r1", fresh)
	require.NotNil(t, replaced)
	assert.Same(t, stale, replaced.(*fakeSender))

	// 新句柄接收后续广播
	h.BroadcastSystem("r1", "hello", nil)
	assert.Equal(t, 1, fresh.countType(TypeSystemMessage))
	assert.Zero(t, stale.countType(TypeSystemMessage))
}

// TestHubHistoryBounded 测试房间历史有界
func TestHubHistoryBounded(t *testing.T) {
	h := newTestHub(t, WithHistoryLimit(3))

	h.Join("U1", "r1", newFakeSender())
	for i := 0; i < 5; i++ {
		h.BroadcastMessage("r1", MessageData{RoomID: "r1", SenderID: "U1", Content: fmt.Sprintf("m%d", i)})
	}

	recent := h.History("r1", 0)
	require.Len(t, recent, 3, "只保留最近的 limit 条")
	assert.Equal(t, "m2", recent[0].Data.(MessageData).Content)
	assert.Equal(t, "m4", recent[2].Data.(MessageData).Content)

	// 取最近一条
	last := h.History("r1", 1)
	require.Len(t, last, 1)
	assert.Equal(t, "m4", last[0].Data.(MessageData).Content)
}

// TestHubParticipants 测试成员列表携带在线状态
func TestHubParticipants(t *testing.T) {
	h := newTestHub(t)

	h.Join("U1", "r1", newFakeSender())
	h.Join("U2", "r1", newFakeSender())

	parts := h.Participants("r1")
	require.Len(t, parts, 2)
	for _, p := range parts {
		assert.True(t, p.IsOnline)
	}
}

// TestHubRequestFeedback 测试反馈请求信封
func TestHubRequestFeedback(t *testing.T) {
	h := newTestHub(t)

	u1 := newFakeSender()
	h.Join("U1", "r1", u1)

	h.RequestFeedback("r1", "请评价本次会话")

	data, ok := u1.lastOfType(TypeFeedbackRequest)
	require.True(t, ok)
	assert.Equal(t, "r1", data["room_id"])
}

// TestHubConfigValidate 测试非法配置被拒绝
func TestHubConfigValidate(t *testing.T) {
	_, err := New(WithSessionTimeout(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(WithSweepInterval(0))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	// 输入阈值必须小于会话超时
	_, err = New(WithSessionTimeout(5*time.Second), WithTypingTimeout(10*time.Second))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(WithHistoryLimit(-1))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// TestHubMessageLifecycleBroadcasts 测试编辑与删除事件广播给全员且不进历史
func TestHubMessageLifecycleBroadcasts(t *testing.T) {
	h := newTestHub(t)

	u1, u2 := newFakeSender(), newFakeSender()
	h.Join("U1", "r1", u1)
	h.Join("U2", "r1", u2)

	h.BroadcastMessageUpdated("r1", MessageData{ID: "m1", RoomID: "r1", Content: "edited"})

	for _, s := range []*fakeSender{u1, u2} {
		data, ok := s.lastOfType(TypeMessageUpdated)
		require.True(t, ok)
		assert.Equal(t, "m1", data["id"])
		assert.Equal(t, "edited", data["content"])
		assert.Equal(t, true, data["is_edited"])
	}

	h.BroadcastMessageDeleted("r1", "m1")

	data, ok := u2.lastOfType(TypeMessageDeleted)
	require.True(t, ok)
	assert.Equal(t, "m1", data["id"])

	// 生命周期事件不写入历史
	assert.Empty(t, h.History("r1", 10))
}
