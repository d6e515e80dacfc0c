package protocol

import (
	"time"

	"github.com/gorilla/websocket"
)

// Conn 底层双向连接
//
// 对 gorilla 连接的最小抽象，便于在测试中用内存桩替代。
type Conn interface {
	// ReadMessage 读取下一帧，阻塞直到有数据或连接断开
	ReadMessage() ([]byte, error)
	// WriteMessage 写出一帧
	WriteMessage(data []byte) error
	// WriteClose 写出关闭帧
	WriteClose(code int, reason string) error
	// Close 关闭底层连接
	Close() error
}

// wsConn gorilla 连接适配器
type wsConn struct {
	conn      *websocket.Conn
	writeWait time.Duration
}

// WrapConn 把 gorilla 连接包装为 Conn
func WrapConn(conn *websocket.Conn, writeWait time.Duration) Conn {
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}
	return &wsConn{conn: conn, writeWait: writeWait}
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) WriteClose(code int, reason string) error {
	deadline := time.Now().Add(c.writeWait)
	return c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
