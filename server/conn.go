package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bombarena/protocol"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 64
	maxMessagesPerSec = 120
)

// Conn 是房间视角的客户端连接：发送不阻塞，失败即跳过
type Conn interface {
	ID() string
	// Send 编码并入队，连接已关闭或发送队列满时返回 false
	Send(msg any) bool
	Close()
}

type frame struct {
	binary bool
	data   []byte
}

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	id    string
	ws    *websocket.Conn
	codec protocol.Codec
	send  chan frame
	done  chan struct{}
	once  sync.Once
}

func NewClientConn(ws *websocket.Conn, codec protocol.Codec) *ClientConn {
	return &ClientConn{
		id:    uuid.NewString(),
		ws:    ws,
		codec: codec,
		send:  make(chan frame, sendBufSize),
		done:  make(chan struct{}),
	}
}

func (c *ClientConn) ID() string { return c.id }

// Send 只有 state 帧使用连接协商的编码，其余消息始终是 JSON 文本
func (c *ClientConn) Send(msg any) bool {
	codec := protocol.JSON
	if _, ok := msg.(protocol.State); ok {
		codec = c.codec
	}
	b, err := codec.Marshal(msg)
	if err != nil {
		Log.Warnw("encode failed", "conn", c.id, "codec", codec.Name(), "err", err)
		return false
	}
	return c.Enqueue(frame{binary: codec.Binary(), data: b})
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(f frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- f:
		return true
	default:
		// 为了实时性，丢弃（防止阻塞 Tick）
		return false
	}
}

// Close 通知写协程发送关闭帧并断开；可重复调用
func (c *ClientConn) Close() {
	c.once.Do(func() { close(c.done) })
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期发送 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case f := <-c.send:
			if err := c.write(f); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			// 尽量把已入队的消息（例如 game_over）写完再关闭
			for {
				select {
				case f := <-c.send:
					if c.write(f) != nil {
						return
					}
				default:
					_ = c.ws.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(writeWait))
					return
				}
			}
		}
	}
}

func (c *ClientConn) write(f frame) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	mt := websocket.TextMessage
	if f.binary {
		mt = websocket.BinaryMessage
	}
	return c.ws.WriteMessage(mt, f.data)
}

// readPump 读取客户端帧交给 handle；超出速率的帧直接丢弃。返回时连接已不可用
func (c *ClientConn) readPump(handle func(payload []byte), dropped func()) {
	defer func() {
		c.Close()
		_ = c.ws.Close()
	}()
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	var count int
	resetAt := time.Now().Add(time.Second)
	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Debugw("read error", "conn", c.id, "err", err)
			}
			return
		}
		if now := time.Now(); now.After(resetAt) {
			count = 0
			resetAt = now.Add(time.Second)
		}
		count++
		if count > maxMessagesPerSec {
			dropped()
			continue
		}
		handle(payload)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 客户端可能由其他端口的开发服务器提供，允许所有来源
		return true
	},
}
