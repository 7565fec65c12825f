package stomp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nishanth-sairam/whatsup-clone/internal/errors"
	"github.com/nishanth-sairam/whatsup-clone/internal/transport"
)

// Transport STOMP over WebSocket 客户端传输
type Transport struct {
	url    string
	logger *slog.Logger
}

// New 创建 STOMP 传输
func New(url string, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{url: url, logger: logger}
}

// Dial 建立 WebSocket 连接并完成 STOMP CONNECT 握手
func (t *Transport) Dial(ctx context.Context, token string) (transport.Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return nil, errors.ErrConnectFailed.Wrap(err)
	}

	connect := NewFrame(CmdConnect,
		"accept-version", "1.2",
		"heart-beat", "0,0",
		"Authorization", "Bearer "+token,
	)
	if err := ws.WriteMessage(websocket.TextMessage, connect.Marshal()); err != nil {
		ws.Close()
		return nil, errors.ErrConnectFailed.Wrap(err)
	}

	// 等待 CONNECTED 确认
	_, raw, err := ws.ReadMessage()
	if err != nil {
		ws.Close()
		return nil, errors.ErrConnectFailed.Wrap(err)
	}
	reply, err := Parse(raw)
	if err != nil {
		ws.Close()
		return nil, errors.ErrConnectFailed.Wrap(err)
	}
	if reply == nil || reply.Command != CmdConnected {
		ws.Close()
		if reply != nil && reply.Command == CmdError {
			return nil, errors.ErrConnectFailed.Wrap(fmt.Errorf("server error: %s", reply.Get("message")))
		}
		return nil, errors.ErrConnectFailed.Wrap(fmt.Errorf("unexpected frame %q", raw))
	}

	c := &conn{
		ws:     ws,
		logger: t.logger,
		subs:   make(map[string]func([]byte)),
		done:   make(chan struct{}),
	}
	go c.readPump()
	return c, nil
}

// conn 单条 STOMP 连接
// 写操作经 writeMu 串行化（gorilla/websocket 不允许并发写）
type conn struct {
	ws     *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[string]func([]byte) // subscription id -> handler

	closeOnce sync.Once
	done      chan struct{}
}

// Subscribe 订阅用户私有通知频道 /user/{id}/chat
func (c *conn) Subscribe(userId string, onFrame func(data []byte)) (transport.Subscription, error) {
	id := uuid.NewString()
	destination := "/user/" + userId + "/chat"

	frame := NewFrame(CmdSubscribe,
		"id", id,
		"destination", destination,
		"ack", "auto",
	)
	if err := c.write(frame); err != nil {
		return nil, errors.ErrSubscribeFailed.Wrap(err)
	}

	c.mu.Lock()
	c.subs[id] = onFrame
	c.mu.Unlock()

	c.logger.Debug("Subscribed to notification channel", "destination", destination, "sub_id", id)
	return &subscription{conn: c, id: id}, nil
}

func (c *conn) Done() <-chan struct{} {
	return c.done
}

// Close 发送 DISCONNECT 并关闭底层连接；幂等
func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		// 尽力通知服务端，失败也继续关闭
		disconnect := NewFrame(CmdDisconnect, "receipt", uuid.NewString())
		_ = c.write(disconnect)
		err = c.ws.Close()
		close(c.done)
	})
	return err
}

func (c *conn) write(f *Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, f.Marshal())
}

// readPump 读取并分发服务端帧（每连接一个 goroutine）
func (c *conn) readPump() {
	defer c.Close()

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// 主动关闭
			default:
				c.logger.Warn("STOMP connection lost", "error", err)
			}
			return
		}

		frame, err := Parse(raw)
		if err != nil {
			c.logger.Warn("Dropping malformed STOMP frame", "error", err)
			continue
		}
		if frame == nil {
			continue // 心跳
		}

		switch frame.Command {
		case CmdMessage:
			c.dispatch(frame)
		case CmdReceipt:
			// 确认帧不需要处理
		case CmdError:
			c.logger.Error("STOMP server error", "message", frame.Get("message"))
			return
		default:
			c.logger.Debug("Ignoring unexpected STOMP frame", "command", frame.Command)
		}
	}
}

func (c *conn) dispatch(frame *Frame) {
	subId := frame.Get("subscription")

	c.mu.Lock()
	handler := c.subs[subId]
	c.mu.Unlock()

	if handler == nil {
		c.logger.Debug("Message for unknown subscription", "sub_id", subId)
		return
	}
	handler(frame.Body)
}

// subscription 单个订阅句柄
type subscription struct {
	conn *conn
	id   string
}

// Unsubscribe 取消订阅；连接已关闭时是空操作
func (s *subscription) Unsubscribe() error {
	s.conn.mu.Lock()
	_, active := s.conn.subs[s.id]
	delete(s.conn.subs, s.id)
	s.conn.mu.Unlock()

	if !active {
		return nil
	}

	select {
	case <-s.conn.done:
		return nil
	default:
	}

	frame := NewFrame(CmdUnsubscribe, "id", s.id)
	if err := s.conn.write(frame); err != nil {
		return errors.ErrTransportClosed.Wrap(err)
	}
	return nil
}
