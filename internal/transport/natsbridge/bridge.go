package natsbridge

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/nishanth-sairam/whatsup-clone/internal/config"
	"github.com/nishanth-sairam/whatsup-clone/internal/errors"
	"github.com/nishanth-sairam/whatsup-clone/internal/transport"
)

// Transport NATS 桥接传输
// 绕过 WebSocket 网关，直接订阅后端消息总线上的用户通知主题，
// 主题格式 {prefix}.{userId}，载荷与 WebSocket 通道相同
type Transport struct {
	cfg    config.NATSConfig
	logger *slog.Logger
}

// New 创建 NATS 桥接传输
func New(cfg config.NATSConfig, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{cfg: cfg, logger: logger}
}

// Dial 建立 NATS 连接
// 重连交给 nats 客户端自身；连接最终关闭时 Done 通道被关闭
func (t *Transport) Dial(ctx context.Context, token string) (transport.Conn, error) {
	done := make(chan struct{})

	opts := []nats.Option{
		nats.Token(token),
		nats.MaxReconnects(t.cfg.MaxReconnects),
		nats.ReconnectWait(t.cfg.ReconnectWait),
		nats.ClosedHandler(func(nc *nats.Conn) {
			close(done)
		}),
	}

	nc, err := nats.Connect(t.cfg.URL, opts...)
	if err != nil {
		return nil, errors.ErrConnectFailed.Wrap(err)
	}

	return &conn{
		nc:     nc,
		prefix: t.cfg.SubjectPrefix,
		logger: t.logger,
		done:   done,
	}, nil
}

type conn struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
	done   chan struct{}
}

// Subscribe 订阅用户通知主题
func (c *conn) Subscribe(userId string, onFrame func(data []byte)) (transport.Subscription, error) {
	subject := c.prefix + "." + userId

	sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
		onFrame(msg.Data)
	})
	if err != nil {
		return nil, errors.ErrSubscribeFailed.Wrap(err)
	}

	c.logger.Debug("Subscribed to notification subject", "subject", subject)
	return &subscription{sub: sub}, nil
}

func (c *conn) Done() <-chan struct{} {
	return c.done
}

// Close 关闭连接；幂等（nats 客户端自身保证）
func (c *conn) Close() error {
	c.nc.Close()
	return nil
}

type subscription struct {
	sub *nats.Subscription
}

// Unsubscribe 取消订阅；连接已关闭时 nats 返回的错误被吞掉
func (s *subscription) Unsubscribe() error {
	if !s.sub.IsValid() {
		return nil
	}
	return s.sub.Unsubscribe()
}
