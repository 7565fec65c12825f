package transport

import "context"

// Transport 实时通知通道的抽象
// 具体实现：STOMP over WebSocket（stomp 包）、NATS 桥接（natsbridge 包）
type Transport interface {
	// Dial 建立连接；token 为当前用户的 bearer 凭证
	Dial(ctx context.Context, token string) (Conn, error)
}

// Conn 已建立的连接
type Conn interface {
	// Subscribe 订阅指定用户的私有通知频道
	// onFrame 在连接的读 goroutine 中按到达顺序被调用
	Subscribe(userId string, onFrame func(data []byte)) (Subscription, error)
	// Done 返回在连接关闭（主动或故障）时被 close 的通道
	Done() <-chan struct{}
	// Close 关闭连接；幂等
	Close() error
}

// Subscription 已建立的订阅
type Subscription interface {
	// Unsubscribe 取消订阅；连接已关闭时是空操作
	Unsubscribe() error
}
