package subscription

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nishanth-sairam/whatsup-clone/internal/auth"
	"github.com/nishanth-sairam/whatsup-clone/internal/notify"
	"github.com/nishanth-sairam/whatsup-clone/internal/transport"
)

// State 订阅生命周期状态
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Manager 实时通知订阅管理器
// 负责通道的建立、订阅、退订和重连；解码成功的通知
// 按到达顺序交给 sink（即 Store 的事件队列）
type Manager struct {
	transport transport.Transport
	tokens    auth.TokenProvider
	sink      func(notify.Notification)
	logger    *slog.Logger

	backoffInitial time.Duration
	backoffMax     time.Duration

	mu    sync.Mutex
	state State
	conn  transport.Conn
	sub   transport.Subscription

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewManager 创建订阅管理器
// sink 收到的通知顺序与帧到达顺序一致
func NewManager(t transport.Transport, tokens auth.TokenProvider, sink func(notify.Notification), backoffInitial, backoffMax time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if backoffInitial <= 0 {
		backoffInitial = time.Second
	}
	if backoffMax < backoffInitial {
		backoffMax = 30 * time.Second
	}
	return &Manager{
		transport:      t,
		tokens:         tokens,
		sink:           sink,
		logger:         logger,
		backoffInitial: backoffInitial,
		backoffMax:     backoffMax,
		stopCh:         make(chan struct{}),
	}
}

// Run 运行连接循环（阻塞，应在独立 goroutine 中调用）
// 传输故障触发有上界的指数退避重连；凭证错误直接返回，
// 由调用方走重新登录路径
func (m *Manager) Run(ctx context.Context) error {
	backoff := m.backoffInitial

	for {
		if !m.running(ctx) {
			return nil
		}
		m.setState(StateConnecting)

		token, err := m.tokens.Token(ctx)
		if err != nil {
			m.setState(StateDisconnected)
			return err
		}

		conn, err := m.transport.Dial(ctx, token)
		if err != nil {
			m.logger.Warn("Dial failed, backing off", "error", err, "wait", backoff)
			m.setState(StateDisconnected)
			if !m.sleep(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, m.backoffMax)
			continue
		}

		sub, err := conn.Subscribe(m.tokens.Subject(), m.onFrame)
		if err != nil {
			m.logger.Warn("Subscribe failed, backing off", "error", err, "wait", backoff)
			_ = conn.Close()
			m.setState(StateDisconnected)
			if !m.sleep(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, m.backoffMax)
			continue
		}

		m.mu.Lock()
		m.conn = conn
		m.sub = sub
		m.state = StateSubscribed
		m.mu.Unlock()
		m.logger.Info("Subscribed to notification channel", "user_id", m.tokens.Subject())
		backoff = m.backoffInitial

		select {
		case <-ctx.Done():
			m.teardown()
			return nil
		case <-m.stopCh:
			m.teardown()
			return nil
		case <-conn.Done():
			m.logger.Warn("Notification channel lost, reconnecting", "wait", backoff)
			m.clear()
			if !m.sleep(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, m.backoffMax)
		}
	}
}

// Stop 停止订阅并关闭连接
// 从任何状态调用都是安全的，包括从未连接成功或已停止
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	m.teardown()
}

// State 返回当前生命周期状态
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// onFrame 解码入站帧并交给 sink
// 解码失败只丢弃该帧，不影响订阅
func (m *Manager) onFrame(data []byte) {
	n, err := notify.Decode(data)
	if err != nil {
		m.logger.Warn("Dropping undecodable notification", "error", err)
		return
	}
	m.sink(n)
}

// teardown 先退订再断开（资源缺失时各步是空操作）
func (m *Manager) teardown() {
	m.mu.Lock()
	m.state = StateClosing
	sub := m.sub
	conn := m.conn
	m.sub = nil
	m.conn = nil
	m.mu.Unlock()

	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			m.logger.Debug("Unsubscribe during teardown failed", "error", err)
		}
	}
	if conn != nil {
		_ = conn.Close()
	}
	m.setState(StateDisconnected)
}

// clear 连接丢失后清理句柄（不主动关闭，连接已失效）
func (m *Manager) clear() {
	m.mu.Lock()
	m.sub = nil
	m.conn = nil
	m.state = StateDisconnected
	m.mu.Unlock()
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) running(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-m.stopCh:
		return false
	default:
		return true
	}
}

// sleep 可中断的退避等待，返回是否应继续运行
func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-m.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

// nextBackoff 单调递增、有上界的指数退避
func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}
