package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/nishanth-sairam/whatsup-clone/internal/model"
	"github.com/nishanth-sairam/whatsup-clone/internal/notify"
)

// ============== 事件定义 ==============

// event 会话状态的变更事件
// REST 响应、实时通知和用户操作都以离散事件进入同一个队列，
// 由单一写者按入队顺序逐条处理
type event interface {
	isEvent()
}

// notificationEvent 实时通知到达
type notificationEvent struct {
	n notify.Notification
}

// chatsLoadedEvent 会话列表快照加载完成（整体替换）
type chatsLoadedEvent struct {
	chats []model.Chat
}

// messagesLoadedEvent 消息页快照加载完成（整体替换）
// seq 为发起加载时的请求序号，用于丢弃过期响应
type messagesLoadedEvent struct {
	chatId string
	seq    int64
	page   model.Page
}

// openChatEvent 用户切换打开的会话
type openChatEvent struct {
	chatId string
	seq    int64
}

// sentEvent 本端消息发送成功
type sentEvent struct {
	chatId string
	msg    model.ChatMessage
}

// seenEvent mark-seen 操作得到服务端确认
type seenEvent struct {
	chatId string
}

// chatCreatedEvent 用户新建会话
type chatCreatedEvent struct {
	chat model.Chat
}

func (notificationEvent) isEvent()   {}
func (chatsLoadedEvent) isEvent()    {}
func (messagesLoadedEvent) isEvent() {}
func (openChatEvent) isEvent()       {}
func (sentEvent) isEvent()           {}
func (seenEvent) isEvent()           {}
func (chatCreatedEvent) isEvent()    {}

// ============== Store ==============

// Store 会话状态仓库
// 单写者：状态只由 Run 所在的事件循环修改，其它 goroutine
// 通过 Snapshot 读取或通过入队方法请求变更
type Store struct {
	reconciler *Reconciler
	logger     *slog.Logger

	events  chan event
	loadSeq atomic.Int64 // 当前有效的消息加载请求序号

	mu        sync.RWMutex
	state     SessionState
	listeners []func(SessionState)
}

// NewStore 创建会话状态仓库
func NewStore(reconciler *Reconciler, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		reconciler: reconciler,
		logger:     logger,
		events:     make(chan event, 256),
	}
}

// Run 运行事件循环（阻塞，应在独立 goroutine 中调用）
func (s *Store) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			s.process(ev)
		}
	}
}

// process 处理单个事件；两次事件之间状态转移是原子的
func (s *Store) process(ev event) {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()

	var next SessionState
	switch e := ev.(type) {
	case notificationEvent:
		next = s.reconciler.Apply(state, e.n)

	case chatsLoadedEvent:
		next = state
		next.Chats = e.chats

	case messagesLoadedEvent:
		// 过期响应：期间用户又切换了会话，静默丢弃
		if e.seq < s.loadSeq.Load() || e.chatId != state.OpenChatId {
			s.logger.Debug("Dropping stale messages snapshot",
				"chat_id", e.chatId,
				"seq", e.seq,
				"active_seq", s.loadSeq.Load())
			return
		}
		next = state
		next.Messages = e.page

	case openChatEvent:
		next = state
		next.OpenChatId = e.chatId
		next.Messages = model.Page{}

	case sentEvent:
		next = s.reconciler.applySent(state, e.chatId, e.msg)

	case seenEvent:
		next = s.reconciler.applyMarkSeen(state, e.chatId)

	case chatCreatedEvent:
		if _, ok := state.Chat(e.chat.Id); ok {
			return
		}
		next = state
		next.Chats = append([]model.Chat{e.chat}, cloneChats(state.Chats)...)

	default:
		return
	}

	s.mu.Lock()
	s.state = next
	listeners := s.listeners
	s.mu.Unlock()

	if len(listeners) > 0 {
		snapshot := next.clone()
		for _, fn := range listeners {
			fn(snapshot)
		}
	}
}

// Snapshot 返回当前状态的深拷贝
func (s *Store) Snapshot() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// OnStateChanged 注册状态变更监听器
// 监听器在事件循环 goroutine 内被调用，收到的是状态快照
func (s *Store) OnStateChanged(fn func(SessionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// ============== 入队方法 ==============

// ApplyNotification 投递一条实时通知
func (s *Store) ApplyNotification(n notify.Notification) {
	s.events <- notificationEvent{n: n}
}

// SetChats 以快照整体替换会话列表
func (s *Store) SetChats(chats []model.Chat) {
	s.events <- chatsLoadedEvent{chats: chats}
}

// OpenChat 切换打开的会话，返回本次加载的请求序号
// 旧序号的消息页响应会被丢弃
func (s *Store) OpenChat(chatId string) int64 {
	seq := s.loadSeq.Add(1)
	s.events <- openChatEvent{chatId: chatId, seq: seq}
	return seq
}

// BeginReload 为打开的会话发起一次重新加载，返回新的请求序号
// 不清空已加载页；之前在途的加载响应会因序号过期被丢弃
func (s *Store) BeginReload() int64 {
	return s.loadSeq.Add(1)
}

// SetMessages 以快照替换打开会话的消息页
// seq 必须是发起加载时 OpenChat 返回的序号
func (s *Store) SetMessages(chatId string, seq int64, page model.Page) {
	s.events <- messagesLoadedEvent{chatId: chatId, seq: seq, page: page}
}

// AppendSent 投递本端发送成功的消息
func (s *Store) AppendSent(chatId string, msg model.ChatMessage) {
	s.events <- sentEvent{chatId: chatId, msg: msg}
}

// ApplySeen 投递 mark-seen 的确认结果
func (s *Store) ApplySeen(chatId string) {
	s.events <- seenEvent{chatId: chatId}
}

// AddChat 投递用户新建的会话
func (s *Store) AddChat(chat model.Chat) {
	s.events <- chatCreatedEvent{chat: chat}
}
