package client

import (
	"context"
	"log/slog"

	"github.com/nishanth-sairam/whatsup-clone/internal/auth"
	"github.com/nishanth-sairam/whatsup-clone/internal/config"
	"github.com/nishanth-sairam/whatsup-clone/internal/errors"
	"github.com/nishanth-sairam/whatsup-clone/internal/model"
	"github.com/nishanth-sairam/whatsup-clone/internal/rest"
	"github.com/nishanth-sairam/whatsup-clone/internal/session"
	"github.com/nishanth-sairam/whatsup-clone/internal/subscription"
	"github.com/nishanth-sairam/whatsup-clone/internal/transport"
	"github.com/nishanth-sairam/whatsup-clone/internal/transport/natsbridge"
	"github.com/nishanth-sairam/whatsup-clone/internal/transport/stomp"
)

// ErrNoOpenChat 当前没有打开的会话
var ErrNoOpenChat = errors.NewError(errors.CodeRequestFailed, "没有打开的会话")

// Client 聊天客户端核心
// 组合快照加载（REST）、实时订阅和会话状态仓库；
// UI 层通过 Store 的监听器读取状态、通过本类型的方法发起操作
type Client struct {
	cfg    *config.Config
	tokens auth.TokenProvider
	api    *rest.Client
	store  *session.Store
	subs   *subscription.Manager
	logger *slog.Logger
}

// New 创建客户端核心
// 依赖全部显式传入，不使用任何包级单例
func New(cfg *config.Config, tokens auth.TokenProvider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	api := rest.NewClient(cfg.Server, tokens, logger)
	store := session.NewStore(session.NewReconciler(), logger)

	var tr transport.Transport
	if cfg.NATS.Enabled {
		tr = natsbridge.New(cfg.NATS, logger)
	} else {
		tr = stomp.New(cfg.WS.URL, logger)
	}
	subs := subscription.NewManager(tr, tokens, store.ApplyNotification,
		cfg.WS.BackoffInitial, cfg.WS.BackoffMax, logger)

	return &Client{
		cfg:    cfg,
		tokens: tokens,
		api:    api,
		store:  store,
		subs:   subs,
		logger: logger,
	}
}

// Store 返回会话状态仓库（注册监听器、读取快照用）
func (c *Client) Store() *session.Store {
	return c.store
}

// SubscriptionState 返回实时通道的生命周期状态
func (c *Client) SubscriptionState() subscription.State {
	return c.subs.State()
}

// Run 启动事件循环和实时订阅，并加载会话列表快照（阻塞）
func (c *Client) Run(ctx context.Context) error {
	go c.store.Run(ctx)

	chats, err := c.api.FetchChats(ctx)
	if err != nil {
		return err
	}
	c.store.SetChats(chats)

	return c.subs.Run(ctx)
}

// Stop 停止实时订阅
func (c *Client) Stop() {
	c.subs.Stop()
}

// OpenChat 打开会话：加载第一页消息并标记已读
// 期间若用户再次切换会话，本次加载的响应会因序号过期被丢弃
func (c *Client) OpenChat(ctx context.Context, chatId string) error {
	seq := c.store.OpenChat(chatId)

	page, err := c.api.FetchMessages(ctx, chatId, 0, c.cfg.Server.PageSize)
	if err != nil {
		return err
	}
	c.store.SetMessages(chatId, seq, page)

	if err := c.api.MarkSeen(ctx, chatId); err != nil {
		return err
	}
	c.store.ApplySeen(chatId)
	return nil
}

// MarkSeen 将会话标记为已读（服务端确认后应用到本地状态；幂等）
func (c *Client) MarkSeen(ctx context.Context, chatId string) error {
	if err := c.api.MarkSeen(ctx, chatId); err != nil {
		return err
	}
	c.store.ApplySeen(chatId)
	return nil
}

// SendMessage 在打开的会话中发送文本消息
func (c *Client) SendMessage(ctx context.Context, content string) error {
	state := c.store.Snapshot()
	chat, ok := state.Chat(state.OpenChatId)
	if !ok {
		return ErrNoOpenChat
	}

	senderId, receiverId := resolvePair(chat, c.tokens.Subject())
	msg, err := c.api.SaveMessage(ctx, rest.MessageRequest{
		ChatId:     chat.Id,
		SenderId:   senderId,
		ReceiverId: receiverId,
		Content:    content,
		Type:       model.MessageTypeText,
	})
	if err != nil {
		return err
	}

	c.store.AppendSent(chat.Id, msg)
	return nil
}

// SendMedia 在打开的会话中发送媒体文件，随后重新拉取消息页
func (c *Client) SendMedia(ctx context.Context, filename string, data []byte) error {
	state := c.store.Snapshot()
	chat, ok := state.Chat(state.OpenChatId)
	if !ok {
		return ErrNoOpenChat
	}

	if err := c.api.UploadMedia(ctx, chat.Id, filename, data); err != nil {
		return err
	}

	// 服务端生成媒体消息，重新加载页面获取权威内容
	seq := c.store.BeginReload()
	page, err := c.api.FetchMessages(ctx, chat.Id, 0, c.cfg.Server.PageSize)
	if err != nil {
		return err
	}
	c.store.SetMessages(chat.Id, seq, page)
	return nil
}

// StartChat 与指定用户新建会话，返回会话 Id
func (c *Client) StartChat(ctx context.Context, peerId string) (string, error) {
	self := c.tokens.Subject()

	chatId, err := c.api.CreateChat(ctx, self, peerId)
	if err != nil {
		return "", err
	}

	c.store.AddChat(model.Chat{
		Id:         chatId,
		SenderId:   self,
		ReceiverId: peerId,
	})
	return chatId, nil
}

// resolvePair 按当前用户在会话中的位置解析发送方/接收方
// 会话的参与者对是对称的，发送时以当前用户为 sender
func resolvePair(chat model.Chat, selfId string) (senderId, receiverId string) {
	if chat.SenderId == selfId {
		return chat.SenderId, chat.ReceiverId
	}
	return chat.ReceiverId, chat.SenderId
}
