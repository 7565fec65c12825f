package session

import (
	"time"

	"github.com/nishanth-sairam/whatsup-clone/internal/model"
	"github.com/nishanth-sairam/whatsup-clone/internal/notify"
)

// previewAttachment 图片消息在会话列表中的预览文案
const previewAttachment = "Attachment"

// Reconciler 通知合并器
// 纯状态转移：(state, event) -> state，不做 I/O，没有隐藏状态
// 事件必须按到达顺序逐条应用，本层不重排也不合批
type Reconciler struct {
	now func() time.Time
}

// NewReconciler 创建通知合并器
func NewReconciler() *Reconciler {
	return &Reconciler{now: time.Now}
}

// inbound 入站消息通知的归一化表示（MESSAGE 与 IMAGE 共用一条路径）
type inbound struct {
	chatId     string
	senderId   string
	receiverId string
	chatName   string
	content    string
	media      []byte
	msgType    model.MessageType
	preview    string
}

// Apply 将一条通知合并进会话状态，返回新状态
func (r *Reconciler) Apply(state SessionState, n notify.Notification) SessionState {
	switch ev := n.(type) {
	case *notify.MessageNotification:
		return r.applyInbound(state, inbound{
			chatId:     ev.ChatId,
			senderId:   ev.SenderId,
			receiverId: ev.ReceiverId,
			chatName:   ev.ChatName,
			content:    ev.Content,
			msgType:    model.MessageTypeText,
			preview:    ev.Content,
		})
	case *notify.ImageNotification:
		return r.applyInbound(state, inbound{
			chatId:     ev.ChatId,
			senderId:   ev.SenderId,
			receiverId: ev.ReceiverId,
			chatName:   ev.ChatName,
			content:    ev.Content,
			media:      ev.Media,
			msgType:    model.MessageTypeImage,
			preview:    previewAttachment,
		})
	case *notify.SeenNotification:
		return r.applySeen(state, ev.ChatId)
	default:
		// notify 包封闭了变体集合，这里不应到达
		return state
	}
}

// applyInbound 处理入站消息通知（MESSAGE / IMAGE）
func (r *Reconciler) applyInbound(state SessionState, ev inbound) SessionState {
	now := r.now()

	// 目标会话正打开：消息插入页首，未读数累加
	if state.OpenChatId != "" && state.OpenChatId == ev.chatId {
		msg := model.ChatMessage{
			SenderId:   ev.senderId,
			ReceiverId: ev.receiverId,
			Content:    ev.content,
			Media:      ev.media,
			Type:       ev.msgType,
			CreatedAt:  now,
			// 入站消息没有服务端 Id，也不参与 SENT/SEEN 转移，State 留空
		}

		next := state
		msgs := make([]model.ChatMessage, 0, len(state.Messages.Content)+1)
		msgs = append(msgs, msg)
		msgs = append(msgs, state.Messages.Content...)
		next.Messages.Content = msgs

		next.Chats = cloneChats(state.Chats)
		for i := range next.Chats {
			if next.Chats[i].Id == ev.chatId {
				next.Chats[i].UnreadCount++
				next.Chats[i].LastMessage = ev.preview
				break
			}
		}
		return next
	}

	// 目标会话未打开但已知：更新预览和时间，未读数累加，并置顶
	for i := range state.Chats {
		if state.Chats[i].Id != ev.chatId {
			continue
		}
		chats := cloneChats(state.Chats)
		c := chats[i]
		c.LastMessage = ev.preview
		c.LastMessageTime = now
		c.UnreadCount++

		// 最近活跃的会话置顶
		chats = append(chats[:i], chats[i+1:]...)
		chats = append([]model.Chat{c}, chats...)

		next := state
		next.Chats = chats
		return next
	}

	// 目标会话未知：创建新会话并置顶
	// IMAGE 与 MESSAGE 采用同一创建策略，预览为 Attachment（见 DESIGN.md）
	c := model.Chat{
		Id:              ev.chatId,
		Name:            ev.chatName,
		SenderId:        ev.senderId,
		ReceiverId:      ev.receiverId,
		LastMessage:     ev.preview,
		LastMessageTime: now,
		UnreadCount:     1,
	}

	next := state
	chats := make([]model.Chat, 0, len(state.Chats)+1)
	chats = append(chats, c)
	chats = append(chats, state.Chats...)
	next.Chats = chats
	return next
}

// applySeen 处理已读回执通知
// 只有正打开的会话持有已加载的消息页，未打开时是空操作；
// 未读数由显式的 mark-seen 操作负责，此路径不触碰
func (r *Reconciler) applySeen(state SessionState, chatId string) SessionState {
	if state.OpenChatId == "" || state.OpenChatId != chatId {
		return state
	}

	next := state
	next.Messages.Content = cloneMessages(state.Messages.Content)
	for i := range next.Messages.Content {
		if next.Messages.Content[i].State == model.MessageStateSent {
			next.Messages.Content[i].State = model.MessageStateSeen
		}
	}
	return next
}

// applyMarkSeen 应用用户侧 mark-seen 的确认结果
// 已加载页中所有 SENT 消息转为 SEEN，该会话未读数归零；幂等
func (r *Reconciler) applyMarkSeen(state SessionState, chatId string) SessionState {
	next := state

	if state.OpenChatId == chatId {
		next.Messages.Content = cloneMessages(state.Messages.Content)
		for i := range next.Messages.Content {
			if next.Messages.Content[i].State == model.MessageStateSent {
				next.Messages.Content[i].State = model.MessageStateSeen
			}
		}
	}

	next.Chats = cloneChats(state.Chats)
	for i := range next.Chats {
		if next.Chats[i].Id == chatId {
			next.Chats[i].UnreadCount = 0
			break
		}
	}
	return next
}

// applySent 应用本端发送成功的消息（服务端已持久化）
// 插入页首并更新会话预览，不增加未读数
func (r *Reconciler) applySent(state SessionState, chatId string, msg model.ChatMessage) SessionState {
	if state.OpenChatId == "" || state.OpenChatId != chatId {
		return state
	}

	next := state
	msgs := make([]model.ChatMessage, 0, len(state.Messages.Content)+1)
	msgs = append(msgs, msg)
	msgs = append(msgs, state.Messages.Content...)
	next.Messages.Content = msgs

	preview := msg.Content
	if msg.Type == model.MessageTypeImage {
		preview = previewAttachment
	}

	next.Chats = cloneChats(state.Chats)
	for i := range next.Chats {
		if next.Chats[i].Id == chatId {
			next.Chats[i].LastMessage = preview
			next.Chats[i].LastMessageTime = r.now()
			break
		}
	}
	return next
}
