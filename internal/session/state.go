package session

import (
	"github.com/nishanth-sairam/whatsup-clone/internal/model"
)

// SessionState 会话层状态快照
// 值语义：Reconciler 的每次转移都返回新状态，入参不被修改，
// 因此任一转移在外部观察下都是全有或全无的
type SessionState struct {
	// Chats 会话列表，按最近活跃排序（最新的在最前）
	Chats []model.Chat
	// OpenChatId 当前打开的会话 Id，空串表示没有打开的会话
	OpenChatId string
	// Messages 当前打开会话已加载的消息页
	Messages model.Page
}

// Chat 按 Id 查找会话，返回副本和是否存在
func (s SessionState) Chat(chatId string) (model.Chat, bool) {
	for _, c := range s.Chats {
		if c.Id == chatId {
			return c, true
		}
	}
	return model.Chat{}, false
}

// clone 深拷贝状态（监听器快照和写时复制用）
func (s SessionState) clone() SessionState {
	next := s
	next.Chats = cloneChats(s.Chats)
	next.Messages.Content = cloneMessages(s.Messages.Content)
	return next
}

func cloneChats(chats []model.Chat) []model.Chat {
	if chats == nil {
		return nil
	}
	out := make([]model.Chat, len(chats))
	copy(out, chats)
	return out
}

func cloneMessages(msgs []model.ChatMessage) []model.ChatMessage {
	if msgs == nil {
		return nil
	}
	out := make([]model.ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}
