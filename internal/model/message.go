package model

import "time"

// MessageType 消息类型
type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"  // 文本
	MessageTypeImage MessageType = "IMAGE" // 图片
)

// MessageState 消息投递状态
// 只允许 SENT -> SEEN 单向转移
type MessageState string

const (
	MessageStateSent MessageState = "SENT" // 已发送
	MessageStateSeen MessageState = "SEEN" // 已读
)

// ChatMessage 消息实体（对应服务端 MessageResponse）
// MessageId 为服务端分配；由通知合成的消息没有持久化 Id，
// 此时 MessageId 为空、State 为零值（入站消息不参与投递状态转移）
type ChatMessage struct {
	MessageId  string       `json:"messageId,omitempty"`
	SenderId   string       `json:"senderId"`
	ReceiverId string       `json:"receiverId"`
	Content    string       `json:"content"`
	Media      []byte       `json:"media,omitempty"`
	Type       MessageType  `json:"type"`
	State      MessageState `json:"state,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}
