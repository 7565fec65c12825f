package model

import "time"

// Chat 会话信息（对应服务端 ChatResponse）
// SenderId/ReceiverId 是对称的参与者对，不区分角色
type Chat struct {
	Id              string    `json:"id"`
	Name            string    `json:"name"`
	SenderId        string    `json:"senderId"`
	ReceiverId      string    `json:"receiverId"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
	UnreadCount     int64     `json:"unreadCount"`
	ReceiverOnline  bool      `json:"receiverOnline"`
}

// Peer 返回会话中对方的用户 Id（selfId 为当前用户）
func (c Chat) Peer(selfId string) string {
	if c.SenderId == selfId {
		return c.ReceiverId
	}
	return c.SenderId
}
