package notify

// Notification 实时通知事件（封闭变体集合）
// 变体只在本包内定义：MessageNotification / ImageNotification / SeenNotification
// Reconciler 对该集合做穷尽匹配，新增变体必须同步扩展所有 switch
type Notification interface {
	isNotification()
}

// MessageNotification 文本消息通知
type MessageNotification struct {
	ChatId     string
	SenderId   string
	ReceiverId string
	ChatName   string
	Content    string
}

// ImageNotification 图片消息通知
type ImageNotification struct {
	ChatId     string
	SenderId   string
	ReceiverId string
	ChatName   string
	Content    string
	Media      []byte
}

// SeenNotification 已读回执通知
type SeenNotification struct {
	ChatId     string
	SenderId   string
	ReceiverId string
}

func (*MessageNotification) isNotification() {}
func (*ImageNotification) isNotification()   {}
func (*SeenNotification) isNotification()    {}
