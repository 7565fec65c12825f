package notify

import (
	"encoding/json"
	"fmt"

	"github.com/nishanth-sairam/whatsup-clone/internal/errors"
	"github.com/nishanth-sairam/whatsup-clone/internal/model"
)

// 通知类型判别值（对应服务端 NotificationType）
const (
	typeMessage = "MESSAGE"
	typeImage   = "IMAGE"
	typeSeen    = "SEEN"
)

// envelope 服务端 Notification 的 JSON 结构
type envelope struct {
	ChatId           string            `json:"chatId"`
	Content          string            `json:"content,omitempty"`
	SenderId         string            `json:"senderId"`
	ReceiverId       string            `json:"receiverId"`
	ChatName         string            `json:"chatName,omitempty"`
	MessageType      model.MessageType `json:"messageType,omitempty"`
	NotificationType string            `json:"notificationType"`
	Media            []byte            `json:"media,omitempty"`
}

// Decode 将原始帧解析为类型化通知
// 格式错误或判别值未知时返回 ErrDecodeFailed / ErrUnknownNotification，
// 调用方应丢弃该帧而不是中断订阅
func Decode(raw []byte) (Notification, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.ErrDecodeFailed.Wrap(err)
	}
	if env.ChatId == "" {
		return nil, errors.ErrDecodeFailed.Wrap(fmt.Errorf("missing chatId"))
	}

	switch env.NotificationType {
	case typeMessage:
		return &MessageNotification{
			ChatId:     env.ChatId,
			SenderId:   env.SenderId,
			ReceiverId: env.ReceiverId,
			ChatName:   env.ChatName,
			Content:    env.Content,
		}, nil
	case typeImage:
		return &ImageNotification{
			ChatId:     env.ChatId,
			SenderId:   env.SenderId,
			ReceiverId: env.ReceiverId,
			ChatName:   env.ChatName,
			Content:    env.Content,
			Media:      env.Media,
		}, nil
	case typeSeen:
		return &SeenNotification{
			ChatId:     env.ChatId,
			SenderId:   env.SenderId,
			ReceiverId: env.ReceiverId,
		}, nil
	default:
		return nil, errors.ErrUnknownNotification.Wrap(fmt.Errorf("notificationType=%q", env.NotificationType))
	}
}

// Encode 将类型化通知编码回服务端 JSON 格式
// 用于 NATS 桥接的注入端和编解码往返校验
func Encode(n Notification) ([]byte, error) {
	var env envelope

	switch ev := n.(type) {
	case *MessageNotification:
		env = envelope{
			ChatId:           ev.ChatId,
			SenderId:         ev.SenderId,
			ReceiverId:       ev.ReceiverId,
			ChatName:         ev.ChatName,
			Content:          ev.Content,
			MessageType:      model.MessageTypeText,
			NotificationType: typeMessage,
		}
	case *ImageNotification:
		env = envelope{
			ChatId:           ev.ChatId,
			SenderId:         ev.SenderId,
			ReceiverId:       ev.ReceiverId,
			ChatName:         ev.ChatName,
			Content:          ev.Content,
			Media:            ev.Media,
			MessageType:      model.MessageTypeImage,
			NotificationType: typeImage,
		}
	case *SeenNotification:
		env = envelope{
			ChatId:           ev.ChatId,
			SenderId:         ev.SenderId,
			ReceiverId:       ev.ReceiverId,
			NotificationType: typeSeen,
		}
	default:
		return nil, errors.ErrUnknownNotification
	}

	return json.Marshal(&env)
}
