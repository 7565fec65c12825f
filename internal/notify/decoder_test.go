package notify

import (
	"bytes"
	"testing"

	"github.com/nishanth-sairam/whatsup-clone/internal/errors"
)

func TestDecode_Message(t *testing.T) {
	raw := []byte(`{
		"chatId": "c1",
		"content": "hello",
		"senderId": "u1",
		"receiverId": "u2",
		"chatName": "Alice",
		"messageType": "TEXT",
		"notificationType": "MESSAGE"
	}`)

	n, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	msg, ok := n.(*MessageNotification)
	if !ok {
		t.Fatalf("Expected *MessageNotification, got %T", n)
	}
	if msg.ChatId != "c1" {
		t.Errorf("Expected chatId 'c1', got '%s'", msg.ChatId)
	}
	if msg.SenderId != "u1" {
		t.Errorf("Expected senderId 'u1', got '%s'", msg.SenderId)
	}
	if msg.Content != "hello" {
		t.Errorf("Expected content 'hello', got '%s'", msg.Content)
	}
	if msg.ChatName != "Alice" {
		t.Errorf("Expected chatName 'Alice', got '%s'", msg.ChatName)
	}
}

func TestDecode_Image(t *testing.T) {
	// media 为 base64 编码的字节（JSON []byte 语义）
	raw := []byte(`{
		"chatId": "c1",
		"senderId": "u1",
		"receiverId": "u2",
		"messageType": "IMAGE",
		"notificationType": "IMAGE",
		"media": "aGVsbG8="
	}`)

	n, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	img, ok := n.(*ImageNotification)
	if !ok {
		t.Fatalf("Expected *ImageNotification, got %T", n)
	}
	if !bytes.Equal(img.Media, []byte("hello")) {
		t.Errorf("Expected media 'hello', got '%s'", img.Media)
	}
}

func TestDecode_Seen(t *testing.T) {
	raw := []byte(`{"chatId": "c1", "senderId": "u1", "receiverId": "u2", "notificationType": "SEEN"}`)

	n, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if _, ok := n.(*SeenNotification); !ok {
		t.Fatalf("Expected *SeenNotification, got %T", n)
	}
}

func TestDecode_UnknownType(t *testing.T) {
	raw := []byte(`{"chatId": "c1", "notificationType": "TYPING"}`)

	_, err := Decode(raw)
	if err == nil {
		t.Fatal("Expected error for unknown notification type")
	}
	if !errors.Is(err, errors.ErrUnknownNotification) {
		t.Errorf("Expected ErrUnknownNotification, got %v", err)
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	if err == nil {
		t.Fatal("Expected error for malformed JSON")
	}
	if !errors.Is(err, errors.ErrDecodeFailed) {
		t.Errorf("Expected ErrDecodeFailed, got %v", err)
	}
}

func TestDecode_MissingChatId(t *testing.T) {
	_, err := Decode([]byte(`{"notificationType": "MESSAGE", "content": "hi"}`))
	if err == nil {
		t.Fatal("Expected error for missing chatId")
	}
	if !errors.Is(err, errors.ErrDecodeFailed) {
		t.Errorf("Expected ErrDecodeFailed, got %v", err)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		n    Notification
	}{
		{
			name: "message",
			n: &MessageNotification{
				ChatId:     "c1",
				SenderId:   "u1",
				ReceiverId: "u2",
				ChatName:   "Alice",
				Content:    "hello",
			},
		},
		{
			name: "image",
			n: &ImageNotification{
				ChatId:     "c1",
				SenderId:   "u1",
				ReceiverId: "u2",
				ChatName:   "Alice",
				Content:    "photo.png",
				Media:      []byte{0x89, 0x50, 0x4e, 0x47},
			},
		},
		{
			name: "seen",
			n: &SeenNotification{
				ChatId:     "c1",
				SenderId:   "u2",
				ReceiverId: "u1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Encode(tt.n)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			decoded, err := Decode(raw)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			// 逐字段比较
			switch want := tt.n.(type) {
			case *MessageNotification:
				got, ok := decoded.(*MessageNotification)
				if !ok {
					t.Fatalf("Expected *MessageNotification, got %T", decoded)
				}
				if *got != *want {
					t.Errorf("Round trip mismatch: got %+v, want %+v", got, want)
				}
			case *ImageNotification:
				got, ok := decoded.(*ImageNotification)
				if !ok {
					t.Fatalf("Expected *ImageNotification, got %T", decoded)
				}
				if got.ChatId != want.ChatId || got.SenderId != want.SenderId ||
					got.ReceiverId != want.ReceiverId || got.ChatName != want.ChatName ||
					got.Content != want.Content || !bytes.Equal(got.Media, want.Media) {
					t.Errorf("Round trip mismatch: got %+v, want %+v", got, want)
				}
			case *SeenNotification:
				got, ok := decoded.(*SeenNotification)
				if !ok {
					t.Fatalf("Expected *SeenNotification, got %T", decoded)
				}
				if *got != *want {
					t.Errorf("Round trip mismatch: got %+v, want %+v", got, want)
				}
			}
		})
	}
}
