package session

import (
	"reflect"
	"testing"
	"time"

	"github.com/nishanth-sairam/whatsup-clone/internal/model"
	"github.com/nishanth-sairam/whatsup-clone/internal/notify"
)

// newTestReconciler 固定时钟，保证转移可复现
func newTestReconciler() *Reconciler {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &Reconciler{now: func() time.Time { return fixed }}
}

func chatIds(chats []model.Chat) []string {
	ids := make([]string, len(chats))
	for i, c := range chats {
		ids[i] = c.Id
	}
	return ids
}

func TestApply_MessageForUnknownChat_CreatesChat(t *testing.T) {
	r := newTestReconciler()

	state := SessionState{}
	next := r.Apply(state, &notify.MessageNotification{
		ChatId:     "c1",
		SenderId:   "u1",
		ReceiverId: "u2",
		ChatName:   "Alice",
		Content:    "hello",
	})

	if len(next.Chats) != 1 {
		t.Fatalf("Expected 1 chat, got %d", len(next.Chats))
	}
	c := next.Chats[0]
	if c.Id != "c1" {
		t.Errorf("Expected chat id 'c1', got '%s'", c.Id)
	}
	if c.UnreadCount != 1 {
		t.Errorf("Expected unread count 1, got %d", c.UnreadCount)
	}
	if c.LastMessage != "hello" {
		t.Errorf("Expected last message 'hello', got '%s'", c.LastMessage)
	}
	if c.Name != "Alice" {
		t.Errorf("Expected chat name 'Alice', got '%s'", c.Name)
	}
}

func TestApply_ImageForUnknownChat_CreatesChat(t *testing.T) {
	// IMAGE 与 MESSAGE 采用同一创建策略
	r := newTestReconciler()

	next := r.Apply(SessionState{}, &notify.ImageNotification{
		ChatId:     "c1",
		SenderId:   "u1",
		ReceiverId: "u2",
		Media:      []byte{1, 2, 3},
	})

	if len(next.Chats) != 1 {
		t.Fatalf("Expected 1 chat, got %d", len(next.Chats))
	}
	if next.Chats[0].LastMessage != "Attachment" {
		t.Errorf("Expected preview 'Attachment', got '%s'", next.Chats[0].LastMessage)
	}
	if next.Chats[0].UnreadCount != 1 {
		t.Errorf("Expected unread count 1, got %d", next.Chats[0].UnreadCount)
	}
}

func TestApply_MessageForKnownClosedChat_BumpsAndMovesToFront(t *testing.T) {
	r := newTestReconciler()

	state := SessionState{
		Chats: []model.Chat{
			{Id: "c4"},
			{Id: "c3"},
			{Id: "c2"},
			{Id: "c1", UnreadCount: 2},
		},
	}

	next := r.Apply(state, &notify.MessageNotification{
		ChatId:   "c1",
		SenderId: "u1",
		Content:  "ping",
	})

	if got := chatIds(next.Chats); !reflect.DeepEqual(got, []string{"c1", "c4", "c3", "c2"}) {
		t.Errorf("Expected c1 moved to front, got %v", got)
	}
	if next.Chats[0].UnreadCount != 3 {
		t.Errorf("Expected unread count 3, got %d", next.Chats[0].UnreadCount)
	}
	if next.Chats[0].LastMessage != "ping" {
		t.Errorf("Expected last message 'ping', got '%s'", next.Chats[0].LastMessage)
	}

	// 入参未被修改
	if state.Chats[3].UnreadCount != 2 {
		t.Error("Input state was mutated")
	}
	if got := chatIds(state.Chats); !reflect.DeepEqual(got, []string{"c4", "c3", "c2", "c1"}) {
		t.Error("Input chat order was mutated")
	}
}

func TestApply_MessageForOpenChat_PrependsAndBumpsUnread(t *testing.T) {
	r := newTestReconciler()

	state := SessionState{
		Chats:      []model.Chat{{Id: "c1", UnreadCount: 1, LastMessage: "old"}},
		OpenChatId: "c1",
		Messages: model.Page{
			Content: []model.ChatMessage{
				{MessageId: "m1", Content: "first", State: model.MessageStateSent},
			},
		},
	}

	next := r.Apply(state, &notify.MessageNotification{
		ChatId:     "c1",
		SenderId:   "u2",
		ReceiverId: "u1",
		Content:    "new message",
	})

	if len(next.Messages.Content) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(next.Messages.Content))
	}
	if next.Messages.Content[0].Content != "new message" {
		t.Errorf("Expected new message at index 0, got '%s'", next.Messages.Content[0].Content)
	}
	if next.Messages.Content[0].MessageId != "" {
		t.Error("Notification-synthesized message must not carry a server id")
	}
	if next.Chats[0].UnreadCount != 2 {
		t.Errorf("Expected unread count 2, got %d", next.Chats[0].UnreadCount)
	}
	if next.Chats[0].LastMessage != "new message" {
		t.Errorf("Expected preview 'new message', got '%s'", next.Chats[0].LastMessage)
	}
}

func TestApply_ImageForOpenChat_UsesAttachmentPreview(t *testing.T) {
	r := newTestReconciler()

	state := SessionState{
		Chats:      []model.Chat{{Id: "c1"}},
		OpenChatId: "c1",
	}

	next := r.Apply(state, &notify.ImageNotification{
		ChatId: "c1",
		Media:  []byte{0xff},
	})

	if len(next.Messages.Content) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(next.Messages.Content))
	}
	if next.Messages.Content[0].Type != model.MessageTypeImage {
		t.Errorf("Expected IMAGE type, got '%s'", next.Messages.Content[0].Type)
	}
	if next.Chats[0].LastMessage != "Attachment" {
		t.Errorf("Expected preview 'Attachment', got '%s'", next.Chats[0].LastMessage)
	}
}

func TestApply_SeenForOpenChat_FlipsSentMessages(t *testing.T) {
	r := newTestReconciler()

	state := SessionState{
		Chats:      []model.Chat{{Id: "c1", UnreadCount: 5}},
		OpenChatId: "c1",
		Messages: model.Page{
			Content: []model.ChatMessage{
				{MessageId: "m1", State: model.MessageStateSent},
				{MessageId: "m2", State: model.MessageStateSent},
			},
		},
	}

	seen := &notify.SeenNotification{ChatId: "c1", SenderId: "u2", ReceiverId: "u1"}
	next := r.Apply(state, seen)

	for i, m := range next.Messages.Content {
		if m.State != model.MessageStateSeen {
			t.Errorf("Message %d: expected SEEN, got '%s'", i, m.State)
		}
	}
	// 未读数由显式 mark-seen 负责，此路径不变
	if next.Chats[0].UnreadCount != 5 {
		t.Errorf("SEEN notification must not touch unread count, got %d", next.Chats[0].UnreadCount)
	}

	// 再次应用同一事件是空操作
	again := r.Apply(next, seen)
	if !reflect.DeepEqual(again, next) {
		t.Error("Applying the same SEEN event twice must be a no-op")
	}
}

func TestApply_SeenForClosedChat_IsNoop(t *testing.T) {
	r := newTestReconciler()

	state := SessionState{
		Chats:      []model.Chat{{Id: "c1", UnreadCount: 2}, {Id: "c2"}},
		OpenChatId: "c2",
	}

	next := r.Apply(state, &notify.SeenNotification{ChatId: "c1"})

	if !reflect.DeepEqual(next, state) {
		t.Error("SEEN for a closed chat must be a no-op")
	}
}

func TestApply_SeenNeverCreatesChatOrMessage(t *testing.T) {
	r := newTestReconciler()

	next := r.Apply(SessionState{}, &notify.SeenNotification{ChatId: "ghost"})

	if len(next.Chats) != 0 {
		t.Error("SEEN notification must not create a chat")
	}
	if len(next.Messages.Content) != 0 {
		t.Error("SEEN notification must not create a message")
	}
}

func TestApply_FoldDeterminism(t *testing.T) {
	// 逐条应用与折叠应用得到相同的最终状态
	r := newTestReconciler()

	events := []notify.Notification{
		&notify.MessageNotification{ChatId: "c1", SenderId: "u1", Content: "a"},
		&notify.MessageNotification{ChatId: "c2", SenderId: "u3", Content: "b"},
		&notify.ImageNotification{ChatId: "c1", SenderId: "u1", Media: []byte{1}},
		&notify.SeenNotification{ChatId: "c1"},
		&notify.MessageNotification{ChatId: "c1", SenderId: "u1", Content: "c"},
	}

	stepwise := SessionState{OpenChatId: "c0"}
	for _, ev := range events {
		stepwise = r.Apply(stepwise, ev)
	}

	fold := func(state SessionState, evs []notify.Notification) SessionState {
		for _, ev := range evs {
			state = r.Apply(state, ev)
		}
		return state
	}
	folded := fold(SessionState{OpenChatId: "c0"}, events)

	if !reflect.DeepEqual(stepwise, folded) {
		t.Errorf("Stepwise and folded application diverged:\nstepwise: %+v\nfolded:   %+v", stepwise, folded)
	}
}

func TestApply_UnreadNeverDecreases(t *testing.T) {
	r := newTestReconciler()

	state := SessionState{
		Chats:      []model.Chat{{Id: "c1", UnreadCount: 3}, {Id: "c2", UnreadCount: 1}},
		OpenChatId: "c1",
	}

	events := []notify.Notification{
		&notify.MessageNotification{ChatId: "c1", Content: "x"},
		&notify.ImageNotification{ChatId: "c2"},
		&notify.SeenNotification{ChatId: "c1"},
		&notify.SeenNotification{ChatId: "c2"},
	}

	prev := map[string]int64{}
	for _, c := range state.Chats {
		prev[c.Id] = c.UnreadCount
	}

	for _, ev := range events {
		state = r.Apply(state, ev)
		for _, c := range state.Chats {
			if c.UnreadCount < prev[c.Id] {
				t.Fatalf("Unread count for %s decreased from %d to %d without mark-seen",
					c.Id, prev[c.Id], c.UnreadCount)
			}
			prev[c.Id] = c.UnreadCount
		}
	}
}

func TestApplyMarkSeen_ResetsUnreadAndIsIdempotent(t *testing.T) {
	r := newTestReconciler()

	state := SessionState{
		Chats:      []model.Chat{{Id: "c1", UnreadCount: 4}},
		OpenChatId: "c1",
		Messages: model.Page{
			Content: []model.ChatMessage{
				{MessageId: "m1", State: model.MessageStateSent},
				{MessageId: "m2", State: model.MessageStateSeen},
			},
		},
	}

	once := r.applyMarkSeen(state, "c1")

	if once.Chats[0].UnreadCount != 0 {
		t.Errorf("Expected unread count 0, got %d", once.Chats[0].UnreadCount)
	}
	for i, m := range once.Messages.Content {
		if m.State != model.MessageStateSeen {
			t.Errorf("Message %d: expected SEEN, got '%s'", i, m.State)
		}
	}

	twice := r.applyMarkSeen(once, "c1")
	if !reflect.DeepEqual(twice, once) {
		t.Error("markSeen(markSeen(s)) must equal markSeen(s)")
	}
}

func TestApplySent_PrependsWithoutUnreadBump(t *testing.T) {
	r := newTestReconciler()

	state := SessionState{
		Chats:      []model.Chat{{Id: "c1", UnreadCount: 2, LastMessage: "old"}},
		OpenChatId: "c1",
	}

	msg := model.ChatMessage{
		MessageId: "m9",
		SenderId:  "u1",
		Content:   "outbound",
		Type:      model.MessageTypeText,
		State:     model.MessageStateSent,
	}
	next := r.applySent(state, "c1", msg)

	if len(next.Messages.Content) != 1 || next.Messages.Content[0].MessageId != "m9" {
		t.Fatalf("Expected sent message at index 0, got %+v", next.Messages.Content)
	}
	if next.Chats[0].UnreadCount != 2 {
		t.Errorf("Sending must not change unread count, got %d", next.Chats[0].UnreadCount)
	}
	if next.Chats[0].LastMessage != "outbound" {
		t.Errorf("Expected preview 'outbound', got '%s'", next.Chats[0].LastMessage)
	}
}
