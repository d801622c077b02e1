package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/christopherjohns/chatrelay/internal/chat"
	"github.com/christopherjohns/chatrelay/internal/message"
	"github.com/christopherjohns/chatrelay/internal/moderation"
	"github.com/christopherjohns/chatrelay/internal/user"
	"nhooyr.io/websocket"
)

type handlerHarness struct {
	ts    *httptest.Server
	hub   *Hub
	users *user.Registry
}

func newHandlerTestServer(t *testing.T, opts ...HandlerOption) *handlerHarness {
	t.Helper()
	mod, err := moderation.NewModerator([]string{"darn"}, testLog)
	if err != nil {
		t.Fatalf("moderator error: %v", err)
	}
	users := user.NewRegistry()
	hub := NewHub(testLog, NewConnManager(testLog))
	svc := chat.NewService(users, hub, testLog, chat.WithProfanityCheck(mod.IsProfane))
	ts := httptest.NewServer(NewHandler(hub, svc, testLog, opts...))
	t.Cleanup(ts.Close)
	return &handlerHarness{ts: ts, hub: hub, users: users}
}

// testClient speaks the frame protocol from the browser side.
type testClient struct {
	t      *testing.T
	conn   *websocket.Conn
	nextID int64
}

func (h *handlerHarness) dial(t *testing.T) *testClient {
	t.Helper()
	conn := dialWS(t, h.ts.URL)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return &testClient{t: t, conn: conn}
}

// send writes a request frame and returns its id.
func (c *testClient) send(typ string, payload any) int64 {
	c.t.Helper()
	c.nextID++
	raw, err := json.Marshal(payload)
	if err != nil {
		c.t.Fatalf("marshal error: %v", err)
	}
	c.write(Envelope{Type: typ, ID: c.nextID, Payload: raw})
	return c.nextID
}

func (c *testClient) write(v any) {
	c.t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		c.t.Fatalf("marshal error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		c.t.Fatalf("write error: %v", err)
	}
}

func (c *testClient) expect(typ string) json.RawMessage {
	c.t.Helper()
	env := readEnvelope(c.t, c.conn)
	if env.Type != typ {
		c.t.Fatalf("expected %q frame, got %q: %s", typ, env.Type, env.Payload)
	}
	return env.Payload
}

func (c *testClient) expectMessage(username, text string) message.Message {
	c.t.Helper()
	var msg message.Message
	if err := json.Unmarshal(c.expect(string(chat.EventMessage)), &msg); err != nil {
		c.t.Fatalf("unmarshal message error: %v", err)
	}
	if msg.Username != username || msg.Text != text {
		c.t.Fatalf("expected %s: %q, got %s: %q", username, text, msg.Username, msg.Text)
	}
	if msg.CreatedAt == 0 {
		c.t.Fatal("expected createdAt to be set")
	}
	return msg
}

func (c *testClient) expectRoster(room string, usernames ...string) {
	c.t.Helper()
	var data chat.RoomData
	if err := json.Unmarshal(c.expect(string(chat.EventRoomData)), &data); err != nil {
		c.t.Fatalf("unmarshal roomData error: %v", err)
	}
	if data.Room != room {
		c.t.Fatalf("expected room %q, got %q", room, data.Room)
	}
	if len(data.Users) != len(usernames) {
		c.t.Fatalf("expected users %v, got %+v", usernames, data.Users)
	}
	for i, name := range usernames {
		if data.Users[i].Username != name {
			c.t.Fatalf("expected users %v, got %+v", usernames, data.Users)
		}
	}
}

func (c *testClient) expectAck(id int64, wantErr string) {
	c.t.Helper()
	var ack AckPayload
	if err := json.Unmarshal(c.expect(TypeAck), &ack); err != nil {
		c.t.Fatalf("unmarshal ack error: %v", err)
	}
	if ack.ID != id {
		c.t.Fatalf("expected ack for %d, got %d", id, ack.ID)
	}
	if ack.Error != wantErr {
		c.t.Fatalf("expected ack error %q, got %q", wantErr, ack.Error)
	}
}

func (c *testClient) expectClosed(want websocket.StatusCode) {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, data, err := c.conn.Read(ctx)
	if err == nil {
		c.t.Fatalf("expected close, got frame %s", data)
	}
	if got := websocket.CloseStatus(err); got != want {
		c.t.Fatalf("expected close status %v, got %v (%v)", want, got, err)
	}
}

// join performs a successful join and drains the joiner's own frames.
func (c *testClient) join(username, room string, roster ...string) {
	c.t.Helper()
	id := c.send(TypeJoin, JoinPayload{Username: username, Room: room})
	c.expectMessage(message.AdminName, "Welcome!")
	c.expectRoster(user.Normalize(room), roster...)
	c.expectAck(id, "")
}

func TestHandlerChatScenario(t *testing.T) {
	h := newHandlerTestServer(t)

	alice := h.dial(t)
	alice.join("Alice", "Lobby", "alice")

	bob := h.dial(t)
	bob.join("bob", "lobby", "alice", "bob")

	alice.expectMessage(message.AdminName, "bob has joined!")
	alice.expectRoster("lobby", "alice", "bob")

	// A plain message reaches the whole room, sender included, before the ack.
	id := bob.send(TypeSendMessage, ChatPayload{Text: "hi"})
	bob.expectMessage("bob", "hi")
	bob.expectAck(id, "")
	alice.expectMessage("bob", "hi")

	// Profane text is rejected and never broadcast: the next frame either
	// side sees is the location below.
	id = bob.send(TypeSendMessage, ChatPayload{Text: "oh darn it"})
	bob.expectAck(id, chat.ErrProfanity.Error())

	lat, lng := 40.7, -74.0
	id = alice.send(TypeSendLocation, LocationPayload{Latitude: &lat, Longitude: &lng})
	for _, c := range []*testClient{alice, bob} {
		var loc message.LocationMessage
		if err := json.Unmarshal(c.expect(string(chat.EventLocationMessage)), &loc); err != nil {
			t.Fatalf("unmarshal location error: %v", err)
		}
		if loc.Username != "alice" || loc.URL != "https://google.com/maps?q=40.7,-74" {
			t.Fatalf("unexpected location message %+v", loc)
		}
	}
	alice.expectAck(id, "")

	bob.conn.Close(websocket.StatusNormalClosure, "")

	alice.expectMessage(message.AdminName, "bob has left.")
	alice.expectRoster("lobby", "alice")

	if got := h.users.InRoom("lobby"); len(got) != 1 || got[0].Username != "alice" {
		t.Fatalf("expected only alice to remain, got %+v", got)
	}
}

func TestHandlerRoomIsolation(t *testing.T) {
	h := newHandlerTestServer(t)

	alice := h.dial(t)
	alice.join("alice", "lobby", "alice")
	carol := h.dial(t)
	carol.join("carol", "kitchen", "carol")

	id := carol.send(TypeSendMessage, ChatPayload{Text: "anyone?"})
	carol.expectMessage("carol", "anyone?")
	carol.expectAck(id, "")

	expectSilence(t, alice.conn)
}

func TestHandlerDuplicateUsername(t *testing.T) {
	h := newHandlerTestServer(t)

	alice := h.dial(t)
	alice.join("alice", "lobby", "alice")

	impostor := h.dial(t)
	id := impostor.send(TypeJoin, JoinPayload{Username: " ALICE ", Room: "lobby"})
	impostor.expectAck(id, user.ErrDuplicateUsername.Error())
	impostor.expectClosed(websocket.StatusPolicyViolation)

	if h.users.Count() != 1 {
		t.Fatalf("expected 1 user, got %d", h.users.Count())
	}
	// The room never saw the rejected join.
	expectSilence(t, alice.conn)
}

func TestHandlerJoinValidation(t *testing.T) {
	h := newHandlerTestServer(t)

	c := h.dial(t)
	id := c.send(TypeJoin, JoinPayload{Username: "alice", Room: "   "})
	c.expectAck(id, user.ErrValidation.Error())
	c.expectClosed(websocket.StatusPolicyViolation)

	if h.users.Count() != 0 {
		t.Fatalf("expected no users, got %d", h.users.Count())
	}
}

func TestHandlerFirstFrameMustBeJoin(t *testing.T) {
	h := newHandlerTestServer(t)

	c := h.dial(t)
	id := c.send(TypeSendMessage, ChatPayload{Text: "too early"})
	c.expectAck(id, chat.ErrNotJoined.Error())
	c.expectClosed(websocket.StatusPolicyViolation)
}

func TestHandlerLostUserIsAckedBeforeClose(t *testing.T) {
	h := newHandlerTestServer(t)

	c := h.dial(t)
	c.join("alice", "lobby", "alice")

	// Drop the registry entry behind the session's back.
	members := h.users.InRoom("lobby")
	if len(members) != 1 {
		t.Fatalf("expected alice in lobby, got %+v", members)
	}
	if _, ok := h.users.Remove(members[0].ID); !ok {
		t.Fatal("expected registry entry to be removed")
	}

	id := c.send(TypeSendMessage, ChatPayload{Text: "anyone?"})
	c.expectAck(id, chat.ErrInternalConsistency.Error())
	c.expectClosed(websocket.StatusPolicyViolation)
}

func TestHandlerInvalidFirstFrame(t *testing.T) {
	h := newHandlerTestServer(t)

	c := h.dial(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("write error: %v", err)
	}
	c.expectClosed(websocket.StatusPolicyViolation)
}

func TestHandlerJoinTimeout(t *testing.T) {
	h := newHandlerTestServer(t, WithJoinTimeout(100*time.Millisecond))

	c := h.dial(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, _, err := c.conn.Read(ctx); err == nil {
		t.Fatal("expected connection to be closed after join timeout")
	}
	if ctx.Err() != nil {
		t.Fatal("connection was not closed before the test deadline")
	}
}

func TestHandlerRejectsRequestsAfterJoin(t *testing.T) {
	h := newHandlerTestServer(t)

	c := h.dial(t)
	c.join("alice", "lobby", "alice")

	id := c.send(TypeJoin, JoinPayload{Username: "alice2", Room: "kitchen"})
	c.expectAck(id, chat.ErrAlreadyJoined.Error())

	id = c.send("shout", ChatPayload{Text: "hey"})
	c.expectAck(id, `unknown event type: "shout"`)

	id = c.send(TypeSendLocation, map[string]float64{"latitude": 1})
	c.expectAck(id, errMissingCoords.Error())

	c.write(Envelope{Type: TypeSendMessage, ID: 99, Payload: json.RawMessage(`"text"`)})
	c.expectAck(99, errInvalidPayload.Error())

	// Malformed frames are dropped without an ack and the loop carries on.
	c.write(map[string]string{"payload": "no type"})
	id = c.send(TypeSendMessage, ChatPayload{Text: "still here"})
	c.expectMessage("alice", "still here")
	c.expectAck(id, "")

	if got := h.users.InRoom("lobby"); len(got) != 1 {
		t.Fatalf("expected alice to stay in lobby, got %+v", got)
	}
}

func TestHandlerRequestObserver(t *testing.T) {
	var mu sync.Mutex
	var codes []string
	h := newHandlerTestServer(t, WithRequestObserver(func(event string, err error) {
		mu.Lock()
		codes = append(codes, event+"/"+chat.ErrorCode(err))
		mu.Unlock()
	}))

	c := h.dial(t)
	c.join("alice", "lobby", "alice")
	id := c.send(TypeSendMessage, ChatPayload{Text: "darn"})
	c.expectAck(id, chat.ErrProfanity.Error())

	mu.Lock()
	defer mu.Unlock()
	got := strings.Join(codes, ",")
	if got != "join/ok,sendMessage/profanity" {
		t.Fatalf("unexpected observed requests %q", got)
	}
}

func TestHandlerConcurrentSameUsername(t *testing.T) {
	h := newHandlerTestServer(t)

	const racers = 6
	clients := make([]*testClient, racers)
	for i := range clients {
		clients[i] = h.dial(t)
	}

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *testClient) {
			defer wg.Done()
			raw, _ := json.Marshal(JoinPayload{Username: "alice", Room: "lobby"})
			data, _ := json.Marshal(Envelope{Type: TypeJoin, ID: 1, Payload: raw})
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			c.conn.Write(ctx, websocket.MessageText, data)
		}(c)
	}
	wg.Wait()

	deadline := time.Now().Add(3 * time.Second)
	for h.users.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	// Give the losers time to be rejected as well.
	time.Sleep(200 * time.Millisecond)

	if h.users.Count() != 1 {
		t.Fatalf("expected exactly one alice, got %d", h.users.Count())
	}
}
