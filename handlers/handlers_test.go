package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pong-arena/middleware"
	"pong-arena/protocol"
	"pong-arena/services"

	"github.com/gofiber/fiber/v2"
	gws "github.com/gorilla/websocket"
)

const testToken = "secret"

type testServer struct {
	app    *fiber.App
	engine *services.Engine
	hub    *Hub
	addr   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := services.DefaultEngineConfig()
	cfg.Countdown = 50 * time.Millisecond
	engine := services.NewEngine(cfg, nil, nil, nil)
	hub := NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx)
	go hub.Run(ctx, engine.Events())

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(middleware.GatewayAuthMiddleware(testToken))
	SetupStatusRoutes(app, engine, hub)
	user := app.Group("/", middleware.UserContextMiddleware())
	SetupGatewayRoutes(user, NewGateway(engine, hub))
	SetupLobbyRoutes(user, engine, hub)
	SetupGameRoutes(user, engine)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go app.Listener(ln)

	t.Cleanup(func() {
		_ = app.Shutdown()
		cancel()
	})
	return &testServer{app: app, engine: engine, hub: hub, addr: ln.Addr().String()}
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (s *testServer) dial(t *testing.T, player string) *gws.Conn {
	t.Helper()
	h := http.Header{}
	h.Set("Authorization", "Bearer "+testToken)
	h.Set("X-User-ID", player)
	conn, _, err := gws.DefaultDialer.Dial("ws://"+s.addr+"/ws", h)
	if err != nil {
		t.Fatalf("dial as %s: %v", player, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *gws.Conn, event string, data any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"event": event, "data": data}); err != nil {
		t.Fatalf("send %s: %v", event, err)
	}
}

// await reads frames until one named event arrives.
func await(t *testing.T, conn *gws.Conn, event string) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		if f.Event == event {
			return f
		}
	}
}

func TestQueueToRunningOverWebsocket(t *testing.T) {
	srv := newTestServer(t)
	a := srv.dial(t, "1")
	b := srv.dial(t, "2")

	send(t, a, protocol.EvJoinQueue, protocol.JoinQueue{Type: "classicPong"})
	await(t, a, protocol.EvQueueUpdate)
	send(t, b, protocol.EvJoinQueue, protocol.JoinQueue{Type: "classicPong"})

	var initA, initB protocol.InitGame
	if err := json.Unmarshal(await(t, a, protocol.EvInitGame).Data, &initA); err != nil {
		t.Fatalf("decode initGame: %v", err)
	}
	if err := json.Unmarshal(await(t, b, protocol.EvInitGame).Data, &initB); err != nil {
		t.Fatalf("decode initGame: %v", err)
	}
	if initA.GameID == "" || initA.GameID != initB.GameID {
		t.Fatalf("players got different sessions: %q vs %q", initA.GameID, initB.GameID)
	}
	if initA.Players != [2]uint{1, 2} {
		t.Fatalf("players = %v", initA.Players)
	}

	send(t, a, protocol.EvUserLoaded, nil)
	send(t, b, protocol.EvUserLoaded, nil)
	await(t, a, protocol.EvGameReady)
	await(t, b, protocol.EvGameReady)
	await(t, a, protocol.EvGameUpdate)

	send(t, a, protocol.EvUserInput, protocol.UserInput{IsMovingUp: true})
	_ = a.Close()

	var end protocol.EndGame
	if err := json.Unmarshal(await(t, b, protocol.EvEndGame).Data, &end); err != nil {
		t.Fatalf("decode endGame: %v", err)
	}
	if !end.Forfeit || end.WinnerID == nil || *end.WinnerID != 2 {
		t.Fatalf("endGame = %+v", end)
	}
}

func TestErrorsGoToTheActingClientOnly(t *testing.T) {
	srv := newTestServer(t)
	a := srv.dial(t, "1")
	b := srv.dial(t, "2")

	send(t, a, "fly", nil)
	var msg protocol.ErrorMessage
	if err := json.Unmarshal(await(t, a, protocol.EvError).Data, &msg); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if msg.Kind != string(services.KindInvalid) || msg.Event != "fly" {
		t.Fatalf("error = %+v", msg)
	}

	send(t, a, protocol.EvJoinQueue, protocol.JoinQueue{Type: "tennis"})
	if err := json.Unmarshal(await(t, a, protocol.EvError).Data, &msg); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if msg.Kind != string(services.KindNotFound) {
		t.Fatalf("error = %+v", msg)
	}

	_ = b.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var f frame
	if err := b.ReadJSON(&f); err == nil {
		t.Fatalf("bystander received %s", f.Event)
	}
}

func TestMsgPackCodecSendsBinaryFrames(t *testing.T) {
	srv := newTestServer(t)
	h := http.Header{}
	h.Set("Authorization", testToken)
	h.Set("X-User-ID", "5")
	conn, _, err := gws.DefaultDialer.Dial("ws://"+srv.addr+"/ws?codec=msgpack", h)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send(t, conn, protocol.EvJoinQueue, protocol.JoinQueue{Type: "spatialPong"})
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	mt, _, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if mt != gws.BinaryMessage {
		t.Fatalf("message type = %d, want binary", mt)
	}
}

func TestHTTPRoutes(t *testing.T) {
	srv := newTestServer(t)

	do := func(method, path, body, user string, auth bool) *http.Response {
		t.Helper()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if auth {
			req.Header.Set("Authorization", "Bearer "+testToken)
		}
		if user != "" {
			req.Header.Set("X-User-ID", user)
		}
		resp, err := srv.app.Test(req, 2000)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		return resp
	}

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		user   string
		auth   bool
		status int
	}{
		{"health needs no token", "GET", "/health", "", "", false, 200},
		{"stats needs the token", "GET", "/stats", "", "", false, 401},
		{"stats", "GET", "/stats", "", "", true, 200},
		{"queue needs a player", "POST", "/queue", `{"type":"classicPong"}`, "", true, 401},
		{"unknown queue type", "POST", "/queue", `{"type":"tennis"}`, "3", true, 404},
		{"join queue", "POST", "/queue", `{"type":"classicPong"}`, "3", true, 202},
		{"leave queue", "DELETE", "/queue?type=classicPong", "", "3", true, 200},
		{"queue status", "GET", "/queue/status", "", "3", true, 200},
		{"self challenge", "POST", "/challenges", `{"userId":3,"gameType":"classicPong"}`, "3", true, 403},
		{"challenge offline player", "POST", "/challenges", `{"userId":4,"gameType":"classicPong"}`, "3", true, 409},
		{"accept nothing", "POST", "/challenges/4/accept", "", "3", true, 404},
		{"bad challenger id", "POST", "/challenges/x/decline", "", "3", true, 400},
		{"cancel nothing", "DELETE", "/challenges", "", "3", true, 404},
		{"unknown session", "GET", "/sessions/nope", "", "3", true, 404},
		{"end needs the admin role", "POST", "/sessions/nope/end", "", "3", true, 403},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(tc.method, tc.path, tc.body, tc.user, tc.auth)
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
		})
	}
}

func TestHubDeliversToEveryConnectionOfAPlayer(t *testing.T) {
	hub := NewHub()
	a1 := hub.Subscribe(1, 1)
	a2 := hub.Subscribe(1, 1)
	b := hub.Subscribe(2, 1)

	hub.Deliver(services.Event{Type: "x", To: []uint{1}})
	if len(a1.C) != 1 || len(a2.C) != 1 || len(b.C) != 0 {
		t.Fatalf("queued a1=%d a2=%d b=%d", len(a1.C), len(a2.C), len(b.C))
	}

	// a1 is full now and must not block the rest
	hub.Deliver(services.Event{Type: "y", To: []uint{1, 2}})
	if hub.Dropped() != 2 || len(b.C) != 1 {
		t.Fatalf("dropped=%d b=%d", hub.Dropped(), len(b.C))
	}

	hub.Unsubscribe(a1)
	hub.Unsubscribe(a2)
	<-b.C
	hub.Deliver(services.Event{Type: "z", To: []uint{1, 2}})
	if len(b.C) != 1 {
		t.Fatalf("b missed an event after others left")
	}
}

func TestForceEndNeedsAdminAndAParticipantWinner(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	watch := srv.hub.Subscribe(1, 64)
	defer srv.hub.Unsubscribe(watch)

	for _, p := range []uint{1, 2} {
		if err := srv.engine.Enqueue(ctx, p, "classicPong"); err != nil {
			t.Fatalf("enqueue %d: %v", p, err)
		}
	}
	var id string
	deadline := time.After(3 * time.Second)
	for id == "" {
		select {
		case ev := <-watch.C:
			if init, ok := ev.Payload.(protocol.InitGame); ok {
				id = init.GameID
			}
		case <-deadline:
			t.Fatalf("no initGame for player 1")
		}
	}

	end := func(user, roles, body string) int {
		t.Helper()
		req := httptest.NewRequest("POST", "/sessions/"+id+"/end", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+testToken)
		req.Header.Set("X-User-ID", user)
		if roles != "" {
			req.Header.Set("X-User-Roles", roles)
		}
		resp, err := srv.app.Test(req, 2000)
		if err != nil {
			t.Fatalf("end session: %v", err)
		}
		return resp.StatusCode
	}

	if got := end("3", "", `{"winnerId":3}`); got != 403 {
		t.Fatalf("outsider: status = %d, want 403", got)
	}
	if got := end("9", "admin", `{"winnerId":3}`); got != 403 {
		t.Fatalf("non-participant winner: status = %d, want 403", got)
	}
	if _, err := srv.engine.Session(ctx, id); err != nil {
		t.Fatalf("session should still be live: %v", err)
	}
	if got := end("9", "admin", `{"winnerId":2}`); got != 204 {
		t.Fatalf("admin: status = %d, want 204", got)
	}

	deadline = time.After(3 * time.Second)
	for {
		select {
		case ev := <-watch.C:
			if summary, ok := ev.Payload.(protocol.EndGame); ok {
				if summary.WinnerID == nil || *summary.WinnerID != 2 {
					t.Fatalf("winner = %v, want 2", summary.WinnerID)
				}
				return
			}
		case <-deadline:
			t.Fatalf("no endGame for player 1")
		}
	}
}

func TestClosingSocketsMidGameKeepsServing(t *testing.T) {
	srv := newTestServer(t)

	for round := 0; round < 10; round++ {
		a := srv.dial(t, "1")
		b := srv.dial(t, "2")
		send(t, a, protocol.EvJoinQueue, protocol.JoinQueue{Type: "classicPong"})
		await(t, a, protocol.EvQueueUpdate)
		send(t, b, protocol.EvJoinQueue, protocol.JoinQueue{Type: "classicPong"})
		await(t, a, protocol.EvInitGame)
		await(t, b, protocol.EvInitGame)
		send(t, a, protocol.EvUserLoaded, nil)
		send(t, b, protocol.EvUserLoaded, nil)
		await(t, a, protocol.EvGameUpdate)
		await(t, b, protocol.EvGameUpdate)

		// both leave while frames are still flowing
		_ = a.Close()
		_ = b.Close()

		deadline := time.Now().Add(3 * time.Second)
		for {
			st, err := srv.engine.Stats(context.Background())
			if err != nil {
				t.Fatalf("stats: %v", err)
			}
			if st.Sessions == 0 && st.Online == 0 {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("round %d: sessions=%d online=%d after both sockets closed", round, st.Sessions, st.Online)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}
