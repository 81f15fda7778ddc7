// handlers/gateway.go
package handlers

import (
	"context"
	"log"
	"sync"
	"time"

	"pong-arena/protocol"
	"pong-arena/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const (
	writeWait       = 5 * time.Second
	subscriberQueue = 256
)

// Gateway bridges one websocket per client to the engine.
type Gateway struct {
	engine *services.Engine
	hub    *Hub
}

func NewGateway(engine *services.Engine, hub *Hub) *Gateway {
	return &Gateway{engine: engine, hub: hub}
}

// SetupGatewayRoutes mounts /ws on a router that already carries the user
// context middleware.
func SetupGatewayRoutes(r fiber.Router, g *Gateway) {
	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", websocket.New(g.serve))
}

func (g *Gateway) serve(conn *websocket.Conn) {
	player, _ := conn.Locals("user_id").(uint)
	if player == 0 {
		_ = conn.Close()
		return
	}
	codec := protocol.ParseCodec(conn.Query("codec"))

	// subscribe first so nothing emitted on connect is lost
	sub := g.hub.Subscribe(player, subscriberQueue)
	defer g.hub.Unsubscribe(sub)

	if err := g.engine.Connect(context.Background(), player); err != nil {
		log.Printf("[Gateway] ❌ connect player %d: %v", player, err)
		_ = conn.Close()
		return
	}
	// the request context is gone by now, the engine must still hear about it
	defer func() {
		if err := g.engine.Disconnect(context.Background(), player); err != nil {
			log.Printf("[Gateway] ❌ disconnect player %d: %v", player, err)
		}
	}()
	log.Printf("[Gateway] 🔌 player %d connected (codec=%s)", player, codec)

	var mu sync.Mutex
	send := func(event string, payload any) error {
		b, err := protocol.Encode(codec, event, payload)
		if err != nil {
			return err
		}
		mt := websocket.TextMessage
		if codec.Binary() {
			mt = websocket.BinaryMessage
		}
		mu.Lock()
		defer mu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(mt, b)
	}

	// the conn goes back to the pool as soon as serve returns, so the writer
	// must be gone by then
	done := make(chan struct{})
	writerDone := make(chan struct{})
	defer func() {
		close(done)
		<-writerDone
	}()
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-done:
				return
			default:
			}
			select {
			case ev := <-sub.C:
				if err := send(ev.Type, ev.Payload); err != nil {
					log.Printf("[Gateway] write to player %d failed: %v", player, err)
					_ = conn.Close()
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.DecodeEnvelope(msg)
		if err != nil {
			_ = send(protocol.EvError, errorMessage(services.Invalid("%v", err), ""))
			continue
		}
		if err := g.dispatch(context.Background(), player, env); err != nil {
			_ = send(protocol.EvError, errorMessage(err, env.Event))
		}
	}
}

func (g *Gateway) dispatch(ctx context.Context, player uint, env protocol.Envelope) error {
	switch env.Event {
	case protocol.EvJoinQueue:
		p, err := decode[protocol.JoinQueue](env)
		if err != nil {
			return err
		}
		return g.engine.Enqueue(ctx, player, p.Type)
	case protocol.EvLeaveQueue:
		p, err := decode[protocol.JoinQueue](env)
		if err != nil {
			return err
		}
		return g.engine.Dequeue(ctx, player, p.Type)
	case protocol.EvJoinChallengeGame:
		p, err := decode[protocol.JoinChallengeGame](env)
		if err != nil {
			return err
		}
		return g.engine.JoinChallengeGame(ctx, player, p.GameID)
	case protocol.EvUserLoaded:
		return g.engine.PlayerLoaded(ctx, player)
	case protocol.EvUserInput:
		p, err := decode[protocol.UserInput](env)
		if err != nil {
			return err
		}
		return g.engine.HandleInput(ctx, player, p)
	case protocol.EvChallengeUser:
		p, err := decode[protocol.ChallengeUser](env)
		if err != nil {
			return err
		}
		return g.engine.Challenge(ctx, player, p.UserID, p.GameType)
	case protocol.EvAcceptChallenge:
		p, err := decode[protocol.ChallengeReply](env)
		if err != nil {
			return err
		}
		_, err = g.engine.AcceptChallenge(ctx, player, p.UserID)
		return err
	case protocol.EvDeclineChallenge:
		p, err := decode[protocol.ChallengeReply](env)
		if err != nil {
			return err
		}
		return g.engine.DeclineChallenge(ctx, player, p.UserID)
	case protocol.EvCancelChallenge:
		return g.engine.CancelChallenge(ctx, player)
	}
	return services.Invalid("unknown event %q", env.Event)
}

func decode[T any](env protocol.Envelope) (T, error) {
	v, err := protocol.DecodePayload[T](env)
	if err != nil {
		return v, services.Invalid("bad %s payload: %v", env.Event, err)
	}
	return v, nil
}
