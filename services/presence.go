package services

type Presence string

const (
	PresenceOffline Presence = "offline"
	PresenceOnline  Presence = "online"
	PresenceInGame  Presence = "inGame"
)

// PresenceBook counts open connections per player so a reconnect that lands
// before the old socket's disconnect keeps the player online.
type PresenceBook struct {
	conns  map[uint]int
	inGame map[uint]bool
}

func NewPresenceBook() *PresenceBook {
	return &PresenceBook{conns: make(map[uint]int), inGame: make(map[uint]bool)}
}

// Connect reports whether this is the player's first open connection.
func (p *PresenceBook) Connect(player uint) bool {
	p.conns[player]++
	return p.conns[player] == 1
}

// Disconnect reports whether the player just lost its last connection.
func (p *PresenceBook) Disconnect(player uint) bool {
	n, ok := p.conns[player]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(p.conns, player)
		return true
	}
	p.conns[player] = n - 1
	return false
}

func (p *PresenceBook) SetInGame(player uint, in bool) {
	if in {
		p.inGame[player] = true
		return
	}
	delete(p.inGame, player)
}

func (p *PresenceBook) Status(player uint) Presence {
	if p.conns[player] == 0 {
		return PresenceOffline
	}
	if p.inGame[player] {
		return PresenceInGame
	}
	return PresenceOnline
}

// Available is true for players that are connected and not playing.
func (p *PresenceBook) Available(player uint) bool {
	return p.Status(player) == PresenceOnline
}

func (p *PresenceBook) Online() int {
	return len(p.conns)
}
