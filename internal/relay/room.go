package relay

// Room is a grouping key scoping message broadcast to its members. Rooms are
// created implicitly when the first participant joins and deleted when the
// last member leaves; the interview flow expects two members, but the relay
// itself enforces no limit.
type Room struct {
	Code    string
	Members map[*Client]struct{}
}

func newRoom(code string) *Room {
	return &Room{
		Code:    code,
		Members: make(map[*Client]struct{}),
	}
}
