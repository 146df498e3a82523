package sim

import (
	"github.com/google/uuid"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
)

// Outbox delivers host packets. Broadcast reaches every connected player in
// send order; SendTo reaches one player and is dropped if they are gone.
type Outbox interface {
	Broadcast(p proto.Packet)
	SendTo(player uuid.UUID, p proto.Packet)
}

// NopOutbox discards every packet.
type NopOutbox struct{}

func (NopOutbox) Broadcast(proto.Packet)         {}
func (NopOutbox) SendTo(uuid.UUID, proto.Packet) {}
