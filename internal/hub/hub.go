// Package hub routes each change event to exactly the connections belonging
// to the event's tenant. One channel actor per auctioneer; tenants never
// observe each other's traffic.
package hub

import (
	"context"
	"errors"

	"github.com/auctionhq/auction-backend/internal/engine"
	"go.uber.org/zap"
)

var ErrShutDown = errors.New("hub is shut down")
var ErrNoTenant = errors.New("connection has no tenant")

type HubMsg interface{ isHubMsg() }

type Subscribe struct {
	OwnerID string
	ConnID  string
	Outbox  chan engine.Event
}

type Unsubscribe struct {
	OwnerID string
	ConnID  string
}

type Publish struct {
	OwnerID string
	Evt     engine.Event
}

type GetChannelView struct {
	OwnerID string
	Reply   chan ChannelView
}

type ShutdownHub struct{}

func (Subscribe) isHubMsg()      {}
func (Unsubscribe) isHubMsg()    {}
func (Publish) isHubMsg()        {}
func (GetChannelView) isHubMsg() {}
func (ShutdownHub) isHubMsg()    {}

type Hub struct {
	inbox    chan HubMsg
	channels map[string]*channel
	ctx      context.Context
	cancel   context.CancelFunc
	log      *zap.Logger
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		channels: make(map[string]*channel),
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Subscribe:
				// A connection without a resolved tenant gets no membership.
				if msg.OwnerID == "" {
					close(msg.Outbox)
					break
				}
				ch := h.channels[msg.OwnerID]
				if ch == nil {
					ch = newChannel(h.ctx, msg.OwnerID, h.log)
					h.channels[msg.OwnerID] = ch
				}
				ch.inbox <- join{ConnID: msg.ConnID, Outbox: msg.Outbox}

			case Unsubscribe:
				if ch := h.channels[msg.OwnerID]; ch != nil {
					ch.inbox <- leave{ConnID: msg.ConnID}
				}

			case Publish:
				if ch := h.channels[msg.OwnerID]; ch != nil {
					ch.inbox <- deliver{Evt: msg.Evt}
				}

			case GetChannelView:
				ch := h.channels[msg.OwnerID]
				if ch == nil {
					msg.Reply <- ChannelView{OwnerID: msg.OwnerID}
					break
				}
				ch.inbox <- getView{Reply: msg.Reply}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for owner, ch := range h.channels {
		ch.inbox <- stop{}
		delete(h.channels, owner)
	}
	h.cancel()
}

// Publish satisfies engine.Publisher. Events for tenants with no live
// connections are routed to nobody, which is fine: delivery is best-effort.
func (h *Hub) Publish(ownerID string, evt engine.Event) error {
	select {
	case h.inbox <- Publish{OwnerID: ownerID, Evt: evt}:
		return nil
	case <-h.ctx.Done():
		return ErrShutDown
	}
}

// Join registers a connection's outbox under its tenant channel.
func (h *Hub) Join(ownerID, connID string, outbox chan engine.Event) error {
	if ownerID == "" {
		return ErrNoTenant
	}
	select {
	case h.inbox <- Subscribe{OwnerID: ownerID, ConnID: connID, Outbox: outbox}:
		return nil
	case <-h.ctx.Done():
		return ErrShutDown
	}
}

func (h *Hub) Leave(ownerID, connID string) {
	select {
	case h.inbox <- Unsubscribe{OwnerID: ownerID, ConnID: connID}:
	case <-h.ctx.Done():
	}
}
