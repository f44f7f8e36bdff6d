package hub

import (
	"context"

	"github.com/auctionhq/auction-backend/internal/engine"
	"go.uber.org/zap"
)

type channelMsg interface{ isChannelMsg() }

type join struct {
	ConnID string
	Outbox chan engine.Event
}

type leave struct{ ConnID string }

type deliver struct{ Evt engine.Event }

type getView struct{ Reply chan ChannelView }

type stop struct{}

func (join) isChannelMsg()    {}
func (leave) isChannelMsg()   {}
func (deliver) isChannelMsg() {}
func (getView) isChannelMsg() {}
func (stop) isChannelMsg()    {}

// ChannelView reflects a channel's internals without data races. Test-only.
type ChannelView struct {
	OwnerID        string
	NumSubscribers int
}

// channel fans events out to every live connection of one tenant. One
// goroutine owns all of its state; everything reaches it through the inbox.
type channel struct {
	ownerID string
	inbox   chan channelMsg
	subs    map[string]chan engine.Event
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger
}

func newChannel(parent context.Context, ownerID string, log *zap.Logger) *channel {
	ctx, cancel := context.WithCancel(parent)
	c := &channel{
		ownerID: ownerID,
		inbox:   make(chan channelMsg, 64),
		subs:    make(map[string]chan engine.Event),
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
	}
	go c.loop()
	return c
}

func (c *channel) loop() {
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case join:
				c.subs[msg.ConnID] = msg.Outbox

			case leave:
				if out, ok := c.subs[msg.ConnID]; ok {
					close(out)
					delete(c.subs, msg.ConnID)
				}

			case deliver:
				c.broadcast(msg.Evt)

			case getView:
				msg.Reply <- ChannelView{OwnerID: c.ownerID, NumSubscribers: len(c.subs)}

			case stop:
				c.shutdown()
				return
			}
		}
	}
}

// broadcast is at-most-once and best-effort: a subscriber whose outbox is
// full gets dropped and is expected to reconcile with a fresh read on
// reconnect.
func (c *channel) broadcast(evt engine.Event) {
	for id, out := range c.subs {
		select {
		case out <- evt:
		default:
			close(out)
			delete(c.subs, id)
			c.log.Warn("dropped slow subscriber",
				zap.String("owner_id", c.ownerID),
				zap.String("conn_id", id))
		}
	}
}

func (c *channel) shutdown() {
	for id, out := range c.subs {
		close(out)
		delete(c.subs, id)
	}
	c.cancel()
}
