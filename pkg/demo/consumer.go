package demo

import (
	"context"
	"sync/atomic"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/attrs"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/component"
)

// Consumer logs the count of every message published under its id.
type Consumer struct {
	component.Base

	msgID    string
	received atomic.Int64
	last     atomic.Int64
}

// NewConsumer creates a consumer of msgID. An empty id subscribes to
// nothing.
func NewConsumer(msgID string) *Consumer {
	return &Consumer{msgID: msgID}
}

func (c *Consumer) Init(env component.Env) error {
	c.Bind(env)
	if c.msgID != "" {
		c.Subscribe(c.msgID, c.handle)
		c.Logger().Debug("subscribed", "msg_id", c.msgID)
	}
	return nil
}

func (c *Consumer) Start(context.Context) error { return nil }

func (c *Consumer) Stop() error { return nil }

// Received returns how many messages were handled.
func (c *Consumer) Received() int64 { return c.received.Load() }

// Last returns the last count seen.
func (c *Consumer) Last() int64 { return c.last.Load() }

func (c *Consumer) handle(a attrs.Attributes) error {
	n, err := a.Int(AttrCount)
	if err != nil {
		return err
	}
	c.received.Add(1)
	c.last.Store(n)
	c.Logger().Info("received message", "msg_id", c.msgID, "count", n)
	return nil
}
