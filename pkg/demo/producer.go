package demo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/attrs"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/component"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/config"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/timer"
)

// AttrCount is the counter carried by Producer messages.
const AttrCount = "count"

// Time units accepted by ProducerConfig.
const (
	UnitMilliseconds = "milliseconds"
	UnitSeconds      = "seconds"
)

// ProducerConfig configures a Producer.
type ProducerConfig struct {
	Period time.Duration

	// MsgID is the bus id published on every tick. Empty disables
	// publishing.
	MsgID string
}

// ParseProducerConfig reads period, unit and msg_id.
func ParseProducerConfig(s config.Section) (ProducerConfig, error) {
	var cfg ProducerConfig

	period, err := s.PositiveInt("period", 1000)
	if err != nil {
		return cfg, err
	}
	unit, err := s.String("unit", UnitMilliseconds)
	if err != nil {
		return cfg, err
	}
	switch unit {
	case UnitMilliseconds:
		cfg.Period = time.Duration(period) * time.Millisecond
	case UnitSeconds:
		cfg.Period = time.Duration(period) * time.Second
	default:
		return cfg, fmt.Errorf("%w: %s.unit: unknown unit %q", config.ErrConfig, s.Path(), unit)
	}

	if cfg.MsgID, err = s.String("msg_id", ""); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Producer publishes {count} under MsgID every Period. The count starts at
// one and survives a restart.
type Producer struct {
	component.Base

	cfg   ProducerConfig
	count atomic.Int64

	mu    sync.Mutex
	timer *timer.Handle
}

// NewProducer creates a producer.
func NewProducer(cfg ProducerConfig) *Producer {
	return &Producer{cfg: cfg}
}

func (p *Producer) Init(env component.Env) error {
	p.Bind(env)
	return nil
}

func (p *Producer) Start(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		return nil
	}
	h, err := p.Periodic(p.cfg.Period, p.tick)
	if err != nil {
		return err
	}
	p.timer = h
	p.Logger().Debug("producer started", "period", p.cfg.Period, "msg_id", p.cfg.MsgID)
	return nil
}

func (p *Producer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CancelTimer(p.timer)
	p.timer = nil
	return nil
}

// Count returns the last published count.
func (p *Producer) Count() int64 { return p.count.Load() }

func (p *Producer) tick() {
	if p.cfg.MsgID == "" {
		return
	}
	n := p.count.Add(1)
	p.Logger().Debug("publishing", "msg_id", p.cfg.MsgID, "count", n)
	p.Publish(p.cfg.MsgID, attrs.Of(AttrCount, n))
}
