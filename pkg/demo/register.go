package demo

import (
	"github.com/breadcrumbs/breadcrumbs-go/pkg/component"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/config"
)

// Component kinds.
const (
	KindProducer       = "Producer"
	KindConsumer       = "MessageConsumer"
	KindNetworkTestApp = "NetworkTestApp"
)

// Register adds the demo kinds to reg.
func Register(reg *component.Registry) error {
	factories := map[string]component.Factory{
		KindProducer: func(_ string, s config.Section) (component.Component, error) {
			cfg, err := ParseProducerConfig(s)
			if err != nil {
				return nil, err
			}
			return NewProducer(cfg), nil
		},
		KindConsumer: func(_ string, s config.Section) (component.Component, error) {
			id, err := s.String("msg_id", "")
			if err != nil {
				return nil, err
			}
			return NewConsumer(id), nil
		},
		KindNetworkTestApp: func(_ string, s config.Section) (component.Component, error) {
			cfg, err := ParseNetworkTestConfig(s)
			if err != nil {
				return nil, err
			}
			return NewNetworkTestApp(cfg), nil
		},
	}

	for _, kind := range []string{KindProducer, KindConsumer, KindNetworkTestApp} {
		if err := reg.Register(kind, factories[kind]); err != nil {
			return err
		}
	}
	return nil
}
