// Package componentregistry builds the registry of every component kind
// shipped with breadcrumbs.
package componentregistry

import (
	"github.com/breadcrumbs/breadcrumbs-go/pkg/bridge"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/component"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/demo"
)

// New returns a registry with the bridge and demo kinds.
func New() (*component.Registry, error) {
	reg := component.NewRegistry()
	for _, register := range []func(*component.Registry) error{
		bridge.Register,
		demo.Register,
	} {
		if err := register(reg); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
