package discovery

import (
	"net"
	"time"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/log"
)

func logDatagram(l log.Logger, component string, role log.Role, dir log.Direction, typ log.DiscoveryType, remote net.Addr, updateID int64, index int) {
	if l == nil {
		return
	}
	e := log.Event{
		Timestamp: time.Now(),
		Direction: dir,
		Layer:     log.LayerDiscovery,
		Category:  log.CategoryControl,
		Role:      role,
		Component: component,
		Discovery: &log.DiscoveryEvent{Type: typ, UpdateID: updateID, Index: index},
	}
	if remote != nil {
		e.RemoteAddr = remote.String()
	}
	l.Log(e)
}
