package discovery

import (
	"context"
	"fmt"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/version"
)

// AdvertiserConfig configures an MDNSAdvertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to one interface. Empty means all.
	Interface string

	// TTL overrides the record TTL when positive.
	TTL time.Duration
}

// MDNSAdvertiser registers a bridge server as a DNS-SD service.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
	info   ServerInfo
}

// NewMDNSAdvertiser creates an advertiser. Nothing is registered until
// Advertise.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{config: config}
}

// getInterfaces returns the interfaces to advertise on, nil for all.
func (a *MDNSAdvertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise registers info, replacing any previous registration.
func (a *MDNSAdvertiser) Advertise(info *ServerInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		info.InstanceName,
		ServiceType,
		Domain,
		int(info.TCPPort),
		TXTRecordsToStrings(EncodeServerTXT(info)),
		a.getInterfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("register %s: %w", ServiceType, err)
	}

	a.server = server
	a.info = *info
	return nil
}

// Update replaces the TXT records of the current registration.
func (a *MDNSAdvertiser) Update(info *ServerInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotAdvertising
	}
	a.server.SetText(TXTRecordsToStrings(EncodeServerTXT(info)))
	a.info = *info
	return nil
}

// Advertising reports whether a registration is active.
func (a *MDNSAdvertiser) Advertising() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

// Stop withdraws the registration. Safe to call when not advertising.
func (a *MDNSAdvertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// BrowserConfig configures an MDNSBrowser.
type BrowserConfig struct {
	// Interface restricts browsing to one interface. Empty means all.
	Interface string
}

// MDNSBrowser looks for bridge servers registered over DNS-SD.
type MDNSBrowser struct {
	config BrowserConfig

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

// NewMDNSBrowser creates a browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	return &MDNSBrowser{config: config}
}

// BrowseServers streams servers until ctx ends or Stop is called. Entries
// are aggregated by instance name: a server seen on several interfaces is
// emitted once, with the addresses known when it was first seen.
func (b *MDNSBrowser) BrowseServers(ctx context.Context) (<-chan *ServerService, error) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil, context.Canceled
	}
	ctx, cancel := context.WithCancel(ctx)
	if b.cancel != nil {
		b.cancel()
	}
	b.cancel = cancel
	b.mu.Unlock()

	out := make(chan *ServerService)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go collectServers(ctx, entries, removed, out)

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.browserOptions()...)
	}()

	return out, nil
}

// collectServers turns browse results into ServerService values on out and
// closes out when entries closes or ctx ends. Each instance is sent once; a
// copy is sent so later address merges stay private to this goroutine.
func collectServers(ctx context.Context, entries, removed <-chan *zeroconf.ServiceEntry, out chan<- *ServerService) {
	defer close(out)

	services := make(map[string]*ServerService)

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			svc := entryToServer(entry)
			if svc == nil {
				continue
			}

			if existing, found := services[svc.InstanceName]; found {
				existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
				continue
			}
			services[svc.InstanceName] = svc

			sent := *svc
			sent.Addresses = slices.Clone(svc.Addresses)
			select {
			case out <- &sent:
			case <-ctx.Done():
				return
			}

		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			if existing, found := services[entry.Instance]; found {
				existing.Addresses = removeAddresses(existing.Addresses, entry)
				if len(existing.Addresses) == 0 {
					delete(services, entry.Instance)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// Stop ends every browse started by b.
func (b *MDNSBrowser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		if iface, err := net.InterfaceByName(b.config.Interface); err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

func entryToServer(entry *zeroconf.ServiceEntry) *ServerService {
	svc := &ServerService{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    entryAddresses(entry),
	}
	if err := DecodeServerTXT(StringsToTXTRecords(entry.Text), svc); err != nil {
		return nil
	}
	if !version.CompatibleString(svc.Version) {
		return nil
	}
	return svc
}

func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

// mergeAddresses appends the addresses of add missing from existing.
func mergeAddresses(existing, add []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range add {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses drops the addresses of entry from addresses.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	drop := make(map[string]bool)
	for _, addr := range entryAddresses(entry) {
		drop[addr] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !drop[addr] {
			result = append(result, addr)
		}
	}
	return result
}
