// Package discovery finds bridge servers on the local network.
//
// # Ping/pong
//
// A server runs a Responder bound to a UDP multicast group. It answers every
// datagram that begins with "ping" by sending "pong" back to the sender. A
// client runs a Prober: it sends one "ping" from an ephemeral socket and
// collects the distinct source addresses of the "pong" replies until it has
// enough of them or its context ends.
//
// When the configured group is not a multicast address, both ends use plain
// unicast UDP. This is how the tests run on hosts without a multicast route.
//
// # DNS-SD
//
// A server may also register itself as _breadcrumbs._tcp on local. so that
// generic mDNS browsers can see it. The MDNSAdvertiser and MDNSBrowser wrap
// github.com/enbility/zeroconf/v3 for that. The ping/pong exchange does not
// depend on it.
package discovery
