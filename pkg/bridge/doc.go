// Package bridge carries bus messages between processes.
//
// A Server component advertises itself with the discovery Responder,
// accepts TCP connections, republishes every valid inbound frame on its
// local bus under the frame's id, and fans out the bus messages it
// subscribes to as frames on every live connection.
//
// A Client component finds servers with the discovery Prober, publishes
// UPDATE_SERVER_LIST once per new server, connects on CONNECT_TO_SERVER,
// forwards its outbound bus id as frames, and republishes inbound frames as
// NETWORK_DATA.
//
// The two sides treat a corrupt frame differently. The server logs and
// skips it and keeps the connection. The client drops the connection.
package bridge
