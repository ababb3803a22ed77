// Package hub implements the Client Hub component (C5): the WebSocket
// server that accepts browser connections, parses inbound JSON commands,
// and owns each client's bounded outbound queue.
//
// Each client gets a reader goroutine and a writer goroutine. The reader
// parses commands and dispatches them into the subscription and order
// managers; the writer drains a bounded queue and drives the ping/pong
// liveness check, disconnecting slow consumers rather than blocking.
package hub
