// Package vendorwire stands in for the vendor brokerage SDK: it defines the
// outbound request surface, the inbound event surface, and the
// length-prefixed binary frame the two travel in over a net.Conn.
//
// Frame layout: 4-byte big-endian length (covering the tag byte and the
// payload, not itself) + 1-byte type tag + JSON payload. vendorwire does no
// socket or connection-state management; internal/upstream owns that.
package vendorwire
