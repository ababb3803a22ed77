// Package supervisor wires the gateway's components together and drives
// their lifecycle: startup in dependency order, concurrent run loops, and
// a reverse-order, bounded-grace shutdown.
package supervisor
