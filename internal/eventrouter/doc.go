// Package eventrouter implements the Event Router component (C4): a
// single-consumer loop over the Upstream Session's event stream that
// classifies each vendorwire.Event, looks up its owning client(s) in the
// routing tables, and forwards to the Client Hub.
package eventrouter
