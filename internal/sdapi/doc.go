// Package sdapi is a thin client for the supervised WebUI's REST API and
// the Deforum extension's batch endpoints.
//
// The client relays settings documents verbatim and returns the service's
// responses without interpreting generation parameters; gantry owns
// transport, not payload semantics. Every call carries a bounded timeout.
package sdapi
