// Package webhook decodes inbound messaging platform deliveries and routes
// them to the conversation service.
//
// Decode classifies each payload exactly once into a tagged Event: a user
// message (plain text or suggestion response), a live-agent request, or
// unrecognized. The Dispatcher deduplicates by request id, since the
// platform delivers at least once, and acknowledges every delivery it
// receives: a retry storm against a payload we cannot handle helps nobody.
package webhook
