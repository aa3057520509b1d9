// Package gateway wires the handoff-gateway server together.
//
// The Gateway owns the component lifecycle: it opens the SQLite store,
// builds the messaging platform notifier (or a logging stand-in when no
// credentials are configured), and serves a single HTTP surface carrying
// the platform webhook callback, a health check, and the operator API.
//
// Listeners come in two flavors: a plain TCP listener on server.http_addr,
// or a Tailscale tsnet node (optionally with HTTPS certs or a public
// funnel, which the platform needs to reach the callback).
package gateway
