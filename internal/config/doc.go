// Package config handles configuration loading for handoff-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	tailscale:
//	  auth_key: "${TS_AUTHKEY}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # Webhook and CRM API
//
// Database:
//
//	database:
//	  path: "/var/lib/handoff/gateway.db"
//
// Business identity:
//
//	business:
//	  name: "Acme Retail"
//	  handoff_message: "You are now speaking with the Echo Bot"
//
// Outbound messaging:
//
//	messaging:
//	  api_base: "https://businessmessages.googleapis.com"
//	  credentials_file: "/etc/handoff/credentials.json"
//
// Webhook processing:
//
//	webhook:
//	  dedupe_ttl: "5m"   # Redelivery suppression window
//
// Tailscale:
//
//	tailscale:
//	  enabled: false
//	  hostname: "handoff-gateway"
//	  auth_key: "${TS_AUTHKEY}"
//	  funnel: true   # Public HTTPS so the platform can deliver webhooks
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
