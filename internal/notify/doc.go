// Package notify delivers outbound typing indicators, messages, and
// representative events to the end user's messaging client.
//
// BMClient is the production implementation against the Business Messages
// REST API, authenticating with an RS256 service-account assertion that is
// exchanged for a cached bearer token. LoggingNotifier is a development
// fallback that records sends without delivering them.
//
// All sends are best effort: callers log failures and move on, since stored
// conversation state must never depend on delivery success.
package notify
