// Package conversation implements the conversation ownership core.
//
// # Overview
//
// Every conversation is owned by exactly one of three parties at a time:
// the bot, the queue, or a live human representative. The package splits
// that logic into a pure state machine (Decide) and a Service that applies
// its decisions against the stores and the notifier.
//
// # State Machine
//
// Decide maps (current state, trigger) to a next state plus side effects:
//
//	any state  + user message       -> unchanged; store; reply iff state is Bot
//	any state  + live agent request -> Queued; bookkeeping only
//	any state  + operator join      -> Live Agent; representative joined event
//	any state  + operator leave     -> Bot; representative left event + handoff message
//	any state  + agent message      -> Live Agent; store and send as human
//
// A new conversation starts in the Bot state; the thread is auto-created
// from the first inbound message's metadata. Triggers other than an inbound
// message fail with ErrUnknownConversation when no thread exists.
//
// # Effect Ordering
//
// The Service persists before it notifies. A crash after persistence but
// before notification never loses transcript data; the cost is a possible
// duplicate notification, which is the chosen trade-off.
//
// # Concurrency
//
// Handling is serialized per conversation with a keyed mutex. Different
// conversations proceed fully in parallel.
package conversation
