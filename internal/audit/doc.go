// Package audit implements async event dispatching for login, logout and
// request-filter decisions.
//
// # Components
//
//   - [Sink] for event consumers (channel, JSON writer, zap logger, no-op).
//   - [Dispatcher], a buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event], the structured record: timestamp, type, login, application, request, IP, metadata.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. It does not decide which
// events to emit; the Engine and the flow functions do.
//
// Events never carry passwords or tokens. Sinks must not add them.
package audit
