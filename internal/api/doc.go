// Package api implements the HTTP REST API and WebSocket relay for the
// potentiostat service.
//
// This package provides:
//   - REST endpoints for users, clients, experiments and measurements
//   - Bearer token authentication resolving a user or client principal
//   - WebSocket relay of experiment events to connected clients
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// Handlers decode the request, take the principal from the context and
// call a domain service. Domain errors (apperr.Error) are written with
// their status and code; anything else is logged and returned as a
// generic SystemError.
//
// Experiment events travel over MQTT. The server subscribes to every
// client channel and forwards each event to the WebSocket connections of
// that client, so a device can listen over either transport.
//
// # Security
//
// Bearer tokens are verified on every protected request. WebSocket
// connections use single-use tickets so the token never appears in a URL;
// a ticket is bound to the client that requested it, and the connection
// only ever receives that client's channel.
//
// # Graceful Degradation
//
// The server runs without MQTT: REST endpoints and WebSocket connections
// work, but no events are relayed and experiment creation fails with 502.
package api
