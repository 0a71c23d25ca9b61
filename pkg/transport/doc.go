// Package transport defines the link interfaces that carry beamlink frames
// between a host and a device, and implementations for in-process pipes
// (mem), TCP, QUIC and serial UART links.
//
// Key concepts:
// - Transport: dials/listens for Sessions of a specific Kind
// - Session: a connection to a peer carrying one command stream
// - Stream: SendBytes/RecvBytes of whole protocol frames
// - Manager: tracks live sessions so they can be listed and closed together
package transport
