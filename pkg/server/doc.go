// Package server runs retain programs for remote hosts over WebSocket.
//
// Each connection gets its own program runtime. The runtime mounts and
// patches its tree through a RemoteBinding, which turns every binding call
// into a protocol.HostOp and ships one Ops frame per committed frame. The
// host answers with Event frames naming the node and listener that fired;
// the binding routes them to the installed callback, and from there the
// event router delivers the message to the runtime.
//
// # Usage
//
//	srv := server.New(server.FromProgram(todo.Program()), server.DefaultConfig())
//	http.ListenAndServe(":8080", srv.Handler())
//
// # Connection Lifecycle
//
//  1. The host opens /ws and sends ClientHello. Its Flags become the
//     program flags.
//  2. The server answers ServerHello carrying the runtime ID and starts the
//     runtime; the first Ops frame carries FlagInitial.
//  3. Events flow in, Ops frames flow out, pings keep the socket alive.
//  4. When either side stops, the runtime is torn down and a Close control
//     frame is sent.
//
// # Observability
//
// WithMiddleware mounts router middleware such as the metrics and tracing
// handlers from the middleware package. WithObserver receives per-session
// traffic: frames written, events delivered or dropped, rejected
// handshakes and connection errors.
package server
