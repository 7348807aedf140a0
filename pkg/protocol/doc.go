// Package protocol implements the binary wire protocol between a retain
// server and a remote host.
//
// The server owns the model, the view and the diff. What crosses the wire
// is the sequence of host operations the patch applier performs on its
// binding (create, set attribute, insert child and so on), batched per
// committed frame, and in the other direction the events the host fires
// on its listeners.
//
// # Wire Format
//
// Every message is one frame with a 6-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHandshake (0x00): ClientHello / ServerHello
//   - FrameEvent (0x01): host to server events
//   - FrameOps (0x02): server to host operation batches
//   - FrameControl (0x03): ping, pong and close
//   - FrameError (0x05): error report
//
// # Encoding
//
//   - Varint: compact encoding for small integers (protobuf-style)
//   - ZigZag: signed integers encoded as unsigned varints
//   - Length-prefixed: strings and byte arrays prefixed with varint length
//   - JSON: property values and event payloads
package protocol
