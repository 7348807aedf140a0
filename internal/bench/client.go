package bench

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/retain/pkg/protocol"
)

// draftID is the id attribute of the todo program's text input.
const draftID = "draft"

var errTokenMissing = errors.New("bench: token not echoed")

type counters struct {
	eventsSent     atomic.Uint64
	eventsComplete atomic.Uint64
	eventBytes     atomic.Uint64
	opsBytes       atomic.Uint64
	opsFrames      atomic.Uint64
	opsTotal       atomic.Uint64
}

type errorCounts struct {
	handshakeFailures   atomic.Uint64
	eventWriteFailures  atomic.Uint64
	frameDecodeFailures atomic.Uint64
	opsDecodeFailures   atomic.Uint64
	serverErrorFrames   atomic.Uint64
	tokenMissing        atomic.Uint64
	totalErrors         atomic.Uint64
}

type opCounts struct {
	counts [256]atomic.Uint64
}

func (o *opCounts) add(c protocol.OpCode) {
	o.counts[uint8(c)].Add(1)
}

func (o *opCounts) snapshot() map[string]uint64 {
	out := make(map[string]uint64)
	for i := range o.counts {
		if n := o.counts[i].Load(); n > 0 {
			out[protocol.OpCode(i).String()] = n
		}
	}
	return out
}

// stats is shared by every client of one run.
type stats struct {
	counters
	errs    errorCounts
	ops     opCounts
	samples chan<- time.Duration
}

type client struct {
	id    int
	cfg   Config
	url   string
	stats *stats

	conn  *websocket.Conn
	draft uint32
}

// run holds one session open until ctx is done or an event goes unanswered.
func (c *client) run(ctx context.Context) error {
	if err := c.connect(ctx); err != nil {
		c.stats.errs.handshakeFailures.Add(1)
		return err
	}
	defer c.conn.Close()
	// Unblocks a pending read when the run ends.
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	period := time.Duration(float64(time.Second) / c.cfg.RPS)
	timeout := c.cfg.eventTimeout()
	var seq uint64

	for ctx.Err() == nil {
		seq++
		token := makeToken(c.id, seq, c.cfg.PayloadBytes)
		start := time.Now()

		if err := c.sendInput(token); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.stats.errs.eventWriteFailures.Add(1)
			return fmt.Errorf("event write: %w", err)
		}

		c.conn.SetReadDeadline(time.Now().Add(timeout))
		err := c.awaitToken(token)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if isTimeout(err) {
				c.stats.errs.tokenMissing.Add(1)
				return errTokenMissing
			}
			return err
		}

		rtt := time.Since(start)
		c.stats.eventsComplete.Add(1)
		c.stats.samples <- rtt

		if sleep := period - rtt; sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}
	return nil
}

// connect completes the handshake and reads the initial batch to find the
// draft input.
func (c *client) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	c.conn = conn

	items := make([]string, c.cfg.ListSize)
	for i := range items {
		items[i] = "item " + strconv.Itoa(i+1)
	}
	flags, err := json.Marshal(map[string]any{"items": items})
	if err != nil {
		conn.Close()
		return err
	}
	hello := protocol.NewFrame(protocol.FrameHandshake, protocol.EncodeClientHello(&protocol.ClientHello{
		Version: protocol.CurrentVersion,
		Flags:   flags,
	}))
	if err := conn.WriteMessage(websocket.BinaryMessage, hello.Encode()); err != nil {
		conn.Close()
		return fmt.Errorf("handshake write: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.cfg.eventTimeout()))
	frame, err := c.readFrame()
	if err != nil {
		conn.Close()
		return fmt.Errorf("handshake read: %w", err)
	}
	if frame.Type != protocol.FrameHandshake {
		conn.Close()
		return fmt.Errorf("handshake: expected %s frame, got %s", protocol.FrameHandshake, frame.Type)
	}
	sh, err := protocol.DecodeServerHello(frame.Payload)
	if err != nil {
		conn.Close()
		return fmt.Errorf("server hello: %w", err)
	}
	if sh.Status != protocol.HandshakeOK {
		conn.Close()
		return fmt.Errorf("handshake rejected: %s", sh.Status)
	}

	for c.draft == 0 {
		frame, err := c.readFrame()
		if err != nil {
			conn.Close()
			return fmt.Errorf("initial ops: %w", err)
		}
		if frame.Type != protocol.FrameOps {
			continue
		}
		batch, err := protocol.DecodeOps(frame.Payload)
		if err != nil {
			conn.Close()
			return fmt.Errorf("initial ops: %w", err)
		}
		for _, op := range batch.Ops {
			if op.Code == protocol.OpSetAttribute && op.Name == "id" && op.Value == draftID {
				c.draft = op.Target
			}
		}
		if c.draft == 0 {
			conn.Close()
			return fmt.Errorf("initial ops: no #%s input", draftID)
		}
	}
	return nil
}

func (c *client) readFrame() (*protocol.Frame, error) {
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	frame, err := protocol.DecodeFrame(msg)
	if err != nil {
		c.stats.errs.frameDecodeFailures.Add(1)
		return nil, err
	}
	if frame.Type == protocol.FrameOps {
		c.stats.opsFrames.Add(1)
		c.stats.opsBytes.Add(uint64(len(msg)))
	}
	return frame, nil
}

func (c *client) sendInput(token string) error {
	payload, err := json.Marshal(map[string]string{"value": token})
	if err != nil {
		return err
	}
	data := protocol.NewFrame(protocol.FrameEvent, protocol.EncodeEvent(&protocol.Event{
		Target:  c.draft,
		Name:    "input",
		Payload: payload,
	})).Encode()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return err
	}
	c.stats.eventsSent.Add(1)
	c.stats.eventBytes.Add(uint64(len(data)))
	return nil
}

// awaitToken reads until the draft input's value property is set to token.
func (c *client) awaitToken(token string) error {
	for {
		frame, err := c.readFrame()
		if err != nil {
			return err
		}
		switch frame.Type {
		case protocol.FrameOps:
			batch, err := protocol.DecodeOps(frame.Payload)
			if err != nil {
				c.stats.errs.opsDecodeFailures.Add(1)
				return err
			}
			found := false
			for _, op := range batch.Ops {
				c.stats.ops.add(op.Code)
				c.stats.opsTotal.Add(1)
				if op.Code == protocol.OpSetProperty && op.Target == c.draft && op.Name == "value" {
					var v string
					if json.Unmarshal(op.Data, &v) == nil && v == token {
						found = true
					}
				}
			}
			if found {
				return nil
			}
		case protocol.FrameError:
			c.stats.errs.serverErrorFrames.Add(1)
			em, err := protocol.DecodeErrorMessage(frame.Payload)
			if err != nil {
				return fmt.Errorf("server error frame: %w", err)
			}
			return fmt.Errorf("server error frame: %w", em)
		}
	}
}

// makeToken returns a payload unique to the client and sequence number.
func makeToken(clientID int, seq uint64, payloadBytes int) string {
	if payloadBytes <= 0 {
		return ""
	}
	seed := (uint64(clientID) << 32) ^ seq
	base := strconv.FormatUint(seed, 36)
	if len(base) >= payloadBytes {
		return base[len(base)-payloadBytes:]
	}
	return base + strings.Repeat("x", payloadBytes-len(base))
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
