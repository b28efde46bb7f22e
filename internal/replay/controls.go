package replay

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/banshee-data/flow.report/internal/pipeline"
)

// ChannelControls turns a stream of signals into pipeline.Controls. Poll
// drains at most one pending signal; Wait blocks for the next one. Once the
// channel closes the controls go quiet: Poll reports nothing and Wait
// resumes. Wait reports SignalQuit when the context ends.
type ChannelControls struct {
	ctx    context.Context
	ch     <-chan pipeline.Signal
	closed bool
}

// NewChannelControls returns controls fed by ch.
func NewChannelControls(ctx context.Context, ch <-chan pipeline.Signal) *ChannelControls {
	return &ChannelControls{ctx: ctx, ch: ch}
}

// Poll implements pipeline.Controls.
func (c *ChannelControls) Poll() pipeline.Signal {
	if c.closed {
		return pipeline.SignalNone
	}
	select {
	case sig, ok := <-c.ch:
		if !ok {
			c.closed = true
			return pipeline.SignalNone
		}
		return sig
	default:
		return pipeline.SignalNone
	}
}

// Wait implements pipeline.Controls.
func (c *ChannelControls) Wait() pipeline.Signal {
	if c.closed {
		return pipeline.SignalResume
	}
	select {
	case sig, ok := <-c.ch:
		if !ok {
			c.closed = true
			return pipeline.SignalResume
		}
		return sig
	case <-c.ctx.Done():
		return pipeline.SignalQuit
	}
}

// ParseKey maps a typed command to a signal: "p" pauses or resumes, "q" or
// "quit" quits, an empty line resumes.
func ParseKey(line string) pipeline.Signal {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "p", "pause":
		return pipeline.SignalPause
	case "q", "quit", "exit":
		return pipeline.SignalQuit
	case "", "r", "resume":
		return pipeline.SignalResume
	}
	return pipeline.SignalNone
}

// ReadKeys forwards one signal per input line until r is exhausted or ctx
// ends, then closes the returned channel.
func ReadKeys(ctx context.Context, r io.Reader) <-chan pipeline.Signal {
	ch := make(chan pipeline.Signal)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			sig := ParseKey(sc.Text())
			if sig == pipeline.SignalNone {
				continue
			}
			select {
			case ch <- sig:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
