package signal

import (
	"bufio"
	"context"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Listener translates operator input lines into coordinator events. It only
// observes and writes to the coordinator; it never touches the browser or the
// ledger, so the automation loop stays the sole owner of session state.
//
// Commands, one per line:
//
//	p [reason]   pause (optionally with a reason)
//	r            resume
//	c            cancel
type Listener struct {
	coord *Coordinator
	in    io.Reader
	log   *zap.Logger
}

func NewListener(coord *Coordinator, in io.Reader, log *zap.Logger) *Listener {
	return &Listener{coord: coord, in: in, log: log.Named("signal")}
}

// Run reads commands until the input closes or the context is cancelled.
// Unrecognized input is ignored so a stray keystroke cannot disturb the session.
func (l *Listener) Run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(l.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			ev, ok := ParseCommand(line)
			if !ok {
				continue
			}
			switch ev.Kind {
			case EventPause:
				l.log.Info("operator requested pause", zap.String("reason", ev.Reason))
			case EventResume:
				l.log.Info("operator requested resume")
			case EventCancel:
				l.log.Info("operator requested cancel")
			}
			l.coord.Apply(ev)
		}
	}
}

// ParseCommand maps one input line to an event. The bool result is false for
// blank or unrecognized lines.
func ParseCommand(line string) (Event, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, false
	}
	switch strings.ToLower(fields[0]) {
	case "p", "pause":
		reason := "operator pause"
		if len(fields) > 1 {
			reason = strings.Join(fields[1:], " ")
		}
		return Event{Kind: EventPause, Reason: reason}, true
	case "r", "resume":
		return Event{Kind: EventResume}, true
	case "c", "cancel":
		return Event{Kind: EventCancel}, true
	}
	return Event{}, false
}
