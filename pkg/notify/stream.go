package notify

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// StreamNotifier writes a human-readable per-accreditation summary to
// a stream, colored when the stream is a terminal.
type StreamNotifier struct {
	Out   io.Writer
	Color bool
}

// NewStreamNotifier builds a StreamNotifier writing to out, enabling
// color only when out is an *os.File attached to a terminal.
func NewStreamNotifier(out io.Writer) *StreamNotifier {
	n := &StreamNotifier{Out: out}
	if f, ok := out.(*os.File); ok {
		n.Color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return n
}

func (n *StreamNotifier) Name() string { return "stream" }

func (n *StreamNotifier) Notify(ctx context.Context, buckets []Bucket, pushErr error) error {
	pass := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	fail := color.New(color.FgRed)
	errc := color.New(color.FgRed, color.Bold)
	if !n.Color {
		pass.DisableColor()
		warn.DisableColor()
		fail.DisableColor()
		errc.DisableColor()
	}

	if pushErr != nil {
		errc.Fprintf(n.Out, "push error: %v\n", pushErr)
	}

	for _, b := range buckets {
		label := b.Accreditation
		if label == "" {
			label = "(unaccredited)"
		}
		fmt.Fprintf(n.Out, "%s: %d pass, %d warn, %d fail, %d error\n",
			label, len(b.Pass), len(b.Warn), len(b.Fail), len(b.Error))

		for _, o := range b.Fail {
			fail.Fprintf(n.Out, "  FAIL %s.%s\n", o.Check, o.Method)
		}
		for _, o := range b.Error {
			errc.Fprintf(n.Out, "  ERROR %s.%s\n", o.Check, o.Method)
		}
		for _, o := range b.Warn {
			warn.Fprintf(n.Out, "  WARN %s.%s\n", o.Check, o.Method)
		}
		if len(b.Fail) == 0 && len(b.Error) == 0 && len(b.Warn) == 0 {
			pass.Fprintf(n.Out, "  all clear\n")
		}
	}
	return nil
}
