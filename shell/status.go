package shell

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/abiosoft/ishell"

	"github.com/juruen/sigpad/capture"
)

type StatusJSON struct {
	State       string      `json:"state"`
	SessionID   string      `json:"sessionId,omitempty"`
	Tracking    bool        `json:"tracking"`
	Pen         *[2]float64 `json:"pen,omitempty"`
	Strokes     int         `json:"strokes"`
	Segments    int         `json:"segments"`
	Samples     int         `json:"samples"`
	Submissions int         `json:"submissions"`
	Last        string      `json:"last,omitempty"`
}

func StatusToJSON(st capture.Status) StatusJSON {
	out := StatusJSON{
		State:       st.State.String(),
		SessionID:   st.SessionID,
		Tracking:    st.Pen.Tracking,
		Strokes:     st.Strokes,
		Segments:    st.Segments,
		Samples:     st.Samples,
		Submissions: st.Submissions,
	}
	if st.Pen.Tracking {
		out.Pen = &[2]float64{st.Pen.X, st.Pen.Y}
	}
	if st.Submissions > 0 {
		out.Last = st.Last.String()
	}
	return out
}

func writeStatus(w io.Writer, st capture.Status, asJSON bool) error {
	if asJSON {
		output, err := json.MarshalIndent(StatusToJSON(st), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(output))
		return err
	}

	pen := "up"
	if st.Pen.Tracking {
		pen = fmt.Sprintf("down at %g,%g", st.Pen.X, st.Pen.Y)
	}
	last := "-"
	if st.Submissions > 0 {
		last = st.Last.String()
	}

	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "state:\t%s\n", st.State)
	if st.SessionID != "" {
		fmt.Fprintf(tw, "session:\t%s\n", st.SessionID)
	}
	fmt.Fprintf(tw, "pen:\t%s\n", pen)
	fmt.Fprintf(tw, "strokes:\t%d\n", st.Strokes)
	fmt.Fprintf(tw, "segments:\t%d\n", st.Segments)
	fmt.Fprintf(tw, "samples:\t%d\n", st.Samples)
	fmt.Fprintf(tw, "last:\t%s\n", last)
	return tw.Flush()
}

func statusCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "status",
		Help: "show the capture session",
		Func: func(c *ishell.Context) {
			flagSet := flag.NewFlagSet("status", flag.ContinueOnError)
			asJSON := flagSet.Bool("j", ctx.JSONOutput, "json output")
			if err := flagSet.Parse(c.Args); err != nil {
				if err != flag.ErrHelp {
					c.Err(err)
				}
				return
			}

			if err := writeStatus(shellWriter{c}, ctx.Session.Status(), *asJSON); err != nil {
				c.Err(err)
			}
		},
	}
}

// shellWriter sends writes through the shell so they interleave with its
// own output.
type shellWriter struct {
	c *ishell.Context
}

func (w shellWriter) Write(p []byte) (int, error) {
	w.c.Print(string(p))
	return len(p), nil
}
