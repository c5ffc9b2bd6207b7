package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Console prints toasts to a terminal, green for success and red for
// errors.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Notify(message string, kind Kind) {
	paint := color.New(color.FgRed, color.Bold).SprintFunc()
	mark := "✗"
	if kind == KindSuccess {
		paint = color.New(color.FgGreen, color.Bold).SprintFunc()
		mark = "✓"
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, line := range strings.Split(message, "\n") {
		if i == 0 {
			fmt.Fprintf(c.out, "%s %s\n", paint(mark), paint(line))
			continue
		}
		fmt.Fprintf(c.out, "  %s\n", line)
	}
}

// Line prints a status line when a toggle changes, e.g. the loading
// indicator in a shell.
func (c *Console) Line(text string) func() {
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		fmt.Fprintln(c.out, color.New(color.Faint).Sprint(text))
	}
}
