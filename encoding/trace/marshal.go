package trace

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// MarshalBinary implements encoding.BinaryMarshaler. It always writes
// the latest version.
func (t *Trace) MarshalBinary() (data []byte, err error) {
	w := new(writer)

	w.writeHeader()
	w.writeNumber(len(t.Samples))
	for _, s := range t.Samples {
		var flags uint32
		if s.Contact {
			flags |= flagContact
		}
		w.writeNumber(int(flags))
		w.writeFloat64(s.X)
		w.writeFloat64(s.Y)
	}

	return w.Bytes(), nil
}

// MarshalText implements encoding.TextMarshaler.
func (t *Trace) MarshalText() ([]byte, error) {
	var b bytes.Buffer
	for _, s := range t.Samples {
		if s.Contact {
			fmt.Fprintf(&b, "d %g %g\n", s.X, s.Y)
		} else {
			b.WriteString("u\n")
		}
	}
	return b.Bytes(), nil
}

type writer struct {
	b bytes.Buffer
}

func (w *writer) Bytes() []byte {
	return w.b.Bytes()
}

func (w *writer) writeHeader() {
	w.b.WriteString(HeaderV2)
}

func (w *writer) writeNumber(n int) {
	binary.Write(&w.b, binary.LittleEndian, uint32(n))
}

func (w *writer) writeFloat64(n float64) {
	binary.Write(&w.b, binary.LittleEndian, n)
}
