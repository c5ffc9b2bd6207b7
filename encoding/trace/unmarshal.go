package trace

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/juruen/sigpad/model"
)

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (t *Trace) UnmarshalBinary(data []byte) error {
	r := newReader(data)
	if err := r.checkHeader(); err != nil {
		return err
	}
	t.Version = r.version

	n, err := r.readNumber()
	if err != nil {
		return err
	}
	if int64(n)*int64(recordLen(r.version)) > int64(r.Len()) {
		return fmt.Errorf("trace declares %d samples but holds %d bytes", n, r.Len())
	}

	t.Samples = make([]model.Sample, n)
	for i := range t.Samples {
		s, err := r.readSample()
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		t.Samples[i] = s
	}
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Trace) UnmarshalText(data []byte) error {
	t.Version = V2
	t.Samples = t.Samples[:0]

	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "u", "up":
			t.Samples = append(t.Samples, model.Up())
		case "d", "down":
			if len(fields) != 3 {
				return fmt.Errorf("line %d: want \"d X Y\"", line)
			}
			x, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return fmt.Errorf("line %d: bad x: %w", line, err)
			}
			y, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return fmt.Errorf("line %d: bad y: %w", line, err)
			}
			t.Samples = append(t.Samples, model.Down(x, y))
		default:
			return fmt.Errorf("line %d: unknown sample %q", line, fields[0])
		}
	}
	return sc.Err()
}

type reader struct {
	bytes.Reader
	version Version
}

func newReader(data []byte) *reader {
	r := &reader{version: V2}
	r.Reset(data)
	return r
}

func (r *reader) checkHeader() error {
	buf := make([]byte, HeaderLen)

	n, err := r.Read(buf)
	if err != nil {
		return err
	}
	if n != HeaderLen {
		return fmt.Errorf("wrong header size")
	}

	switch string(buf) {
	case HeaderV1:
		r.version = V1
	case HeaderV2:
		r.version = V2
	default:
		return fmt.Errorf("unknown header")
	}
	return nil
}

func (r *reader) readNumber() (uint32, error) {
	var nb uint32
	if err := binary.Read(r, binary.LittleEndian, &nb); err != nil {
		return 0, fmt.Errorf("wrong number read")
	}
	return nb, nil
}

func (r *reader) readSample() (model.Sample, error) {
	if r.version == V1 {
		var rec struct {
			Flags uint32
			X, Y  float32
		}
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return model.Sample{}, fmt.Errorf("failed to read sample")
		}
		return model.Sample{Contact: rec.Flags&flagContact != 0, X: float64(rec.X), Y: float64(rec.Y)}, nil
	}

	var rec struct {
		Flags uint32
		X, Y  float64
	}
	if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
		return model.Sample{}, fmt.Errorf("failed to read sample")
	}
	return model.Sample{Contact: rec.Flags&flagContact != 0, X: rec.X, Y: rec.Y}, nil
}
