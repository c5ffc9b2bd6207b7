// Package trace encodes recorded digitizer sample streams.
//
// A binary trace is a fixed size header followed by the sample count and
// one record per sample:
//
//	uint32 flags (bit 0: pen contact)
//	float64 x
//	float64 y
//
// all little endian. Version 1 traces stored x and y as float32; they are
// still read but no longer written. The text form has one sample per line, "d X Y" for
// a contact sample and "u" for a lift; blank lines and lines starting
// with '#' are ignored.
package trace

import (
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/juruen/sigpad/model"
)

type Version int

const (
	V1 Version = 1
	V2 Version = 2
)

const (
	HeaderV1  = "sigpad trace file, version=1    "
	HeaderV2  = "sigpad trace file, version=2    "
	HeaderLen = 32
)

// recordLen is the size of one encoded sample.
func recordLen(v Version) int {
	if v == V1 {
		return 12
	}
	return 20
}

const flagContact = 1

type Trace struct {
	Version Version
	Samples []model.Sample
}

// ReadFile loads a binary or text trace.
func ReadFile(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read trace %s", path)
	}

	t := &Trace{}
	if IsBinary(data) {
		err = t.UnmarshalBinary(data)
	} else {
		err = t.UnmarshalText(data)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "can't decode trace %s", path)
	}
	return t, nil
}

func IsBinary(data []byte) bool {
	return len(data) >= HeaderLen && strings.HasPrefix(string(data[:HeaderLen]), "sigpad trace file")
}
