// Package form provides the values of the delivery form that travel with
// the signature. The form is owned outside the capture session, so values
// are read at the moment of submission and never cached.
package form

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type Source interface {
	Snapshot() (url.Values, error)
}

// Static is an in-memory form, edited from the station shell.
type Static struct {
	mu     sync.Mutex
	values url.Values
}

func NewStatic(fields map[string]string) *Static {
	s := &Static{values: url.Values{}}
	for k, v := range fields {
		s.values.Set(k, v)
	}
	return s
}

func (s *Static) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.Set(key, value)
}

func (s *Static) Add(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.Add(key, value)
}

func (s *Static) Del(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values.Del(key)
}

func (s *Static) Snapshot() (url.Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.values), nil
}

// File reads a YAML mapping of field names to scalars or lists of
// scalars each time a snapshot is taken.
type File struct {
	Path string
}

func (f File) Snapshot() (url.Values, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read form %s", f.Path)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "can't parse form %s", f.Path)
	}

	out := url.Values{}
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
			out.Set(k, "")
		case []interface{}:
			for _, item := range t {
				out.Add(k, scalar(item))
			}
		case map[interface{}]interface{}:
			return nil, errors.Errorf("form field %q: nested values are not supported", k)
		default:
			out.Set(k, scalar(t))
		}
	}
	return out, nil
}

func scalar(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Layered merges sources; a field present in a later source replaces
// the same field of earlier ones.
type Layered []Source

func (l Layered) Snapshot() (url.Values, error) {
	out := url.Values{}
	for _, src := range l {
		v, err := src.Snapshot()
		if err != nil {
			return nil, err
		}
		for k, vals := range v {
			out[k] = append([]string(nil), vals...)
		}
	}
	return out, nil
}

// Keys returns the field names of v in order.
func Keys(v url.Values) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clone(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
