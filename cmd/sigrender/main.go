// sigrender draws a recorded pen trace the way a station would and
// writes the PNG it would submit.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/juruen/sigpad/encoding/trace"
	"github.com/juruen/sigpad/model"
	"github.com/juruen/sigpad/stroke"
	"github.com/juruen/sigpad/surface"
)

type renderOptions struct {
	width, height             int
	exportWidth, exportHeight int
	color                     string
	pen                       float64
}

func main() {
	inputName := flag.String("i", "", "trace to render")
	outputName := flag.String("o", "", "output file name")
	extract := flag.String("e", "", "extract, t - text trace, b - binary trace")
	opts := renderOptions{}
	flag.IntVar(&opts.width, "w", 800, "canvas width")
	flag.IntVar(&opts.height, "h", 480, "canvas height")
	flag.IntVar(&opts.exportWidth, "W", 0, "exported width, 0 keeps the aspect ratio")
	flag.IntVar(&opts.exportHeight, "H", 0, "exported height, 0 keeps the aspect ratio")
	flag.StringVar(&opts.color, "c", model.DefaultStyle.Color.Hex(), "pen color")
	flag.Float64Var(&opts.pen, "s", model.DefaultStyle.Width, "pen width")
	flag.Parse()
	var err error

	switch *extract {
	case "t", "b":
		err = convert(*inputName, *outputName, *extract == "t")
	case "":
		err = render(*inputName, *outputName, opts)
	default:
		err = errors.Errorf("unknown extract mode %q", *extract)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func outputFor(inputName, outputName, ext string) string {
	if outputName != "" {
		return outputName
	}
	return strings.TrimSuffix(inputName, filepath.Ext(inputName)) + ext
}

// convert rewrites a trace in the other encoding.
func convert(inputName, outputName string, text bool) error {
	if inputName == "" {
		return errors.New("missing input file")
	}
	t, err := trace.ReadFile(inputName)
	if err != nil {
		return err
	}

	var data []byte
	if text {
		data, err = t.MarshalText()
		outputName = outputFor(inputName, outputName, ".txt")
	} else {
		data, err = t.MarshalBinary()
		outputName = outputFor(inputName, outputName, ".trace")
	}
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(outputName, data, 0644), "can't write output")
}

// draw replays samples onto a new surface.
func draw(samples []model.Sample, opts renderOptions) (*surface.Surface, error) {
	if opts.width <= 0 || opts.height <= 0 {
		return nil, errors.Errorf("invalid canvas size %dx%d", opts.width, opts.height)
	}
	color, err := model.ParseRGBA(opts.color)
	if err != nil {
		return nil, err
	}

	s := surface.New(opts.width, opts.height, surface.WithExportSize(opts.exportWidth, opts.exportHeight))
	s.Configure(model.Style{Color: color, Width: opts.pen})
	for _, seg := range stroke.Segments(samples) {
		s.DrawSegment(seg)
	}
	return s, nil
}

func render(inputName, outputName string, opts renderOptions) error {
	if inputName == "" {
		return errors.New("missing input file")
	}
	t, err := trace.ReadFile(inputName)
	if err != nil {
		return err
	}

	s, err := draw(t.Samples, opts)
	if err != nil {
		return err
	}
	raw, err := s.Export()
	if err != nil {
		return err
	}

	outputName = outputFor(inputName, outputName, ".png")
	if err := os.WriteFile(outputName, raw, 0644); err != nil {
		return errors.Wrap(err, "can't create output file")
	}
	return nil
}
