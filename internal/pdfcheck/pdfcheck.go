// Package pdfcheck verifies that emitted bytes are a readable PDF with the
// expected page count and page size before they are written to disk.
package pdfcheck

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrInvalidPDF indicates the bytes are not a usable PDF document.
var ErrInvalidPDF = errors.New("invalid PDF")

const (
	signature = "%PDF-"

	// pointsPerMM converts PDF user space units (1/72 in) to millimetres.
	pointsPerMM = 72.0 / 25.4

	// DefaultToleranceMM absorbs the rounding Chrome applies when it converts
	// paper inches to points.
	DefaultToleranceMM = 1.0
)

// Size is a page size in millimetres.
type Size struct {
	WidthMM  float64
	HeightMM float64
}

func (s Size) String() string {
	return fmt.Sprintf("%.1fx%.1fmm", s.WidthMM, s.HeightMM)
}

// Info describes a parsed document.
type Info struct {
	Pages int
	Sizes []Size // one per page, in page order
}

// Expect constrains Check. Zero fields are not checked.
type Expect struct {
	Pages       int // exact page count
	WidthMM     float64
	HeightMM    float64
	ToleranceMM float64 // defaults to DefaultToleranceMM
}

var configOnce sync.Once

func configuration() *model.Configuration {
	configOnce.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Inspect parses data and reports its page count and page sizes.
func Inspect(data []byte) (*Info, error) {
	if !bytes.HasPrefix(data, []byte(signature)) {
		return nil, fmt.Errorf("%w: missing %s signature", ErrInvalidPDF, signature)
	}

	conf := configuration()
	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if pages < 1 {
		return nil, fmt.Errorf("%w: document has no pages", ErrInvalidPDF)
	}

	dims, err := api.PageDims(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	info := &Info{Pages: pages, Sizes: make([]Size, 0, len(dims))}
	for _, d := range dims {
		info.Sizes = append(info.Sizes, Size{
			WidthMM:  d.Width / pointsPerMM,
			HeightMM: d.Height / pointsPerMM,
		})
	}
	return info, nil
}

// Check inspects data and compares it against want. Every page must match the
// expected size when one is given.
func Check(data []byte, want Expect) (*Info, error) {
	info, err := Inspect(data)
	if err != nil {
		return nil, err
	}

	if want.Pages > 0 && info.Pages != want.Pages {
		return info, fmt.Errorf("%w: %d pages, want %d", ErrInvalidPDF, info.Pages, want.Pages)
	}

	tol := want.ToleranceMM
	if tol <= 0 {
		tol = DefaultToleranceMM
	}
	for i, s := range info.Sizes {
		if want.WidthMM > 0 && math.Abs(s.WidthMM-want.WidthMM) > tol {
			return info, fmt.Errorf("%w: page %d is %s, want width %.1fmm", ErrInvalidPDF, i+1, s, want.WidthMM)
		}
		if want.HeightMM > 0 && math.Abs(s.HeightMM-want.HeightMM) > tol {
			return info, fmt.Errorf("%w: page %d is %s, want height %.1fmm", ErrInvalidPDF, i+1, s, want.HeightMM)
		}
	}
	return info, nil
}
