package web

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-simview/pkg/telemetry"
)

// EncodeJPEG compresses a BGRA frame.
func EncodeJPEG(f telemetry.Frame, quality int) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	bgra, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC4, f.Pix)
	if err != nil {
		return nil, fmt.Errorf("wrap frame: %w", err)
	}
	defer bgra.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(bgra, &bgr, gocv.ColorBGRAToBGR)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, bgr, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
