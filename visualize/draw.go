package visualize

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/okieraised/go-retinanet-coder/encoder"
	"github.com/okieraised/go-retinanet-coder/processing"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// LabelColor returns a stable color for a class label. Hues step by the
// golden angle.
func LabelColor(label int) color.RGBA {
	if label < 0 {
		label = -label
	}
	hue := math.Mod(float64(label)*137.508, 360)
	r, g, b := colorful.Hsv(hue, 0.75, 0.95).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// LabelText renders "name score". Labels are 1-based, so label 1 is
// classNames[0]; labels without a name print as numbers.
func LabelText(det encoder.Detection, classNames []string) string {
	name := fmt.Sprintf("%d", det.Label)
	if det.Label >= 1 && det.Label <= len(classNames) {
		name = classNames[det.Label-1]
	}
	return fmt.Sprintf("%s %.2f", name, det.Score)
}

func toRect(b processing.Box) image.Rectangle {
	return image.Rect(int(b[0]), int(b[1]), int(b[2]), int(b[3]))
}

// DrawDetections draws one rectangle and caption per detection onto img.
func DrawDetections(img *gocv.Mat, detections []encoder.Detection, classNames []string) error {
	if img == nil || img.Empty() {
		return errors.Wrap(processing.ErrInvalidInput, "empty image")
	}

	for _, det := range detections {
		rect := toRect(det.Box)
		c := LabelColor(det.Label)
		gocv.Rectangle(img, rect, c, 2)

		origin := image.Pt(rect.Min.X, rect.Min.Y-4)
		if origin.Y < 10 {
			origin.Y = rect.Min.Y + 12
		}
		gocv.PutText(img, LabelText(det, classNames), origin, gocv.FontHersheySimplex, 0.4, c, 1)
	}
	return nil
}
