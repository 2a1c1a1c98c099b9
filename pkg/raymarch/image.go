package raymarch

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"

	"gonum.org/v1/gonum/spatial/r3"

	"thermalvis/pkg/volume"
)

// RenderImage composites an orthographic preview of the volume looking down
// the +Z axis, one ray per pixel. It exists for inspection and tooling; the
// interactive display loop is an external collaborator and consumes the
// compositor through March directly.
func RenderImage(vol *volume.Volume, p Params, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	boxMin, boxMax := vol.Bounds()

	spanX := boxMax.X - boxMin.X
	spanY := boxMax.Y - boxMin.Y
	// Rays start one voxel in front of the box so entry is always ahead
	// of the origin.
	startZ := boxMin.Z - vol.Spacing[2]

	for py := 0; py < height; py++ {
		for px := 0; px < width; px++ {
			origin := r3.Vec{
				X: boxMin.X + (float64(px)+0.5)/float64(width)*spanX,
				Y: boxMin.Y + (float64(py)+0.5)/float64(height)*spanY,
				Z: startZ,
			}
			s := March(vol, Ray{Origin: origin, Dir: r3.Vec{Z: 1}}, p)
			img.SetRGBA(px, py, color.RGBA{
				R: toByte(s.R),
				G: toByte(s.G),
				B: toByte(s.B),
				A: 255,
			})
		}
	}
	return img
}

// SaveJPEG writes an image to disk at quality 90.
func SaveJPEG(img image.Image, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

func toByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
