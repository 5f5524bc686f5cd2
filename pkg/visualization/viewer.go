package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"slicersynthseg/internal/models"
)

// Viewer renders 2D preview slices of a segmentation label volume, with each
// anatomical structure drawn in a distinct color.
type Viewer struct {
	// volume holds the imported label volume
	volume *models.LabelVolume
}

// NewViewer creates a preview viewer for the given label volume
func NewViewer(volume *models.LabelVolume) *Viewer {
	return &Viewer{volume: volume}
}

// ExtractSlice extracts a colored 2D slice from the label volume along the
// specified axis at the given position
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	vol := v.volume
	var img *image.RGBA

	switch axis {
	case "x", "X":
		// Extract slice along YZ plane
		if position >= vol.Width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, vol.Width)
		}

		img = image.NewRGBA(image.Rect(0, 0, vol.Depth, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for z := 0; z < vol.Depth; z++ {
				img.SetRGBA(z, y, LabelColor(vol.At(position, y, z)))
			}
		}

	case "y", "Y":
		// Extract slice along XZ plane
		if position >= vol.Height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, vol.Height)
		}

		img = image.NewRGBA(image.Rect(0, 0, vol.Width, vol.Depth))
		for z := 0; z < vol.Depth; z++ {
			for x := 0; x < vol.Width; x++ {
				img.SetRGBA(x, z, LabelColor(vol.At(x, position, z)))
			}
		}

	case "z", "Z":
		// Extract slice along XY plane
		if position >= vol.Depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, vol.Depth)
		}

		img = image.NewRGBA(image.Rect(0, 0, vol.Width, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				img.SetRGBA(x, y, LabelColor(vol.At(x, y, position)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice as a PNG image. PNG rather than JPEG:
// lossy compression would smear label boundaries into nonexistent labels.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveMidSlices extracts and saves the middle slice along each axis,
// returning the paths of the written files. This gives a quick visual check
// of a segmentation without opening a full 3D viewer.
func (v *Viewer) SaveMidSlices(outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	positions := map[string]int{
		"x": v.volume.Width / 2,
		"y": v.volume.Height / 2,
		"z": v.volume.Depth / 2,
	}

	var saved []string
	for _, axis := range []string{"x", "y", "z"} {
		pos := positions[axis]
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return saved, err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return saved, err
		}
		saved = append(saved, filename)
	}

	return saved, nil
}

// LabelColor returns a deterministic, visually distinct color for a label id.
// Background (label 0) is black. Hues are spread around the color wheel by
// the golden angle so that neighboring label ids get dissimilar colors.
func LabelColor(label int32) color.RGBA {
	if label == 0 {
		return color.RGBA{A: 255}
	}

	const goldenAngle = 137.50776405003785
	hue := math.Mod(float64(label)*goldenAngle, 360.0)
	r, g, b := hsvToRGB(hue, 0.75, 0.95)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// hsvToRGB converts a hue in degrees with saturation and value in [0,1]
// to 8-bit RGB components.
func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60.0, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return uint8((r + m) * 255), uint8((g + m) * 255), uint8((b + m) * 255)
}
