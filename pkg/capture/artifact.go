package capture

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/OpenTraceLab/OpenTraceUSB/pkg/bmp"
)

// Artifacts lists the files written for a capture. Empty paths were not
// written.
type Artifacts struct {
	RawPath string
	BMPPath string
	Width   int
	Height  int
}

// SaveArtifacts writes the raw dump and its bitmap preview into dir. Nothing
// is written when data is empty.
func SaveArtifacts(dir, rawName, bmpName string, data []byte, width int) (Artifacts, error) {
	var a Artifacts
	if len(data) == 0 {
		return a, nil
	}
	height, err := bmp.Dimensions(len(data), width)
	if err != nil {
		return a, err
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return a, fmt.Errorf("capture: create %s: %w", dir, err)
		}
	}

	raw := filepath.Join(dir, rawName)
	if err := os.WriteFile(raw, data, 0o644); err != nil {
		return a, fmt.Errorf("capture: write raw dump: %w", err)
	}
	a.RawPath = raw

	preview := filepath.Join(dir, bmpName)
	if err := bmp.WriteFile(preview, data, width); err != nil {
		return a, err
	}
	a.BMPPath = preview
	a.Width, a.Height = width, height
	return a, nil
}
