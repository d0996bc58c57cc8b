package floorplan

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Engine recognizes text in an image file. Implementations are external
// black boxes; everything done with the text lives in this package.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Tesseract shells out to the tesseract binary.
type Tesseract struct {
	binary   string
	dataPath string
}

// NewTesseract wires the binary and tessdata locations from config. An
// empty binary falls back to "tesseract" on PATH.
func NewTesseract(binary, dataPath string) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	return &Tesseract{binary: binary, dataPath: dataPath}
}

// Recognize runs tesseract over the image and returns the raw text output.
func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	args := []string{imagePath, "stdout", "-l", "eng"}
	if t.dataPath != "" {
		args = append(args, "--tessdata-dir", t.dataPath)
	}

	out, err := exec.CommandContext(ctx, t.binary, args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("tesseract failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("run tesseract: %w", err)
	}
	return string(out), nil
}
