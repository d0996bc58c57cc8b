package floorplan

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

// Downloader copies a remote image into dir and returns the local path.
type Downloader interface {
	Download(ctx context.Context, url, dir string) (string, error)
}

// Reader derives a floor area from a floor-plan image URL: download, OCR,
// then the ExtractArea heuristic.
type Reader struct {
	downloader Downloader
	engine     Engine
	log        logrus.FieldLogger
}

// NewReader wires the image downloader and OCR engine.
func NewReader(downloader Downloader, engine Engine, logger logrus.FieldLogger) *Reader {
	return &Reader{
		downloader: downloader,
		engine:     engine,
		log:        logger.WithField("component", "floorplan"),
	}
}

// AreaSqM returns the derived area, or nil when the image could not be
// fetched or its text yields no recognizable figure. OCR quality varies per
// fetch, so an unknown area is never treated as a permanent fact.
func (r *Reader) AreaSqM(ctx context.Context, imageURL string) *float64 {
	log := r.log.WithField("image", imageURL)

	dir, err := os.MkdirTemp("", "floorplan")
	if err != nil {
		log.WithError(err).Warn("Cannot create temp dir for floor plan")
		return nil
	}
	defer os.RemoveAll(dir)

	path, err := r.downloader.Download(ctx, imageURL, dir)
	if err != nil {
		log.WithError(err).Warn("Floor plan download failed")
		return nil
	}

	text, err := r.engine.Recognize(ctx, path)
	if err != nil {
		log.WithError(err).Warn("OCR failed on floor plan")
		return nil
	}

	area, ok := ExtractArea(text)
	if !ok {
		log.Debug("No area figure recognized on floor plan")
		return nil
	}
	return &area
}
