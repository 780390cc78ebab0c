// Package scanner walks media directories and builds the in-memory library
// served by the DLNA router.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/udlna/udlna/log"
	"github.com/udlna/udlna/model"
	"github.com/udlna/udlna/model/id"
)

// Scan walks all roots and returns the populated library. Symlinks are
// followed (cycles are broken on the canonical directory path). Unreadable
// entries log a warning and are skipped; the scan never aborts. Subtitle
// files are recognized but excluded from the library.
func Scan(roots []string) *model.Library {
	start := time.Now()
	s := &scan{visitedDirs: map[string]bool{}}

	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			log.Warn("Scan path does not exist, skipping", "path", root)
			continue
		}
		s.walk(root)
	}

	log.Info("Scan complete",
		"files", len(s.items),
		"video", s.videos, "audio", s.audios, "image", s.images,
		"size", humanize.Bytes(uint64(s.totalBytes)),
		"elapsed", time.Since(start).Round(100*time.Millisecond))

	return model.NewLibrary(s.items)
}

type scan struct {
	items       []model.MediaItem
	visitedDirs map[string]bool
	videos      int
	audios      int
	images      int
	totalBytes  int64
}

func (s *scan) walk(root string) {
	canonical, err := filepath.EvalSymlinks(root)
	if err != nil {
		log.Warn("Cannot resolve scan path", err, "path", root)
		return
	}
	if s.visitedDirs[canonical] {
		return
	}
	s.visitedDirs[canonical] = true

	err = filepath.WalkDir(canonical, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn("Cannot access entry", err, "path", path)
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			// WalkDir does not follow directory symlinks; recurse manually.
			if target, err := filepath.EvalSymlinks(path); err == nil {
				if st, err := os.Stat(target); err == nil {
					if st.IsDir() {
						s.walk(target)
					} else if st.Mode().IsRegular() {
						s.processFile(target)
					}
				}
			}
			return nil
		}
		if d.Type().IsRegular() {
			s.processFile(path)
		}
		return nil
	})
	if err != nil {
		log.Warn("Directory walk failed", err, "path", canonical)
	}
}

func (s *scan) processFile(path string) {
	kind, mime, ok := Classify(path)
	if !ok {
		return
	}
	if kind == model.KindSubtitle {
		log.Debug("Subtitle recognized but excluded from library", "path", path)
		return
	}

	// Canonicalize before deriving the ID so the same file reached through
	// different symlinks or relative paths always gets the same UUID.
	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		log.Warn("Cannot canonicalize path", err, "path", path)
		return
	}
	if !filepath.IsAbs(canonical) {
		if abs, err := filepath.Abs(canonical); err == nil {
			canonical = abs
		}
	}

	st, err := os.Stat(canonical)
	if err != nil {
		log.Warn("Cannot stat file", err, "path", canonical)
		return
	}

	meta, err := ExtractMeta(canonical, kind, mime)
	if err != nil {
		log.Warn("Skipping file - metadata extraction failed", err, "path", canonical)
		return
	}

	item := model.MediaItem{
		ID:       id.ForPath(canonical),
		Path:     canonical,
		FileSize: st.Size(),
		Mime:     mime,
		Kind:     kind,
		Meta:     meta,
	}

	switch kind {
	case model.KindVideo:
		s.videos++
	case model.KindAudio:
		s.audios++
	case model.KindImage:
		s.images++
	}
	s.totalBytes += item.FileSize

	log.Debug("Indexed media file", "id", item.ID, "path", item.Path)
	s.items = append(s.items, item)
}
