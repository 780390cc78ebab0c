package model

import (
	"sync"

	"github.com/google/uuid"
)

// MediaKind classifies a discovered file. Subtitle files are recognized by
// the scanner but never enter the served library.
type MediaKind int

const (
	KindVideo MediaKind = iota
	KindAudio
	KindImage
	KindSubtitle
)

func (k MediaKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindImage:
		return "image"
	case KindSubtitle:
		return "subtitle"
	}
	return "unknown"
}

// MediaMeta holds metadata extracted from container headers at scan time.
// Zero values mean "absent": an empty DLNAProfile means the wire protocolInfo
// omits DLNA.ORG_PN entirely (never a wildcard).
type MediaMeta struct {
	// UPnP duration string "HH:MM:SS.mmm", hours zero-padded to at least 2.
	Duration string
	// Pixel dimensions "WxH".
	Resolution string
	// Bitrate in bits per second.
	Bitrate uint32
	// DLNA profile tag, e.g. "MP3", "JPEG_LRG".
	DLNAProfile string
}

// MediaItem is a single indexed media file. Items are immutable once the
// library is built.
type MediaItem struct {
	// Stable UUIDv5: uuid5(machine namespace, canonical path). The same file
	// on the same machine keeps the same ID across restarts.
	ID uuid.UUID
	// Canonical absolute path, symlinks resolved.
	Path string
	// File size in bytes.
	FileSize int64
	Mime     string
	Kind     MediaKind
	Meta     MediaMeta
}

// Library is the read-mostly in-memory snapshot of indexed items, in scanner
// surfacing order. It is populated once before the HTTP listeners open.
// A future writer (SIGHUP rescan) must Replace the whole slice atomically;
// items are never mutated in place. Readers copy out what they need and
// release the lock before any I/O that may block.
type Library struct {
	mu    sync.RWMutex
	items []MediaItem
}

func NewLibrary(items []MediaItem) *Library {
	return &Library{items: items}
}

// Items returns the current snapshot slice. Callers must treat it as
// read-only; the slice header is swapped wholesale on Replace, so a snapshot
// stays coherent even if a rescan lands mid-request.
func (l *Library) Items() []MediaItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.items
}

// Find returns a copy of the item with the given ID.
func (l *Library) Find(id uuid.UUID) (MediaItem, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.items {
		if l.items[i].ID == id {
			return l.items[i], true
		}
	}
	return MediaItem{}, false
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Replace swaps the item snapshot atomically.
func (l *Library) Replace(items []MediaItem) {
	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
}
