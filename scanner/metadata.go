package scanner

import (
	"fmt"
	"image"
	"os"

	// Header-only dimension probes for the formats the classifier serves.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	mp4 "github.com/abema/go-mp4"
	"github.com/dhowden/tag"

	"github.com/udlna/udlna/log"
	"github.com/udlna/udlna/model"
)

// FormatDuration renders a duration as the canonical UPnP string
// "HH:MM:SS.mmm", hours zero-padded to at least two digits. frac is the
// sub-second fraction in [0, 1).
func FormatDuration(totalSeconds uint64, frac float64) string {
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60
	ms := uint32(frac*1000.0 + 0.5)
	if ms > 999 {
		ms = 999
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// DLNAProfileFor returns the static DLNA profile tag for a MIME type, or ""
// when the type has no assigned profile. Callers must then omit DLNA.ORG_PN
// from protocolInfo entirely - never substitute a wildcard.
func DLNAProfileFor(mime string) string {
	switch mime {
	case "audio/mpeg":
		return "MP3"
	case "audio/mp4":
		return "AAC_ISO_320"
	case "image/jpeg":
		return "JPEG_LRG"
	case "image/png":
		return "PNG_LRG"
	}
	return ""
}

// ExtractMeta reads container headers and returns lightweight metadata for
// the file. It fails only when the file cannot be opened or its container is
// unreadable; a readable file with sparse headers yields a meta with absent
// fields. Failing files are skipped by the scanner entirely.
func ExtractMeta(path string, kind model.MediaKind, mime string) (model.MediaMeta, error) {
	switch kind {
	case model.KindVideo:
		if mime == "video/mp4" {
			return extractMP4Meta(path, mime)
		}
		return extractOpaqueMeta(path, mime)
	case model.KindAudio:
		if mime == "audio/mp4" {
			return extractMP4Meta(path, mime)
		}
		return extractAudioMeta(path, mime)
	case model.KindImage:
		return extractImageMeta(path, mime)
	}
	return model.MediaMeta{}, fmt.Errorf("no metadata extractor for kind %s", kind)
}

// extractMP4Meta probes an MP4/M4V/M4A container for duration, resolution,
// and overall bitrate.
func extractMP4Meta(path, mime string) (model.MediaMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.MediaMeta{}, err
	}
	defer f.Close()

	info, err := mp4.Probe(f)
	if err != nil {
		return model.MediaMeta{}, fmt.Errorf("mp4 probe: %w", err)
	}

	meta := model.MediaMeta{DLNAProfile: DLNAProfileFor(mime)}

	var durSecs float64
	if info.Timescale > 0 && info.Duration > 0 {
		durSecs = float64(info.Duration) / float64(info.Timescale)
		whole := info.Duration / uint64(info.Timescale)
		frac := durSecs - float64(whole)
		meta.Duration = FormatDuration(whole, frac)
	} else {
		log.Debug("No duration in mp4 container", "path", path)
	}

	for _, track := range info.Tracks {
		if track.AVC != nil && track.AVC.Width > 0 && track.AVC.Height > 0 {
			meta.Resolution = fmt.Sprintf("%dx%d", track.AVC.Width, track.AVC.Height)
			break
		}
	}

	if durSecs > 0 {
		if st, err := f.Stat(); err == nil {
			meta.Bitrate = uint32(float64(st.Size()*8) / durSecs)
		}
	}
	return meta, nil
}

// extractAudioMeta probes a non-MP4 audio file. The tag probe confirms the
// container is readable; duration is not recoverable from tags alone and is
// left absent.
func extractAudioMeta(path, mime string) (model.MediaMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.MediaMeta{}, err
	}
	defer f.Close()

	if _, err := tag.ReadFrom(f); err != nil {
		// Untagged but readable audio is fine - WAV/AIFF rarely carry tags.
		log.Debug("No tags in audio file", "path", path, "reason", err)
	}
	return model.MediaMeta{DLNAProfile: DLNAProfileFor(mime)}, nil
}

// extractOpaqueMeta handles video containers without a cheap header parser
// (MKV, AVI, MPEG-TS, ...). The file must at least be openable; resolution
// and duration stay absent.
func extractOpaqueMeta(path, mime string) (model.MediaMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.MediaMeta{}, err
	}
	f.Close()
	log.Debug("No container probe for video format", "path", path, "mime", mime)
	return model.MediaMeta{DLNAProfile: DLNAProfileFor(mime)}, nil
}

// extractImageMeta reads image dimensions from the header only - the pixel
// data is never decoded.
func extractImageMeta(path, mime string) (model.MediaMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.MediaMeta{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return model.MediaMeta{}, fmt.Errorf("image header: %w", err)
	}
	return model.MediaMeta{
		Resolution:  fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		DLNAProfile: DLNAProfileFor(mime),
	}, nil
}
