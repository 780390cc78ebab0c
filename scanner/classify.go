package scanner

import (
	"path/filepath"
	"strings"

	"github.com/udlna/udlna/model"
)

// SupportedMimes lists every MIME type this server can serve, in the order
// advertised by ConnectionManager GetProtocolInfo. Subtitle types are
// intentionally excluded.
var SupportedMimes = []string{
	// Video
	"video/mp4",
	"video/x-matroska",
	"video/x-msvideo",
	"video/quicktime",
	"video/MP2T",
	"video/mpeg",
	"video/x-ms-wmv",
	"video/x-flv",
	"video/ogg",
	"video/webm",
	"video/3gpp",
	// Audio
	"audio/mpeg",
	"audio/flac",
	"audio/wav",
	"audio/mp4",
	"audio/aac",
	"audio/ogg",
	"audio/x-ms-wma",
	"audio/aiff",
	// Image
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/bmp",
	"image/tiff",
}

type classification struct {
	kind model.MediaKind
	mime string
}

var extTable = map[string]classification{
	// Video
	"mp4":  {model.KindVideo, "video/mp4"},
	"m4v":  {model.KindVideo, "video/mp4"},
	"mkv":  {model.KindVideo, "video/x-matroska"},
	"avi":  {model.KindVideo, "video/x-msvideo"},
	"mov":  {model.KindVideo, "video/quicktime"},
	"ts":   {model.KindVideo, "video/MP2T"},
	"m2ts": {model.KindVideo, "video/MP2T"},
	"mts":  {model.KindVideo, "video/MP2T"},
	"mpg":  {model.KindVideo, "video/mpeg"},
	"mpeg": {model.KindVideo, "video/mpeg"},
	"wmv":  {model.KindVideo, "video/x-ms-wmv"},
	"flv":  {model.KindVideo, "video/x-flv"},
	"ogv":  {model.KindVideo, "video/ogg"},
	"webm": {model.KindVideo, "video/webm"},
	"3gp":  {model.KindVideo, "video/3gpp"},

	// Audio
	"mp3":  {model.KindAudio, "audio/mpeg"},
	"flac": {model.KindAudio, "audio/flac"},
	"wav":  {model.KindAudio, "audio/wav"},
	"m4a":  {model.KindAudio, "audio/mp4"},
	"aac":  {model.KindAudio, "audio/aac"},
	"ogg":  {model.KindAudio, "audio/ogg"},
	"oga":  {model.KindAudio, "audio/ogg"},
	"opus": {model.KindAudio, "audio/ogg"},
	"wma":  {model.KindAudio, "audio/x-ms-wma"},
	"aiff": {model.KindAudio, "audio/aiff"},
	"aif":  {model.KindAudio, "audio/aiff"},

	// Image
	"jpg":  {model.KindImage, "image/jpeg"},
	"jpeg": {model.KindImage, "image/jpeg"},
	"png":  {model.KindImage, "image/png"},
	"gif":  {model.KindImage, "image/gif"},
	"webp": {model.KindImage, "image/webp"},
	"bmp":  {model.KindImage, "image/bmp"},
	"tiff": {model.KindImage, "image/tiff"},
	"tif":  {model.KindImage, "image/tiff"},

	// Subtitles are recognized so callers can filter them explicitly; they
	// must never enter the served library.
	"srt": {model.KindSubtitle, "text/srt"},
	"vtt": {model.KindSubtitle, "text/vtt"},
}

// Classify maps a file path to a (MediaKind, MIME) pair by extension,
// case-insensitively. ok is false for unrecognized extensions, which are
// silently skipped by the scanner.
func Classify(path string) (kind model.MediaKind, mime string, ok bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return 0, "", false
	}
	c, found := extTable[strings.ToLower(ext)]
	if !found {
		return 0, "", false
	}
	return c.kind, c.mime, true
}
