package dlna

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/udlna/udlna/log"
	"github.com/udlna/udlna/model"
)

// contentFeatures: OP=01 byte seek only, CI=0 no transcoding, FLAGS as the
// fixed 32-hex-digit streaming capability word.
const (
	dlnaContentFeatures = "DLNA.ORG_OP=01;DLNA.ORG_CI=0;DLNA.ORG_FLAGS=" + dlnaFlags
	dlnaTransferMode    = "Streaming"
)

// lookupItem resolves the {id} path segment to a library item. The copy is
// taken under the library lock; no lock is held during file I/O.
func (rt *Router) lookupItem(r *http.Request) (model.MediaItem, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return model.MediaItem{}, false
	}
	return rt.lib.Find(id)
}

// dlnaHeaders sets the headers every media response carries, GET and HEAD
// alike.
func dlnaHeaders(w http.ResponseWriter, item *model.MediaItem) {
	h := w.Header()
	h.Set("Content-Type", item.Mime)
	h.Set("Content-Length", strconv.FormatInt(item.FileSize, 10))
	h.Set("Accept-Ranges", "bytes")
	h.Set("transferMode.dlna.org", dlnaTransferMode)
	h.Set("contentFeatures.dlna.org", dlnaContentFeatures)
}

// handleMediaHead answers renderer pre-flight checks with the full header set
// and no body. The file is deliberately never opened here.
func (rt *Router) handleMediaHead(w http.ResponseWriter, r *http.Request) {
	item, ok := rt.lookupItem(r)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	dlnaHeaders(w, &item)
	w.WriteHeader(http.StatusOK)
}

// handleMediaGet streams the file, honoring a single Range per RFC 7233.
func (rt *Router) handleMediaGet(w http.ResponseWriter, r *http.Request) {
	item, ok := rt.lookupItem(r)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		rt.serveRange(w, r, &item, rangeHeader)
		return
	}

	f, err := os.Open(item.Path)
	if err != nil {
		log.Error(r.Context(), "Failed to open media file", err, "path", item.Path)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer f.Close()

	dlnaHeaders(w, &item)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		// Renderers drop connections mid-stream constantly; debug only.
		log.Debug(r.Context(), "Media stream interrupted", "path", item.Path, "reason", err)
	}
}

// serveRange answers a Range request with 206 for the FIRST satisfiable range
// or 416 when the header is malformed, any range is unsatisfiable, or
// multiple ranges overlap.
func (rt *Router) serveRange(w http.ResponseWriter, r *http.Request, item *model.MediaItem, header string) {
	ranges, err := parseRangeHeader(header, item.FileSize)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", item.FileSize))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	first := ranges[0]
	length := first.end - first.start + 1

	f, err := os.Open(item.Path)
	if err != nil {
		log.Error(r.Context(), "Failed to open media file for range", err, "path", item.Path)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer f.Close()

	if _, err := f.Seek(first.start, io.SeekStart); err != nil {
		log.Error(r.Context(), "Failed to seek media file", err, "path", item.Path)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	dlnaHeaders(w, item)
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", first.start, first.end, item.FileSize))
	w.WriteHeader(http.StatusPartialContent)
	if _, err := io.Copy(w, io.LimitReader(f, length)); err != nil {
		log.Debug(r.Context(), "Range stream interrupted", "path", item.Path, "reason", err)
	}
}

// byteRange is a resolved, inclusive byte span within a file.
type byteRange struct {
	start int64
	end   int64
}

// parseRangeHeader parses an RFC 7233 Range header and resolves every range
// spec against size. It returns an error for any malformed spec, any
// unsatisfiable range, or overlapping ranges in a multi-range header - the
// caller answers 416 for all of these.
func parseRangeHeader(header string, size int64) ([]byteRange, error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return nil, fmt.Errorf("unsupported range unit in %q", header)
	}
	if size <= 0 {
		return nil, fmt.Errorf("no satisfiable range in empty file")
	}
	specs := strings.Split(header[len(prefix):], ",")
	ranges := make([]byteRange, 0, len(specs))

	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		dash := strings.Index(spec, "-")
		if dash < 0 {
			return nil, fmt.Errorf("malformed range spec %q", spec)
		}
		startStr, endStr := spec[:dash], spec[dash+1:]

		var br byteRange
		switch {
		case startStr == "" && endStr != "":
			// Suffix range: last N bytes.
			n, err := strconv.ParseInt(endStr, 10, 64)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("malformed suffix range %q", spec)
			}
			if n > size {
				n = size
			}
			br = byteRange{start: size - n, end: size - 1}
		case startStr != "" && endStr == "":
			// Open-ended range: start through EOF.
			start, err := strconv.ParseInt(startStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed range start %q", spec)
			}
			if start >= size {
				return nil, fmt.Errorf("range start %d beyond size %d", start, size)
			}
			br = byteRange{start: start, end: size - 1}
		case startStr != "" && endStr != "":
			start, err1 := strconv.ParseInt(startStr, 10, 64)
			end, err2 := strconv.ParseInt(endStr, 10, 64)
			if err1 != nil || err2 != nil || start > end {
				return nil, fmt.Errorf("malformed range spec %q", spec)
			}
			if start >= size {
				return nil, fmt.Errorf("range start %d beyond size %d", start, size)
			}
			if end >= size {
				end = size - 1
			}
			br = byteRange{start: start, end: end}
		default:
			return nil, fmt.Errorf("empty range spec in %q", header)
		}
		ranges = append(ranges, br)
	}

	if len(ranges) == 0 {
		return nil, fmt.Errorf("no ranges in %q", header)
	}
	for i := range ranges {
		for j := i + 1; j < len(ranges); j++ {
			if ranges[i].start <= ranges[j].end && ranges[j].start <= ranges[i].end {
				return nil, fmt.Errorf("overlapping ranges in %q", header)
			}
		}
	}
	return ranges, nil
}
