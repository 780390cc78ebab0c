package dlna

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/djherbis/times"
	"github.com/google/uuid"

	"github.com/udlna/udlna/model/id"
)

const (
	cdsNamespace = "urn:schemas-upnp-org:service:ContentDirectory:1"
	cmsNamespace = "urn:schemas-upnp-org:service:ConnectionManager:1"

	// DLNA.ORG_FLAGS value: 8 significant hex digits + 24 zero padding.
	// The length is load-bearing - clients reject deviating lengths.
	dlnaFlags = "01700000000000000000000000000000"

	textXML = `text/xml; charset="utf-8"`
)

// Stable container names used for UUIDv5 derivation. Renaming any of these
// changes the container IDs clients may have cached.
const (
	containerVideos   = "Videos"
	containerMusic    = "Music"
	containerPhotos   = "Photos"
	containerAllMedia = "All Media"
)

// UPnP error codes surfaced by this server.
const (
	upnpErrInvalidAction = 401
	upnpErrInvalidArgs   = 402
	upnpErrNoSuchObject  = 701
)

// soapResponse wraps inner XML in a SOAP 1.1 envelope for the given action
// and service namespace.
func soapResponse(action, inner, namespace string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
  <s:Body>
    <u:%[1]sResponse xmlns:u="%[2]s">
      %[3]s
    </u:%[1]sResponse>
  </s:Body>
</s:Envelope>`, action, namespace, inner)
}

// writeSOAP writes a successful SOAP response (HTTP 200).
func writeSOAP(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", textXML)
	w.Header().Set("Ext", "")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// writeSOAPFault writes a UPnP SOAP fault (HTTP 500 per SOAP 1.1).
func writeSOAPFault(w http.ResponseWriter, code int, description string) {
	body := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
  <s:Body>
    <s:Fault>
      <faultcode>s:Client</faultcode>
      <faultstring>UPnPError</faultstring>
      <detail>
        <UPnPError xmlns="urn:schemas-upnp-org:control-1-0">
          <errorCode>%d</errorCode>
          <errorDescription>%s</errorDescription>
        </UPnPError>
      </detail>
    </s:Fault>
  </s:Body>
</s:Envelope>`, code, description)
	w.Header().Set("Content-Type", textXML)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(body))
}

// soapAction extracts the action name from the SOAPAction header
// ("<namespace>#<Action>", usually quoted). When the header is absent or
// empty it falls back to the first <u:ActionName opener in the body - some
// clients omit the header entirely.
func soapAction(r *http.Request, body string) string {
	header := strings.Trim(r.Header.Get("SOAPAction"), `"`)
	if idx := strings.LastIndex(header, "#"); idx >= 0 {
		header = header[idx+1:]
	}
	if header != "" {
		return header
	}
	pos := strings.Index(body, "<u:")
	if pos < 0 {
		return ""
	}
	rest := body[pos+3:]
	end := strings.IndexAny(rest, " >/")
	if end < 0 {
		end = len(rest)
	}
	return rest[:end]
}

// extractParam finds <name>…</name> in the SOAP body by literal tag match.
// SOAP bodies here are short and well-known; a full XML parse buys nothing.
func extractParam(body, name string) (string, bool) {
	openTag := "<" + name + ">"
	closeTag := "</" + name + ">"
	start := strings.Index(body, openTag)
	if start < 0 {
		return "", false
	}
	start += len(openTag)
	end := strings.Index(body[start:], closeTag)
	if end < 0 {
		return "", false
	}
	return body[start : start+end], true
}

// paginate applies UPnP Browse pagination: a start index past the end yields
// an empty slice, and requestedCount == 0 means "all remaining".
func paginate[T any](items []T, startingIndex, requestedCount uint32) []T {
	start := int(startingIndex)
	if start > len(items) {
		start = len(items)
	}
	rest := items[start:]
	if requestedCount == 0 {
		return rest
	}
	count := int(requestedCount)
	if count > len(rest) {
		count = len(rest)
	}
	return rest[:count]
}

// protocolInfo builds the full protocolInfo attribute for a <res> element.
// Without a profile the DLNA.ORG_PN segment is dropped entirely - a wildcard
// profile is worse than none on picky renderers.
func protocolInfo(mime, dlnaProfile string) string {
	if dlnaProfile != "" {
		return fmt.Sprintf("http-get:*:%s:DLNA.ORG_PN=%s;DLNA.ORG_OP=01;DLNA.ORG_CI=0;DLNA.ORG_FLAGS=%s",
			mime, dlnaProfile, dlnaFlags)
	}
	return fmt.Sprintf("http-get:*:%s:DLNA.ORG_OP=01;DLNA.ORG_CI=0;DLNA.ORG_FLAGS=%s", mime, dlnaFlags)
}

// containerUUID derives the stable UUID for a virtual container name.
func containerUUID(name string) uuid.UUID {
	return id.ForContainer(name)
}

// dcDate returns the ISO 8601 date (YYYY-MM-DD) of the file's mtime.
// Samsung renderers require dc:date; the epoch fallback beats omission.
func dcDate(path string) string {
	t, err := times.Stat(path)
	if err != nil {
		return "1970-01-01"
	}
	return t.ModTime().UTC().Format("2006-01-02")
}

// resURL builds the streaming URL for an item from the request Host header.
// Using the header verbatim is the portable choice for dual-stack binds.
func resURL(r *http.Request, itemID uuid.UUID) string {
	host := r.Host
	if host == "" {
		host = "localhost:8200"
	}
	return fmt.Sprintf("http://%s/media/%s", host, itemID)
}

// xmlEscape escapes the five XML special characters for text nodes and
// attribute values.
func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
