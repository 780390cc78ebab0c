package dlna

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/udlna/udlna/log"
	"github.com/udlna/udlna/model"
)

// handleCDSControl dispatches ContentDirectory SOAP actions.
func (rt *Router) handleCDSControl(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		log.Warn(r.Context(), "Failed to read CDS request body", err)
		writeSOAPFault(w, upnpErrInvalidArgs, "InvalidArgs")
		return
	}
	body := string(raw)

	action := soapAction(r, body)
	log.Debug(r.Context(), "ContentDirectory request", "action", action)

	switch action {
	case "Browse":
		rt.handleBrowse(w, r, body)
	case "GetSearchCapabilities":
		writeSOAP(w, soapResponse("GetSearchCapabilities", "<SearchCaps></SearchCaps>", cdsNamespace))
	case "GetSortCapabilities":
		writeSOAP(w, soapResponse("GetSortCapabilities", "<SortCaps></SortCaps>", cdsNamespace))
	case "GetSystemUpdateID":
		// Element name is Id (capital I, lowercase d) per the CDS spec.
		writeSOAP(w, soapResponse("GetSystemUpdateID", "<Id>1</Id>", cdsNamespace))
	default:
		log.Warn(r.Context(), "Unknown CDS action", "action", action)
		writeSOAPFault(w, upnpErrInvalidArgs, "InvalidArgs")
	}
}

// browseContainer describes one of the four virtual containers for a single
// Browse evaluation.
type browseContainer struct {
	id    string
	title string
	items []model.MediaItem
}

// handleBrowse implements BrowseDirectChildren and BrowseMetadata over the
// fixed hierarchy: root "0" holding Videos, Music, Photos, and All Media.
func (rt *Router) handleBrowse(w http.ResponseWriter, r *http.Request, body string) {
	objectID, ok := extractParam(body, "ObjectID")
	if !ok {
		writeSOAPFault(w, upnpErrInvalidArgs, "InvalidArgs")
		return
	}
	browseFlag, ok := extractParam(body, "BrowseFlag")
	if !ok {
		writeSOAPFault(w, upnpErrInvalidArgs, "InvalidArgs")
		return
	}
	startingIndex := parseUint32Param(body, "StartingIndex")
	requestedCount := parseUint32Param(body, "RequestedCount")

	// One coherent snapshot for the whole evaluation; no lock is held while
	// the response is written.
	items := rt.lib.Items()
	containers := []browseContainer{
		{containerUUID(containerVideos).String(), containerVideos, filterKind(items, model.KindVideo)},
		{containerUUID(containerMusic).String(), containerMusic, filterKind(items, model.KindAudio)},
		{containerUUID(containerPhotos).String(), containerPhotos, filterKind(items, model.KindImage)},
		{containerUUID(containerAllMedia).String(), containerAllMedia, items},
	}

	switch browseFlag {
	case "BrowseDirectChildren":
		rt.browseDirectChildren(w, r, objectID, containers, startingIndex, requestedCount)
	case "BrowseMetadata":
		rt.browseMetadata(w, r, objectID, containers, items)
	default:
		log.Warn(r.Context(), "Unknown BrowseFlag", "flag", browseFlag)
		writeSOAPFault(w, upnpErrInvalidArgs, "InvalidArgs")
	}
}

func (rt *Router) browseDirectChildren(w http.ResponseWriter, r *http.Request, objectID string,
	containers []browseContainer, startingIndex, requestedCount uint32) {
	if objectID == "0" {
		total := len(containers)
		paged := paginate(containers, startingIndex, requestedCount)
		var sb strings.Builder
		for _, c := range paged {
			sb.WriteString(containerElement(c.id, "0", c.title, len(c.items)))
		}
		writeBrowseResult(w, sb.String(), len(paged), total)
		return
	}

	for _, c := range containers {
		if c.id == objectID {
			total := len(c.items)
			paged := paginate(c.items, startingIndex, requestedCount)
			var sb strings.Builder
			for i := range paged {
				sb.WriteString(itemElement(&paged[i], c.id, r))
			}
			writeBrowseResult(w, sb.String(), len(paged), total)
			return
		}
	}

	log.Debug(r.Context(), "Browse unknown ObjectID", "objectID", objectID)
	writeSOAPFault(w, upnpErrNoSuchObject, "No such object")
}

func (rt *Router) browseMetadata(w http.ResponseWriter, r *http.Request, objectID string,
	containers []browseContainer, items []model.MediaItem) {
	if objectID == "0" {
		writeBrowseResult(w, containerElement("0", "-1", "Root", len(containers)), 1, 1)
		return
	}
	for _, c := range containers {
		if c.id == objectID {
			writeBrowseResult(w, containerElement(c.id, "0", c.title, len(c.items)), 1, 1)
			return
		}
	}
	for i := range items {
		if items[i].ID.String() == objectID {
			parent := parentContainerID(items[i].Kind)
			writeBrowseResult(w, itemElement(&items[i], parent, r), 1, 1)
			return
		}
	}
	log.Debug(r.Context(), "BrowseMetadata unknown ObjectID", "objectID", objectID)
	writeSOAPFault(w, upnpErrNoSuchObject, "No such object")
}

// writeBrowseResult wraps DIDL elements in the DIDL-Lite root, escapes the
// document into <Result>, and emits the Browse SOAP response.
func writeBrowseResult(w http.ResponseWriter, elements string, numberReturned, totalMatches int) {
	didl := didlLiteWrap(elements)
	inner := fmt.Sprintf(
		"<Result>%s</Result><NumberReturned>%d</NumberReturned><TotalMatches>%d</TotalMatches><UpdateID>1</UpdateID>",
		xmlEscape(didl), numberReturned, totalMatches)
	writeSOAP(w, soapResponse("Browse", inner, cdsNamespace))
}

// didlLiteWrap wraps inner elements in the DIDL-Lite root. All four
// namespaces are mandatory - some renderers fail silently without xmlns:dlna.
func didlLiteWrap(inner string) string {
	return `<DIDL-Lite xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/"` +
		` xmlns:dc="http://purl.org/dc/elements/1.1/"` +
		` xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/"` +
		` xmlns:dlna="urn:schemas-dlna-org:metadata-1-0/">` + inner + `</DIDL-Lite>`
}

func containerElement(id, parentID, title string, childCount int) string {
	return fmt.Sprintf(`<container id="%s" parentID="%s" restricted="1" childCount="%d">`+
		`<dc:title>%s</dc:title><upnp:class>object.container.storageFolder</upnp:class></container>`,
		id, parentID, childCount, xmlEscape(title))
}

// itemElement renders one DIDL-Lite <item>. The title is the file stem (no
// extension); dc:date is always present; optional res attributes appear only
// when the scanner extracted them.
func itemElement(item *model.MediaItem, parentID string, r *http.Request) string {
	stem := strings.TrimSuffix(filepath.Base(item.Path), filepath.Ext(item.Path))

	var attrs strings.Builder
	if item.Meta.Duration != "" {
		fmt.Fprintf(&attrs, ` duration="%s"`, item.Meta.Duration)
	}
	if item.Meta.Resolution != "" {
		fmt.Fprintf(&attrs, ` resolution="%s"`, item.Meta.Resolution)
	}
	if item.Meta.Bitrate != 0 {
		fmt.Fprintf(&attrs, ` bitrate="%d"`, item.Meta.Bitrate)
	}

	return fmt.Sprintf(`<item id="%s" parentID="%s" restricted="1">`+
		`<dc:title>%s</dc:title><upnp:class>%s</upnp:class><dc:date>%s</dc:date>`+
		`<res protocolInfo="%s" size="%d"%s>%s</res></item>`,
		item.ID, parentID,
		xmlEscape(stem), upnpClass(item.Kind), dcDate(item.Path),
		protocolInfo(item.Mime, item.Meta.DLNAProfile), item.FileSize, attrs.String(),
		xmlEscape(resURL(r, item.ID)))
}

func upnpClass(kind model.MediaKind) string {
	switch kind {
	case model.KindVideo:
		return "object.item.videoItem"
	case model.KindAudio:
		return "object.item.audioItem.musicTrack"
	case model.KindImage:
		return "object.item.imageItem.photo"
	}
	return "object.item"
}

// parentContainerID maps an item kind to its container UUID. All Media is
// the fallback for kinds outside the three categories.
func parentContainerID(kind model.MediaKind) string {
	switch kind {
	case model.KindVideo:
		return containerUUID(containerVideos).String()
	case model.KindAudio:
		return containerUUID(containerMusic).String()
	case model.KindImage:
		return containerUUID(containerPhotos).String()
	}
	return containerUUID(containerAllMedia).String()
}

func filterKind(items []model.MediaItem, kind model.MediaKind) []model.MediaItem {
	var out []model.MediaItem
	for i := range items {
		if items[i].Kind == kind {
			out = append(out, items[i])
		}
	}
	return out
}

// parseUint32Param reads an optional numeric Browse parameter; absent or
// unparsable values default to 0 (RequestedCount 0 means "all remaining").
func parseUint32Param(body, name string) uint32 {
	raw, ok := extractParam(body, name)
	if !ok {
		return 0
	}
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}
