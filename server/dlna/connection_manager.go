package dlna

import (
	"io"
	"net/http"
	"strings"

	"github.com/udlna/udlna/log"
	"github.com/udlna/udlna/scanner"
)

// handleCMSControl dispatches ConnectionManager SOAP actions. The service is
// entirely static: no connection preparation, a single implicit connection 0.
func (rt *Router) handleCMSControl(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		log.Warn(r.Context(), "Failed to read CMS request body", err)
		writeSOAPFault(w, upnpErrInvalidAction, "Invalid Action")
		return
	}
	body := string(raw)

	action := soapAction(r, body)
	log.Debug(r.Context(), "ConnectionManager request", "action", action)

	switch action {
	case "GetProtocolInfo":
		writeSOAP(w, soapResponse("GetProtocolInfo", sourceProtocolInfo(), cmsNamespace))
	case "GetCurrentConnectionIDs":
		writeSOAP(w, soapResponse("GetCurrentConnectionIDs",
			"<ConnectionIDs>0</ConnectionIDs>", cmsNamespace))
	case "GetCurrentConnectionInfo":
		writeSOAP(w, soapResponse("GetCurrentConnectionInfo",
			"<RcsID>-1</RcsID>"+
				"<AVTransportID>-1</AVTransportID>"+
				"<ProtocolInfo></ProtocolInfo>"+
				"<PeerConnectionManager></PeerConnectionManager>"+
				"<PeerConnectionID>-1</PeerConnectionID>"+
				"<Direction>Output</Direction>"+
				"<Status>OK</Status>", cmsNamespace))
	default:
		log.Warn(r.Context(), "Unknown CMS action", "action", action)
		writeSOAPFault(w, upnpErrInvalidAction, "Invalid Action")
	}
}

// sourceProtocolInfo lists every MIME type the server can stream as a
// comma-separated http-get entry set. The Sink is always empty - this device
// only serves.
func sourceProtocolInfo() string {
	entries := make([]string, 0, len(scanner.SupportedMimes))
	for _, mime := range scanner.SupportedMimes {
		entries = append(entries, "http-get:*:"+mime+":*")
	}
	return "<Source>" + strings.Join(entries, ",") + "</Source><Sink></Sink>"
}
