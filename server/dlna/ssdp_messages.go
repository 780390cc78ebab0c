package dlna

import (
	"fmt"

	"github.com/udlna/udlna/consts"
)

// advertisement is one (NT, USN) pair of the MediaServer advertisement set.
type advertisement struct {
	nt  string
	usn string
}

// usnSet returns the five advertisement pairs for a MediaServer:1 exposing
// ContentDirectory and ConnectionManager. deviceUUID is the bare UUID string.
func usnSet(deviceUUID string) []advertisement {
	u := "uuid:" + deviceUUID
	return []advertisement{
		{u, u},
		{"upnp:rootdevice", u + "::upnp:rootdevice"},
		{deviceType, u + "::" + deviceType},
		{contentDirectoryType, u + "::" + contentDirectoryType},
		{connectionManagerType, u + "::" + connectionManagerType},
	}
}

// notifyAlive builds a NOTIFY ssdp:alive packet. CRLF line endings are
// mandatory - bare \n fails silently on strict renderers.
func notifyAlive(location, nt, usn string) string {
	return fmt.Sprintf("NOTIFY * HTTP/1.1\r\n"+
		"HOST: 239.255.255.250:1900\r\n"+
		"CACHE-CONTROL: max-age=900\r\n"+
		"LOCATION: %s\r\n"+
		"NT: %s\r\n"+
		"NTS: ssdp:alive\r\n"+
		"SERVER: %s\r\n"+
		"USN: %s\r\n"+
		"\r\n", location, nt, consts.ServerToken(), usn)
}

// notifyByeBye builds a NOTIFY ssdp:byebye packet. byebye must not carry
// CACHE-CONTROL, LOCATION, or SERVER headers.
func notifyByeBye(nt, usn string) string {
	return fmt.Sprintf("NOTIFY * HTTP/1.1\r\n"+
		"HOST: 239.255.255.250:1900\r\n"+
		"NT: %s\r\n"+
		"NTS: ssdp:byebye\r\n"+
		"USN: %s\r\n"+
		"\r\n", nt, usn)
}

// msearchResponse builds the unicast 200 OK answer to an M-SEARCH; st echoes
// the searched target.
func msearchResponse(location, st, usn string) string {
	return fmt.Sprintf("HTTP/1.1 200 OK\r\n"+
		"CACHE-CONTROL: max-age=900\r\n"+
		"EXT:\r\n"+
		"LOCATION: %s\r\n"+
		"SERVER: %s\r\n"+
		"ST: %s\r\n"+
		"USN: %s\r\n"+
		"Content-Length: 0\r\n"+
		"\r\n", location, consts.ServerToken(), st, usn)
}
