// Package dlna implements the UPnP MediaServer:1 surface: SSDP discovery,
// ContentDirectory and ConnectionManager SOAP services, device/service
// description documents, and range-aware media streaming.
package dlna

import (
	"context"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/udlna/udlna/model"
)

const (
	deviceType            = "urn:schemas-upnp-org:device:MediaServer:1"
	contentDirectoryType  = "urn:schemas-upnp-org:service:ContentDirectory:1"
	connectionManagerType = "urn:schemas-upnp-org:service:ConnectionManager:1"
)

// Router serves all DLNA/UPnP HTTP endpoints and owns the SSDP engine.
type Router struct {
	lib        *model.Library
	serverName string
	serverUUID string
	httpPort   int

	mu      sync.Mutex
	ssdp    *ssdpEngine
	running bool
}

// New creates a DLNA router for the given library. serverUUID is the bare
// UUID string (no "uuid:" prefix).
func New(lib *model.Library, serverName, serverUUID string, httpPort int) *Router {
	return &Router{
		lib:        lib,
		serverName: serverName,
		serverUUID: serverUUID,
		httpPort:   httpPort,
	}
}

// Routes returns the chi router for the DLNA HTTP surface.
func (rt *Router) Routes() chi.Router {
	r := chi.NewRouter()

	// Device and service descriptions
	r.Get("/device.xml", rt.handleDeviceDescription)
	r.Get("/cds/scpd.xml", rt.handleCDSDescription)
	r.Get("/cms/scpd.xml", rt.handleCMSDescription)

	// SOAP control endpoints
	r.Post("/cds/control", rt.handleCDSControl)
	r.Post("/cms/control", rt.handleCMSControl)

	// Media streaming
	r.Get("/media/{id}", rt.handleMediaGet)
	r.Head("/media/{id}", rt.handleMediaHead)

	return r
}

// StartSSDP brings up SSDP advertisement and M-SEARCH handling. A fatal
// socket error (port 1900 in use) is returned to the caller; a host without
// usable interfaces only logs a warning and disables SSDP.
func (rt *Router) StartSSDP(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.running {
		return nil
	}
	engine, err := startSSDP(ctx, ssdpConfig{
		deviceUUID: rt.serverUUID,
		httpPort:   rt.httpPort,
		serverName: rt.serverName,
	})
	if err != nil {
		return err
	}
	rt.ssdp = engine
	rt.running = engine != nil
	return nil
}

// StopSSDP sends the byebye set and tears the engine down. Bounded to one
// second; safe to call when SSDP never started.
func (rt *Router) StopSSDP() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if !rt.running {
		return
	}
	rt.ssdp.stop()
	rt.ssdp = nil
	rt.running = false
}
