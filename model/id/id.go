// Package id derives the stable UUIDv5 identifiers used throughout the
// server: media item IDs, virtual container IDs, and the server UDN.
package id

import (
	"sync"

	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"

	"github.com/udlna/udlna/log"
)

// machineNamespace is uuid5(DNS namespace, machine id), computed once on
// first use and cached for the process lifetime.
var machineNamespace = sync.OnceValue(func() uuid.UUID {
	mid, err := machineid.ID()
	if err != nil {
		log.Warn("Could not read machine id - item IDs will not be machine-unique", err)
		mid = "unknown"
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(mid))
})

// MachineNamespace returns the machine-specific UUID namespace.
func MachineNamespace() uuid.UUID {
	return machineNamespace()
}

// ForPath returns the stable item ID for a canonical file path:
// uuid5(machine namespace, path bytes). Deterministic in (machine, path).
func ForPath(canonicalPath string) uuid.UUID {
	return uuid.NewSHA1(MachineNamespace(), []byte(canonicalPath))
}

// ForContainer returns the stable ID for a virtual container name
// ("Videos", "Music", "Photos", "All Media").
func ForContainer(name string) uuid.UUID {
	return uuid.NewSHA1(MachineNamespace(), []byte(name))
}

// ForServer derives the server UDN from hostname and friendly name:
// uuid5(DNS namespace, hostname + NUL + name). Stable across restarts as
// long as both inputs match.
func ForServer(hostname, friendlyName string) uuid.UUID {
	seed := hostname + "\x00" + friendlyName
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(seed))
}
