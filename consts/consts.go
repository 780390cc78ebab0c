package consts

import (
	"fmt"
	"runtime"
)

const (
	AppName = "udlna"
	Version = "0.1.0"

	DefaultPort = 8200

	// Env var controlling log verbosity (trace, debug, info, warn, error).
	LogLevelEnvVar = "UDLNA_LOGLEVEL"
)

// ServerToken returns the SERVER header value used on all SSDP messages,
// e.g. "Linux/1.0 UPnP/1.0 udlna/0.1.0".
func ServerToken() string {
	return fmt.Sprintf("%s/1.0 UPnP/1.0 %s/%s", platformName(), AppName, Version)
}

func platformName() string {
	switch runtime.GOOS {
	case "linux":
		return "Linux"
	case "darwin":
		return "Darwin"
	case "windows":
		return "Windows"
	default:
		return runtime.GOOS
	}
}
