// Package conf resolves the server configuration from CLI flags, an optional
// TOML config file, and built-in defaults (in that order of precedence).
package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/udlna/udlna/consts"
	"github.com/udlna/udlna/log"
)

// ServerConfig is the fully resolved configuration consumed by the server.
type ServerConfig struct {
	Port      int
	Name      string
	Paths     []string
	Localhost bool
}

// Server holds the resolved configuration after Load. Read-only afterwards.
var Server = &ServerConfig{}

// SetDefaults registers the built-in defaults with viper. Flag bindings
// (registered by the cmd package) take precedence over file values, which
// take precedence over these.
func SetDefaults() {
	viper.SetDefault("port", consts.DefaultPort)
	viper.SetDefault("name", defaultName())
	viper.SetDefault("localhost", false)
}

// LoadFile reads the optional TOML config file. An explicit path overrides
// the default search (./udlna.toml, then the user config dir's
// udlna/config.toml). A missing file is not an error; a malformed file logs
// a warning and is ignored. Unknown keys are ignored by construction - only
// the known keys are ever read back out of viper.
func LoadFile(explicit string) {
	path := findConfigFile(explicit)
	if path == "" {
		return
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("toml")
	if err := viper.ReadInConfig(); err != nil {
		log.Warn("Failed to parse config file", err, "path", path)
		return
	}
	log.Debug("Loaded config file", "path", path)
}

// Load finalizes conf.Server from viper plus the positional media paths.
func Load(paths []string) *ServerConfig {
	Server = &ServerConfig{
		Port:      viper.GetInt("port"),
		Name:      viper.GetString("name"),
		Paths:     paths,
		Localhost: viper.GetBool("localhost"),
	}
	return Server
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	cwd := consts.AppName + ".toml"
	if _, err := os.Stat(cwd); err == nil {
		return cwd
	}
	if dir, err := os.UserConfigDir(); err == nil {
		xdg := filepath.Join(dir, consts.AppName, "config.toml")
		if _, err := os.Stat(xdg); err == nil {
			return xdg
		}
	}
	return ""
}

func defaultName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return consts.AppName
	}
	return fmt.Sprintf("%s@%s", consts.AppName, host)
}
