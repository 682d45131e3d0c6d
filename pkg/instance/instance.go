package instance

import (
	"os"

	"github.com/angelmondragon/storefront-edge/pkg/env"
)

// GetID identifies this edge process in logs. Platform-assigned names win over
// the hostname.
func GetID() string {
	if id := env.Get("STOREFRONT_INSTANCE_ID", env.Get("DYNO", "")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "edge-0"
}
