package instance

import (
	"os"

	"github.com/campusbite/orderflow/pkg/env"
)

// GetID identifies this process in logs: ORDERFLOW_INSTANCE_ID, then the
// platform dyno name, then the hostname.
func GetID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return env.First(host, "ORDERFLOW_INSTANCE_ID", "DYNO")
}
