package instance

import "os"

const defaultID = "worker-0"

// GetID returns the process identifier used to tag leases and log lines.
// VENTECH_WORKER_ID wins, then the hostname.
func GetID() string {
	if id := os.Getenv("VENTECH_WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return defaultID
}
