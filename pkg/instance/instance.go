package instance

import "github.com/angelmondragon/catalogo-presupuesto/pkg/env"

const defaultID = "instance-0"

// GetID names this process for lock ownership and logs: WORKER_ID, then the platform's
// DYNO or HOSTNAME.
func GetID() string {
	return env.First(defaultID, "WORKER_ID", "DYNO", "HOSTNAME")
}
