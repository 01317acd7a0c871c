package db

// System actor UUIDs recorded as created_by on automated SLA writes.
// These correspond to system users created in the database
const (
	// SystemUserSLAWorker represents the scheduled SLA evaluation worker
	SystemUserSLAWorker = "00000000-0000-0000-0000-000000000101"

	// SystemUserSLAAPI represents any other caller recording an evaluation
	SystemUserSLAAPI = "00000000-0000-0000-0000-000000000102"
)

// GetSystemUserBySource returns the system actor for an evaluation source
func GetSystemUserBySource(source string) string {
	switch source {
	case "worker", "scheduler":
		return SystemUserSLAWorker
	default:
		return SystemUserSLAAPI
	}
}
