package models

// InstanceStateRunning is the only state in which a backup is attempted.
const InstanceStateRunning = "running"

// Instance is the subset of instance metadata the orchestrator needs.
type Instance struct {
	ID        string
	State     string
	PublicIP  string
	PrivateIP string
}

// Running reports whether the instance can run a backup.
func (i Instance) Running() bool {
	return i.State == InstanceStateRunning
}
