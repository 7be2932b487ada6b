package models

// SSH address selection.
const (
	SSHAddressPublic  = "public"
	SSHAddressPrivate = "private"
)

// SSHConfig holds settings for the SSH executor.
type SSHConfig struct {
	Username       string
	Port           int
	KeyPath        string
	PrivateKey     []byte            // loaded from KeyPath
	KnownHostsPath string            // optional; host keys are not verified without it
	Address        string            // "public" (default) or "private"
	Hosts          map[string]string // instance id -> host override
}
