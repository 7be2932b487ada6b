package models

import "time"

// BackupStatus is the outcome of one instance in a run.
type BackupStatus string

// Backup statuses.
const (
	StatusSuccess BackupStatus = "success"
	StatusFailed  BackupStatus = "failed"
	StatusError   BackupStatus = "error"
	StatusSkipped BackupStatus = "skipped"
)

// OutputTailLength is how much of a failed command's output is kept.
const OutputTailLength = 1000

// BackupResult holds the result of backing up a single instance.
// Use the constructor functions; a result is not modified after creation.
type BackupResult struct {
	InstanceID string       `json:"instance_id"`
	Status     BackupStatus `json:"status"`

	// Success.
	BackupFile string `json:"backup_file,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`

	// Failed or error.
	Error  string `json:"error,omitempty"`
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`

	// Skipped.
	Reason string `json:"reason,omitempty"`
}

// SuccessResult records a completed backup.
func SuccessResult(instanceID, backupFile, timestamp string) BackupResult {
	return BackupResult{
		InstanceID: instanceID,
		Status:     StatusSuccess,
		BackupFile: backupFile,
		Timestamp:  timestamp,
	}
}

// FailedResult records a remote command that finished without success.
func FailedResult(instanceID, commandStatus, stdout, stderr string) BackupResult {
	return BackupResult{
		InstanceID: instanceID,
		Status:     StatusFailed,
		Error:      "Command status: " + commandStatus,
		Stdout:     Tail(stdout, OutputTailLength),
		Stderr:     Tail(stderr, OutputTailLength),
	}
}

// ErrorResult records an error raised while processing an instance.
func ErrorResult(instanceID string, err error) BackupResult {
	return BackupResult{
		InstanceID: instanceID,
		Status:     StatusError,
		Error:      err.Error(),
	}
}

// SkippedResult records an instance that was not backed up.
func SkippedResult(instanceID, reason string) BackupResult {
	return BackupResult{
		InstanceID: instanceID,
		Status:     StatusSkipped,
		Reason:     reason,
	}
}

// Failed reports whether the result counts as a failure in reports.
func (r BackupResult) Failed() bool {
	return r.Status == StatusFailed || r.Status == StatusError
}

// Tail returns the last n characters of s.
func Tail(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

// RunStatus is the persisted summary of the last run.
type RunStatus struct {
	RunID     string         `json:"run_id"`
	Timestamp time.Time      `json:"timestamp"`
	Results   []BackupResult `json:"results"`
}
