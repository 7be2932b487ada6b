package models

import "time"

// Remote command statuses as reported by the execution backend.
const (
	CommandPending    = "Pending"
	CommandInProgress = "InProgress"
	CommandSuccess    = "Success"
	CommandFailed     = "Failed"
	CommandCancelled  = "Cancelled"
	CommandTimedOut   = "TimedOut"
)

// CommandRequest describes a script to run on an instance.
type CommandRequest struct {
	Instance Instance
	Script   string
	Comment  string
	Timeout  time.Duration
}

// CommandInvocation is a snapshot of a dispatched command.
type CommandInvocation struct {
	CommandID  string
	InstanceID string
	Status     string
	Stdout     string
	Stderr     string
}

// Terminal reports whether the invocation has finished.
func (c CommandInvocation) Terminal() bool {
	switch c.Status {
	case CommandSuccess, CommandFailed, CommandCancelled, CommandTimedOut:
		return true
	}
	return false
}
