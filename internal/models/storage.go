package models

import "time"

// ObjectInfo describes a stored backup archive.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// PruneResult holds the result of a retention pass.
type PruneResult struct {
	Scanned     int
	Deleted     int
	DeletedKeys []string
	Cutoff      time.Time
}
