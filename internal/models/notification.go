package models

// Notification is a rendered backup report.
type Notification struct {
	Subject string
	Body    string
	Failed  bool
}
