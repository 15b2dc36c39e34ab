package model

import "time"

// Notification is a prepared alert. Title and Body are what a desktop
// notifier shows; the remaining fields travel with network notifiers.
type Notification struct {
	Title     string        `json:"title"`
	Body      string        `json:"body"`
	PID       int           `json:"pid"`
	Name      string        `json:"name"`
	Average   float64       `json:"average"`
	Threshold float64       `json:"threshold"`
	Window    time.Duration `json:"window_ns"`
	At        time.Time     `json:"at"`
}
