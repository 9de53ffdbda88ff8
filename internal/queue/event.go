// Package queue defines the activity events exchanged over the message
// broker together with the publisher and the consumer that records them.
package queue

// Activity event types.  The routing key on the broker is the queue
// name; the type travels inside the payload.
const (
	SessionCreated   = "session.created"
	SessionUpdated   = "session.updated"
	SessionDeleted   = "session.deleted"
	AttendanceJoined = "attendance.joined"
	AttendanceLeft   = "attendance.left"
)

// ActivityEvent is published after a session or attendance change has
// been saved.  It never carries codes; consumers get enough context to
// log or notify without reading the store.
type ActivityEvent struct {
	Type         string `json:"type"`
	SessionID    string `json:"session_id"`
	SessionTitle string `json:"session_title,omitempty"`
	SessionType  string `json:"session_type,omitempty"`
	AttendanceID string `json:"attendance_id,omitempty"`
	PlayerName   string `json:"player_name,omitempty"`
	RemovedBy    string `json:"removed_by,omitempty"` // "attendee" or "organizer" for attendance.left
	Attendees    int    `json:"attendees"`
	Capacity     int    `json:"capacity,omitempty"`
	OccurredAt   string `json:"occurred_at"`
}
