package model

import "time"

// Attendance is one player's registration for a session.  The
// attendance code is returned only when joining and lets the player
// remove themselves later.
type Attendance struct {
	ID             string    `json:"id"`                       // uuid
	SessionID      string    `json:"sessionId"`                // owning session
	PlayerName     string    `json:"playerName"`               // required
	Email          string    `json:"email,omitempty"`          // optional contact
	AttendanceCode string    `json:"attendanceCode,omitempty"` // self-removal secret
	JoinedAt       time.Time `json:"joinedAt"`                 // UTC
}

// Public returns a copy of the attendance without its secret code.
func (a Attendance) Public() Attendance {
	a.AttendanceCode = ""
	return a
}

// Snapshot is the whole data set as the store hands it over: every
// session and every attendance.  Mutations produce a new snapshot that is
// saved back in one call.
type Snapshot struct {
	Sessions    []Session    `json:"sessions"`
	Attendances []Attendance `json:"attendances"`
}

// Clone returns a deep copy so that callers can mutate the result
// without touching the original slices.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Sessions:    make([]Session, len(s.Sessions)),
		Attendances: make([]Attendance, len(s.Attendances)),
	}
	copy(out.Sessions, s.Sessions)
	copy(out.Attendances, s.Attendances)
	return out
}
