package model

import "time"

// SessionType controls whether a session shows up in the public listing.
// Private sessions are only reachable through their id or private code.
type SessionType string

const (
	SessionPublic  SessionType = "public"
	SessionPrivate SessionType = "private"
)

// Valid reports whether t is one of the known session types.
func (t SessionType) Valid() bool {
	return t == SessionPublic || t == SessionPrivate
}

// MatchType describes the format of play.
type MatchType string

const (
	MatchSingles    MatchType = "singles"
	MatchDoubles    MatchType = "doubles"
	MatchTournament MatchType = "tournament"
)

// Valid reports whether m is one of the known match types.
func (m MatchType) Valid() bool {
	switch m {
	case MatchSingles, MatchDoubles, MatchTournament:
		return true
	}
	return false
}

// SkillLevel is the audience a session is aimed at.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillAll          SkillLevel = "all"
)

// Valid reports whether s is one of the known skill levels.
func (s SkillLevel) Valid() bool {
	switch s {
	case SkillBeginner, SkillIntermediate, SkillAdvanced, SkillAll:
		return true
	}
	return false
}

// Session represents a planned match that players can join.  The
// management code is handed to the creator once and grants edit, delete
// and attendee removal rights.  PrivateCode is only set for private
// sessions and doubles as a shareable lookup key.
//
// Fields:
//  ID              – uuid assigned on creation.
//  Title           – short name of the session.
//  Description     – free text.
//  Date, Time      – caller supplied strings, not parsed.
//  MaxParticipants – capacity enforced when joining.
//  SessionType     – public or private; fixed after creation.
//  MatchType       – singles, doubles or tournament.
//  SkillLevel      – beginner, intermediate, advanced or all.
//  ManagementCode  – secret for the organiser.
//  PrivateCode     – secret lookup code for private sessions.
//  CreatedAt       – creation timestamp (UTC).
type Session struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Date            string      `json:"date"`
	Time            string      `json:"time"`
	MaxParticipants int         `json:"maxParticipants"`
	SessionType     SessionType `json:"sessionType"`
	MatchType       MatchType   `json:"matchType"`
	SkillLevel      SkillLevel  `json:"skillLevel"`
	ManagementCode  string      `json:"managementCode,omitempty"`
	PrivateCode     string      `json:"privateCode,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// Public returns a copy of the session without its secrets.
func (s Session) Public() Session {
	s.ManagementCode = ""
	s.PrivateCode = ""
	return s
}

// SessionView is a session together with its current attendees.  It is
// what the detail and management screens render.
type SessionView struct {
	Session
	Attendees []Attendance `json:"attendees"`
}
