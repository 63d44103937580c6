package game

// Entry is one seat holder or waitlisted actor.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session is the active game of a single group.
type Session struct {
	Location   string
	Day        string
	Time       string
	Capacity   int
	MinMembers int
	CreatedBy  string
	Players    []Entry
	Waitlist   []Entry
	Label      string
}

// Snapshot is a detached copy of a group's session, suitable for persistence.
type Snapshot struct {
	Group      string  `json:"group"`
	Location   string  `json:"location"`
	Day        string  `json:"day"`
	Time       string  `json:"time"`
	Capacity   int     `json:"capacity"`
	MinMembers int     `json:"min_members"`
	CreatedBy  string  `json:"created_by"`
	Players    []Entry `json:"players"`
	Waitlist   []Entry `json:"waitlist"`
	Label      string  `json:"label"`
}

type JoinOutcome int

const (
	Admitted JoinOutcome = iota
	Waitlisted
	AlreadyPlayer
	AlreadyWaitlisted
)

func (o JoinOutcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case Waitlisted:
		return "waitlisted"
	case AlreadyPlayer:
		return "already_player"
	case AlreadyWaitlisted:
		return "already_waitlisted"
	}
	return "unknown"
}

// LeaveResult reports what a leave call removed and whom it promoted.
type LeaveResult struct {
	WasPlayer     bool
	WasWaitlisted bool
	Promoted      *Entry
}

func (s *Session) playerIndex(id string) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) waitlistIndex(id string) int {
	for i, p := range s.Waitlist {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) snapshot(group string) Snapshot {
	return Snapshot{
		Group:      group,
		Location:   s.Location,
		Day:        s.Day,
		Time:       s.Time,
		Capacity:   s.Capacity,
		MinMembers: s.MinMembers,
		CreatedBy:  s.CreatedBy,
		Players:    append([]Entry(nil), s.Players...),
		Waitlist:   append([]Entry(nil), s.Waitlist...),
		Label:      s.Label,
	}
}

func fromSnapshot(snap Snapshot) *Session {
	return &Session{
		Location:   snap.Location,
		Day:        snap.Day,
		Time:       snap.Time,
		Capacity:   snap.Capacity,
		MinMembers: snap.MinMembers,
		CreatedBy:  snap.CreatedBy,
		Players:    append([]Entry(nil), snap.Players...),
		Waitlist:   append([]Entry(nil), snap.Waitlist...),
		Label:      snap.Label,
	}
}
