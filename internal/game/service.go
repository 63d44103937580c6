package game

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrMalformedSpec       = errors.New("usage: bb game <where> <day> <time> <max> [minMembers]")
	ErrLocationNotApproved = errors.New("this location is not approved yet")
	ErrNoActiveSession     = errors.New("no game active")
)

type LocationChecker interface {
	IsApprovedLocation(group, location string) bool
}

type MembershipChecker interface {
	IsMemberOfLocation(group, actor, location string) bool
}

// Store persists session changes. It is called while the group is locked.
type Store interface {
	SaveSession(ctx context.Context, snap Snapshot) error
	DeleteSession(ctx context.Context, group string) error
}

type groupState struct {
	mu      sync.Mutex
	session *Session
}

type Service struct {
	locations LocationChecker
	members   MembershipChecker
	store     Store

	mu     sync.Mutex
	groups map[string]*groupState
}

// NewService creates an engine. store may be nil.
func NewService(locations LocationChecker, members MembershipChecker, store Store) *Service {
	return &Service{
		locations: locations,
		members:   members,
		store:     store,
		groups:    make(map[string]*groupState),
	}
}

// lock returns the group's state with its mutex held.
func (s *Service) lock(group string) *groupState {
	s.mu.Lock()
	g, ok := s.groups[group]
	if !ok {
		g = &groupState{}
		s.groups[group] = g
	}
	s.mu.Unlock()
	g.mu.Lock()
	return g
}

// Label renders the creation label of a session, e.g. "TUE @ 6pm".
func Label(day, time string) string {
	return fmt.Sprintf("%s @ %s", strings.ToUpper(day), time)
}

func parseSpec(raw string) (*Session, error) {
	fields := strings.Fields(raw)
	if len(fields) < 4 {
		return nil, ErrMalformedSpec
	}
	capacity, err := strconv.Atoi(fields[3])
	if err != nil || capacity < 1 {
		return nil, ErrMalformedSpec
	}
	minMembers := 0
	if len(fields) > 4 {
		if n, err := strconv.Atoi(fields[4]); err == nil && n > 0 {
			minMembers = n
		}
	}
	return &Session{
		Location:   fields[0],
		Day:        fields[1],
		Time:       fields[2],
		Capacity:   capacity,
		MinMembers: minMembers,
		Label:      Label(fields[1], fields[2]),
	}, nil
}

// Create opens a session for group, replacing any existing one, and seats
// the creator. It returns the session label.
func (s *Service) Create(ctx context.Context, group, actor, displayName, rawSpec string) (string, error) {
	sess, err := parseSpec(rawSpec)
	if err != nil {
		return "", err
	}
	if !s.locations.IsApprovedLocation(group, sess.Location) {
		return "", ErrLocationNotApproved
	}
	sess.CreatedBy = actor
	sess.Players = []Entry{{ID: actor, Name: nameOrID(displayName, actor)}}

	g := s.lock(group)
	defer g.mu.Unlock()
	g.session = sess
	s.save(ctx, group, sess)

	log.Info().Str("module", "game").Str("group", group).Str("location", sess.Location).
		Int("capacity", sess.Capacity).Int("min_members", sess.MinMembers).Msg("session created")
	return sess.Label, nil
}

// List renders the roster of the group's session.
func (s *Service) List(group string) (string, error) {
	g := s.lock(group)
	defer g.mu.Unlock()
	if g.session == nil {
		return "", ErrNoActiveSession
	}
	return render(g.session), nil
}

func render(sess *Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📍 *Where:* %s\n", sess.Location)
	fmt.Fprintf(&b, "📅 *When:* %s %s\n", sess.Day, sess.Time)
	fmt.Fprintf(&b, "👥 *Players (%d/%d):*", len(sess.Players), sess.Capacity)
	for i, p := range sess.Players {
		fmt.Fprintf(&b, "\n%d. %s", i+1, p.Name)
	}
	if len(sess.Waitlist) > 0 {
		b.WriteString("\n⏳ *Waitlist:*")
		for i, p := range sess.Waitlist {
			fmt.Fprintf(&b, "\n%d. %s", i+1, p.Name)
		}
	}
	return b.String()
}

// Join seats actor or queues them on the waitlist.
//
// Seats are reserved for members of the session's location: a non-member is
// waitlisted once the remaining seats no longer exceed the number of members
// still needed to reach MinMembers.
func (s *Service) Join(ctx context.Context, group, actor, displayName string) (JoinOutcome, error) {
	g := s.lock(group)
	defer g.mu.Unlock()
	sess := g.session
	if sess == nil {
		return 0, ErrNoActiveSession
	}
	if sess.playerIndex(actor) >= 0 {
		return AlreadyPlayer, nil
	}
	if sess.waitlistIndex(actor) >= 0 {
		return AlreadyWaitlisted, nil
	}

	entry := Entry{ID: actor, Name: nameOrID(displayName, actor)}
	currentMembers := 0
	for _, p := range sess.Players {
		if s.members.IsMemberOfLocation(group, p.ID, sess.Location) {
			currentMembers++
		}
	}
	remainingSeats := sess.Capacity - len(sess.Players)
	reservedShortfall := sess.MinMembers - currentMembers

	outcome := Admitted
	if remainingSeats <= 0 ||
		(remainingSeats <= reservedShortfall && !s.members.IsMemberOfLocation(group, actor, sess.Location)) {
		sess.Waitlist = append(sess.Waitlist, entry)
		outcome = Waitlisted
	} else {
		sess.Players = append(sess.Players, entry)
	}
	s.save(ctx, group, sess)

	log.Debug().Str("module", "game").Str("group", group).Str("actor", actor).
		Stringer("outcome", outcome).Int("remaining_seats", remainingSeats).
		Int("reserved_shortfall", reservedShortfall).Msg("join")
	return outcome, nil
}

// Leave removes actor from the session. A departing player frees a seat for
// the head of the waitlist.
func (s *Service) Leave(ctx context.Context, group, actor string) (LeaveResult, error) {
	g := s.lock(group)
	defer g.mu.Unlock()
	sess := g.session
	if sess == nil {
		return LeaveResult{}, ErrNoActiveSession
	}

	var res LeaveResult
	if i := sess.playerIndex(actor); i >= 0 {
		sess.Players = append(sess.Players[:i], sess.Players[i+1:]...)
		res.WasPlayer = true
	}
	if i := sess.waitlistIndex(actor); i >= 0 {
		sess.Waitlist = append(sess.Waitlist[:i], sess.Waitlist[i+1:]...)
		res.WasWaitlisted = true
	}
	if res.WasPlayer && len(sess.Waitlist) > 0 {
		next := sess.Waitlist[0]
		sess.Waitlist = sess.Waitlist[1:]
		sess.Players = append(sess.Players, next)
		res.Promoted = &next
	}
	if res.WasPlayer || res.WasWaitlisted {
		s.save(ctx, group, sess)
	}
	return res, nil
}

// Cancel drops the group's session. It reports whether one existed.
func (s *Service) Cancel(ctx context.Context, group string) bool {
	g := s.lock(group)
	defer g.mu.Unlock()
	existed := g.session != nil
	g.session = nil
	if s.store != nil {
		if err := s.store.DeleteSession(ctx, group); err != nil {
			log.Error().Err(err).Str("module", "game").Str("group", group).Msg("failed to delete session")
		}
	}
	return existed
}

// Session returns a copy of the group's session.
func (s *Service) Session(group string) (Snapshot, bool) {
	g := s.lock(group)
	defer g.mu.Unlock()
	if g.session == nil {
		return Snapshot{}, false
	}
	return g.session.snapshot(group), true
}

// Snapshots returns copies of every active session.
func (s *Service) Snapshots() []Snapshot {
	s.mu.Lock()
	groups := make(map[string]*groupState, len(s.groups))
	for k, g := range s.groups {
		groups[k] = g
	}
	s.mu.Unlock()

	var out []Snapshot
	for key, g := range groups {
		g.mu.Lock()
		if g.session != nil {
			out = append(out, g.session.snapshot(key))
		}
		g.mu.Unlock()
	}
	return out
}

// Restore loads persisted sessions, replacing any in memory for the same groups.
func (s *Service) Restore(snaps []Snapshot) {
	for _, snap := range snaps {
		g := s.lock(snap.Group)
		g.session = fromSnapshot(snap)
		g.mu.Unlock()
	}
}

func (s *Service) save(ctx context.Context, group string, sess *Session) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveSession(ctx, sess.snapshot(group)); err != nil {
		log.Error().Err(err).Str("module", "game").Str("group", group).Msg("failed to save session")
	}
}

func nameOrID(name, id string) string {
	if name == "" {
		return id
	}
	return name
}
