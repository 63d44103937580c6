package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

type fakeRegistry struct {
	locations map[string]bool
	members   map[string]bool
}

func newFakeRegistry(locations ...string) *fakeRegistry {
	r := &fakeRegistry{locations: map[string]bool{}, members: map[string]bool{}}
	for _, l := range locations {
		r.locations[strings.ToLower(l)] = true
	}
	return r
}

func (r *fakeRegistry) IsApprovedLocation(group, location string) bool {
	return r.locations[strings.ToLower(location)]
}

func (r *fakeRegistry) IsMemberOfLocation(group, actor, location string) bool {
	return r.members[group+"/"+actor+"/"+strings.ToLower(location)]
}

func (r *fakeRegistry) addMember(group, actor, location string) {
	r.members[group+"/"+actor+"/"+strings.ToLower(location)] = true
}

type fakeStore struct {
	mu      sync.Mutex
	saved   map[string]Snapshot
	deleted []string
}

func (f *fakeStore) SaveSession(ctx context.Context, snap Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[string]Snapshot{}
	}
	f.saved[snap.Group] = snap
	return nil
}

func (f *fakeStore) DeleteSession(ctx context.Context, group string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, group)
	delete(f.saved, group)
	return nil
}

func newTestService(t *testing.T, reg *fakeRegistry) *Service {
	t.Helper()
	return NewService(reg, reg, nil)
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestCreateParsesArguments(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
		wantCap int
		wantMin int
	}{
		{name: "with min members", raw: "park tue 6pm 10 2", wantCap: 10, wantMin: 2},
		{name: "without min members", raw: "park tue 6pm 10", wantCap: 10, wantMin: 0},
		{name: "invalid min members defaults to zero", raw: "park tue 6pm 10 lots", wantCap: 10, wantMin: 0},
		{name: "extra whitespace", raw: "  park   tue\t6pm  4  ", wantCap: 4},
		{name: "missing max", raw: "park tue 6pm", wantErr: ErrMalformedSpec},
		{name: "non numeric max", raw: "park tue 6pm ten", wantErr: ErrMalformedSpec},
		{name: "zero max", raw: "park tue 6pm 0", wantErr: ErrMalformedSpec},
		{name: "empty", raw: "", wantErr: ErrMalformedSpec},
		{name: "unapproved location", raw: "beach tue 6pm 4", wantErr: ErrLocationNotApproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, newFakeRegistry("park"))
			_, err := svc.Create(context.Background(), "g", "alice", "Alice", tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
				}
				if _, ok := svc.Session("g"); ok {
					t.Fatal("session created despite error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() unexpected error: %v", err)
			}
			snap, ok := svc.Session("g")
			if !ok {
				t.Fatal("session not found")
			}
			if snap.Capacity != tt.wantCap || snap.MinMembers != tt.wantMin {
				t.Errorf("capacity/min = %d/%d, want %d/%d", snap.Capacity, snap.MinMembers, tt.wantCap, tt.wantMin)
			}
			if len(snap.Players) != 1 || snap.Players[0] != (Entry{ID: "alice", Name: "Alice"}) {
				t.Errorf("players = %+v, want creator only", snap.Players)
			}
		})
	}
}

func TestCreateOverwritesExistingSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeRegistry("park", "gym"))
	if _, err := svc.Create(ctx, "g", "alice", "Alice", "park tue 6pm 4"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Join(ctx, "g", "bob", "Bob"); err != nil {
		t.Fatal(err)
	}
	label, err := svc.Create(ctx, "g", "carol", "", "gym wed 7pm 2")
	if err != nil {
		t.Fatal(err)
	}
	if label != "WED @ 7pm" {
		t.Errorf("label = %q", label)
	}
	snap, _ := svc.Session("g")
	if snap.Location != "gym" || len(snap.Players) != 1 || snap.Players[0] != (Entry{ID: "carol", Name: "carol"}) {
		t.Errorf("session not replaced: %+v", snap)
	}
}

func TestJoinFillsCapacityThenWaitlists(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeRegistry("park"))
	if _, err := svc.Create(ctx, "g", "p0", "", "park tue 6pm 4"); err != nil {
		t.Fatal(err)
	}

	var want []string
	for i := 1; i <= 6; i++ {
		id := fmt.Sprintf("p%d", i)
		got, err := svc.Join(ctx, "g", id, "")
		if err != nil {
			t.Fatal(err)
		}
		wantOutcome := Admitted
		if i >= 4 {
			wantOutcome = Waitlisted
			want = append(want, id)
		}
		if got != wantOutcome {
			t.Errorf("Join(%s) = %v, want %v", id, got, wantOutcome)
		}
	}

	snap, _ := svc.Session("g")
	if got := strings.Join(ids(snap.Players), ","); got != "p0,p1,p2,p3" {
		t.Errorf("players = %s", got)
	}
	if got := strings.Join(ids(snap.Waitlist), ","); got != strings.Join(want, ",") {
		t.Errorf("waitlist = %s, want %s", got, strings.Join(want, ","))
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeRegistry("park"))
	if _, err := svc.Create(ctx, "g", "a", "", "park tue 6pm 2"); err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		actor string
		want  JoinOutcome
	}{
		{"a", AlreadyPlayer},
		{"b", Admitted},
		{"b", AlreadyPlayer},
		{"c", Waitlisted},
		{"c", AlreadyWaitlisted},
	}
	for _, st := range steps {
		got, err := svc.Join(ctx, "g", st.actor, "")
		if err != nil {
			t.Fatal(err)
		}
		if got != st.want {
			t.Errorf("Join(%s) = %v, want %v", st.actor, got, st.want)
		}
	}
	snap, _ := svc.Session("g")
	if len(snap.Players) != 2 || len(snap.Waitlist) != 1 {
		t.Errorf("state changed on repeat: %+v", snap)
	}
}

func TestJoinWithoutSession(t *testing.T) {
	svc := newTestService(t, newFakeRegistry("park"))
	if _, err := svc.Join(context.Background(), "g", "a", ""); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("err = %v, want ErrNoActiveSession", err)
	}
	if _, err := svc.Leave(context.Background(), "g", "a"); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("err = %v, want ErrNoActiveSession", err)
	}
}

func TestQuotaReservation(t *testing.T) {
	ctx := context.Background()
	reg := newFakeRegistry("park")
	reg.addMember("g", "m1", "PARK")
	svc := newTestService(t, reg)
	if _, err := svc.Create(ctx, "g", "n1", "", "park tue 6pm 5 2"); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"n2", "n3"} {
		if got, _ := svc.Join(ctx, "g", id, ""); got != Admitted {
			t.Fatalf("Join(%s) = %v, want Admitted", id, got)
		}
	}

	// remainingSeats=2, reservedShortfall=2
	if got, _ := svc.Join(ctx, "g", "n4", ""); got != Waitlisted {
		t.Errorf("non-member join = %v, want Waitlisted", got)
	}
	if got, _ := svc.Join(ctx, "g", "m1", ""); got != Admitted {
		t.Errorf("member join = %v, want Admitted", got)
	}

	// remainingSeats=1, reservedShortfall=1
	if got, _ := svc.Join(ctx, "g", "n5", ""); got != Waitlisted {
		t.Errorf("non-member join after member = %v, want Waitlisted", got)
	}
}

func TestQuotaMetAdmitsNonMembers(t *testing.T) {
	ctx := context.Background()
	reg := newFakeRegistry("park")
	reg.addMember("g", "m1", "park")
	svc := newTestService(t, reg)
	if _, err := svc.Create(ctx, "g", "m1", "", "park tue 6pm 3 1"); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"n1", "n2"} {
		if got, _ := svc.Join(ctx, "g", id, ""); got != Admitted {
			t.Errorf("Join(%s) = %v, want Admitted", id, got)
		}
	}
}

func TestMembershipIsScopedToGroupAndLocation(t *testing.T) {
	ctx := context.Background()
	reg := newFakeRegistry("park", "gym")
	reg.addMember("other", "m1", "park")
	reg.addMember("g", "m2", "gym")
	svc := newTestService(t, reg)
	if _, err := svc.Create(ctx, "g", "n1", "", "park tue 6pm 2 1"); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"m1", "m2"} {
		if got, _ := svc.Join(ctx, "g", id, ""); got != Waitlisted {
			t.Errorf("Join(%s) = %v, want Waitlisted", id, got)
		}
	}
}

func TestLeavePromotesInOrder(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeRegistry("park"))
	if _, err := svc.Create(ctx, "g", "a", "", "park tue 6pm 2"); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"b", "j1", "j2", "j3"} {
		if _, err := svc.Join(ctx, "g", id, "Name "+id); err != nil {
			t.Fatal(err)
		}
	}

	res, err := svc.Leave(ctx, "g", "a")
	if err != nil {
		t.Fatal(err)
	}
	if !res.WasPlayer || res.Promoted == nil || res.Promoted.ID != "j1" || res.Promoted.Name != "Name j1" {
		t.Fatalf("first leave = %+v, want j1 promoted", res)
	}
	res, _ = svc.Leave(ctx, "g", "b")
	if res.Promoted == nil || res.Promoted.ID != "j2" {
		t.Fatalf("second leave = %+v, want j2 promoted", res)
	}

	snap, _ := svc.Session("g")
	if got := strings.Join(ids(snap.Players), ","); got != "j1,j2" {
		t.Errorf("players = %s", got)
	}
	if got := strings.Join(ids(snap.Waitlist), ","); got != "j3" {
		t.Errorf("waitlist = %s", got)
	}
}

func TestLeaveFromWaitlistDoesNotPromote(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeRegistry("park"))
	if _, err := svc.Create(ctx, "g", "a", "", "park tue 6pm 1"); err != nil {
		t.Fatal(err)
	}
	svc.Join(ctx, "g", "w1", "")
	svc.Join(ctx, "g", "w2", "")

	res, err := svc.Leave(ctx, "g", "w1")
	if err != nil {
		t.Fatal(err)
	}
	if res.WasPlayer || !res.WasWaitlisted || res.Promoted != nil {
		t.Errorf("leave = %+v", res)
	}
	snap, _ := svc.Session("g")
	if got := strings.Join(ids(snap.Waitlist), ","); got != "w2" {
		t.Errorf("waitlist = %s", got)
	}

	res, err = svc.Leave(ctx, "g", "stranger")
	if err != nil || res.WasPlayer || res.WasWaitlisted || res.Promoted != nil {
		t.Errorf("leave of absent actor = %+v, %v", res, err)
	}
}

func TestPromotionIgnoresMembership(t *testing.T) {
	ctx := context.Background()
	reg := newFakeRegistry("park")
	reg.addMember("g", "m1", "park")
	svc := newTestService(t, reg)
	if _, err := svc.Create(ctx, "g", "m1", "", "park tue 6pm 1 1"); err != nil {
		t.Fatal(err)
	}
	svc.Join(ctx, "g", "n1", "")
	res, _ := svc.Leave(ctx, "g", "m1")
	if res.Promoted == nil || res.Promoted.ID != "n1" {
		t.Errorf("leave = %+v, want n1 promoted", res)
	}
}

func TestCancelClearsSession(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	reg := newFakeRegistry("park")
	svc := NewService(reg, reg, store)
	if _, err := svc.Create(ctx, "g", "a", "", "park tue 6pm 2"); err != nil {
		t.Fatal(err)
	}
	if !svc.Cancel(ctx, "g") {
		t.Error("Cancel() = false, want true")
	}
	if _, err := svc.List("g"); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("List() err = %v, want ErrNoActiveSession", err)
	}
	if svc.Cancel(ctx, "g") {
		t.Error("second Cancel() = true, want false")
	}
	if _, ok := store.saved["g"]; ok {
		t.Error("store still holds cancelled session")
	}
}

func TestListFormatting(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeRegistry("park"))
	if _, err := svc.Create(ctx, "g", "a", "Alice", "park tue 6pm 2"); err != nil {
		t.Fatal(err)
	}
	svc.Join(ctx, "g", "b", "")
	svc.Join(ctx, "g", "c", "*Carol*")

	got, err := svc.List("g")
	if err != nil {
		t.Fatal(err)
	}
	want := "📍 *Where:* park\n" +
		"📅 *When:* tue 6pm\n" +
		"👥 *Players (2/2):*\n" +
		"1. Alice\n" +
		"2. b\n" +
		"⏳ *Waitlist:*\n" +
		"1. *Carol*"
	if got != want {
		t.Errorf("List() =\n%s\nwant\n%s", got, want)
	}

	svc.Leave(ctx, "g", "a")
	got, _ = svc.List("g")
	if strings.Contains(got, "Waitlist") {
		t.Errorf("empty waitlist rendered:\n%s", got)
	}
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeRegistry("park"))

	label, err := svc.Create(ctx, "G", "A", "Alice", "park tue 6pm 2 1")
	if err != nil {
		t.Fatal(err)
	}
	if label != "TUE @ 6pm" {
		t.Errorf("label = %q, want %q", label, "TUE @ 6pm")
	}
	if got, _ := svc.Join(ctx, "G", "B", "Bob"); got != Waitlisted {
		t.Errorf("Join(B) = %v, want Waitlisted", got)
	}
	res, err := svc.Leave(ctx, "G", "A")
	if err != nil {
		t.Fatal(err)
	}
	if res.Promoted == nil || res.Promoted.ID != "B" {
		t.Fatalf("leave = %+v, want B promoted", res)
	}
	snap, _ := svc.Session("G")
	if len(snap.Players) != 1 || snap.Players[0] != (Entry{ID: "B", Name: "Bob"}) || len(snap.Waitlist) != 0 {
		t.Errorf("final state = %+v", snap)
	}
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newFakeRegistry("park"))
	if _, err := svc.Create(ctx, "g", "creator", "", "park tue 6pm 10"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc.Join(ctx, "g", fmt.Sprintf("p%d", i), "")
		}(i)
	}
	wg.Wait()

	snap, _ := svc.Session("g")
	if len(snap.Players) != 10 {
		t.Errorf("players = %d, want 10", len(snap.Players))
	}
	if len(snap.Waitlist) != 91 {
		t.Errorf("waitlist = %d, want 91", len(snap.Waitlist))
	}
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	reg := newFakeRegistry("park")
	store := &fakeStore{}
	svc := NewService(reg, reg, store)
	if _, err := svc.Create(ctx, "g1", "a", "", "park tue 6pm 1"); err != nil {
		t.Fatal(err)
	}
	svc.Join(ctx, "g1", "b", "Bob")
	if _, err := svc.Create(ctx, "g2", "c", "", "park wed 7pm 3"); err != nil {
		t.Fatal(err)
	}

	if got := len(svc.Snapshots()); got != 2 {
		t.Fatalf("Snapshots() = %d, want 2", got)
	}
	if got := store.saved["g1"]; len(got.Waitlist) != 1 || got.Waitlist[0].Name != "Bob" {
		t.Errorf("store not updated on join: %+v", got)
	}

	restored := NewService(reg, reg, nil)
	restored.Restore(svc.Snapshots())
	before, _ := svc.List("g1")
	after, err := restored.List("g1")
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Errorf("restored listing differs:\n%s\n---\n%s", before, after)
	}

	// snapshots are detached copies
	snap, _ := restored.Session("g1")
	snap.Players[0].Name = "mutated"
	again, _ := restored.Session("g1")
	if again.Players[0].Name == "mutated" {
		t.Error("snapshot aliases engine state")
	}
}
