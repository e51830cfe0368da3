package outpass

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"outpass-control/internal/storage"
)

// fakeStore is an in-memory storage.Provider for exercising the lifecycle
// without a database. TransitionOutpass honors the compare-and-set
// contract, which the race tests rely on.
type fakeStore struct {
	mu        sync.Mutex
	nextID    int64
	outpasses map[int64]*storage.Outpass
	users     map[int64]*storage.User
	audits    []storage.AuditEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		outpasses: map[int64]*storage.Outpass{},
		users:     map[int64]*storage.User{},
	}
}

func (f *fakeStore) addUser(u storage.User) *storage.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	u.IsActive = true
	f.users[u.ID] = &u
	return &u
}

func (f *fakeStore) Close() error                                  { return nil }
func (f *fakeStore) GetSchemaVersion(context.Context) (int, error) { return 1, nil }

func (f *fakeStore) CreateOutpass(_ context.Context, o *storage.Outpass) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	o.ID = f.nextID
	o.Status = storage.StatusPendingAdvisor
	o.AdvisorStatus = storage.StagePending
	o.HODStatus = storage.StagePending
	o.CreatedAt = time.Now()
	cp := *o
	f.outpasses[o.ID] = &cp
	return o.ID, nil
}

func (f *fakeStore) record(o *storage.Outpass) *storage.OutpassRecord {
	rec := &storage.OutpassRecord{Outpass: *o}
	if student, ok := f.users[o.StudentID]; ok {
		rec.StudentName = student.FullName
		rec.RegistrationNo = student.RegistrationNo
		rec.StudentDeptID = student.DeptID
	}
	return rec
}

func (f *fakeStore) GetOutpass(_ context.Context, id int64) (*storage.OutpassRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.outpasses[id]
	if !ok {
		return nil, storage.ErrNoRecord
	}
	return f.record(o), nil
}

func (f *fakeStore) GetOutpassByToken(_ context.Context, token string) (*storage.OutpassRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.outpasses {
		if o.PassToken != nil && *o.PassToken == token {
			return f.record(o), nil
		}
	}
	return nil, storage.ErrNoRecord
}

func (f *fakeStore) ListOutpasses(_ context.Context, filter storage.OutpassFilter) ([]storage.OutpassRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.OutpassRecord
	for _, o := range f.outpasses {
		if filter.StudentID != nil && o.StudentID != *filter.StudentID {
			continue
		}
		if filter.AdvisorID != nil && o.AdvisorID != *filter.AdvisorID {
			continue
		}
		if filter.HODID != nil && o.HODID != *filter.HODID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.ExitRecorded && o.ExitAt == nil {
			continue
		}
		if filter.CurrentlyOut && (o.ExitAt == nil || o.EntryAt != nil) {
			continue
		}
		if o.Archived && !filter.IncludeArchived {
			continue
		}
		out = append(out, *f.record(o))
	}
	// Newest first, like the SQL provider.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			out = nil
		} else {
			out = out[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeStore) TransitionOutpass(_ context.Context, id int64, from storage.OutpassStatus, mut storage.OutpassMutation) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.outpasses[id]
	if !ok {
		return false, storage.ErrNoRecord
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = mut.Status
	if mut.AdvisorStatus != nil {
		o.AdvisorStatus = *mut.AdvisorStatus
	}
	if mut.AdvisorRemarks != nil {
		o.AdvisorRemarks = *mut.AdvisorRemarks
	}
	if mut.AdvisorActionAt != nil {
		o.AdvisorActionAt = mut.AdvisorActionAt
	}
	if mut.HODStatus != nil {
		o.HODStatus = *mut.HODStatus
	}
	if mut.HODRemarks != nil {
		o.HODRemarks = *mut.HODRemarks
	}
	if mut.HODActionAt != nil {
		o.HODActionAt = mut.HODActionAt
	}
	if mut.PassToken != nil {
		for _, other := range f.outpasses {
			if other.PassToken != nil && *other.PassToken == *mut.PassToken {
				return false, storage.ErrTokenCollision
			}
		}
		o.PassToken = mut.PassToken
	}
	if mut.PassIssuedAt != nil {
		o.PassIssuedAt = mut.PassIssuedAt
	}
	if mut.PassExpiresAt != nil {
		o.PassExpiresAt = mut.PassExpiresAt
	}
	if mut.ExitAt != nil {
		o.ExitAt = mut.ExitAt
	}
	if mut.ExitStationID != nil {
		o.ExitStationID = mut.ExitStationID
	}
	if mut.EntryAt != nil {
		o.EntryAt = mut.EntryAt
	}
	if mut.EntryStationID != nil {
		o.EntryStationID = mut.EntryStationID
	}
	return true, nil
}

func (f *fakeStore) SetOutpassArchived(_ context.Context, id int64, archived bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.outpasses[id]
	if !ok {
		return storage.ErrNoRecord
	}
	o.Archived = archived
	return nil
}

func (f *fakeStore) DeleteOutpass(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.outpasses[id]; !ok {
		return storage.ErrNoRecord
	}
	delete(f.outpasses, id)
	kept := f.audits[:0]
	for _, a := range f.audits {
		if a.OutpassID != id {
			kept = append(kept, a)
		}
	}
	f.audits = kept
	return nil
}

func (f *fakeStore) AppendAudit(_ context.Context, entry storage.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = int64(len(f.audits) + 1)
	entry.CreatedAt = time.Now()
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeStore) ListAudit(_ context.Context, outpassID int64) ([]storage.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Newest first, like the SQL provider.
	var out []storage.AuditEntry
	for i := len(f.audits) - 1; i >= 0; i-- {
		if f.audits[i].OutpassID == outpassID {
			out = append(out, f.audits[i])
		}
	}
	return out, nil
}

func (f *fakeStore) CountMisuse(_ context.Context, _, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, a := range f.audits {
		for _, action := range storage.MisuseActions {
			if a.Action == action {
				n++
			}
		}
	}
	return n, nil
}

func (f *fakeStore) CreateUser(_ context.Context, u *storage.User) (int64, error) {
	created := f.addUser(*u)
	return created.ID, nil
}

func (f *fakeStore) GetUser(_ context.Context, id int64) (*storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, storage.ErrNoRecord
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNoRecord
}

func (f *fakeStore) ListUsers(_ context.Context, _ *storage.Role, _ *int64) ([]storage.User, error) {
	return nil, nil
}
func (f *fakeStore) ListStudentsByAdvisor(_ context.Context, _ int64) ([]storage.User, error) {
	return nil, nil
}
func (f *fakeStore) UpdateUser(_ context.Context, _ *storage.User) error        { return nil }
func (f *fakeStore) SetUserActive(_ context.Context, _ int64, _ bool) error     { return nil }
func (f *fakeStore) SetUserPassword(_ context.Context, _ int64, _ string) error { return nil }
func (f *fakeStore) AssignAdvisor(_ context.Context, _, _ int64) error          { return nil }
func (f *fakeStore) DeleteUser(_ context.Context, _ int64) error                { return nil }

func (f *fakeStore) FindDeptStaff(_ context.Context, deptID int64) (*storage.User, error) {
	return f.findByRole(storage.RoleStaff, deptID)
}

func (f *fakeStore) FindDeptHOD(_ context.Context, deptID int64) (*storage.User, error) {
	return f.findByRole(storage.RoleHOD, deptID)
}

func (f *fakeStore) findByRole(role storage.Role, deptID int64) (*storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Role == role && u.DeptID != nil && *u.DeptID == deptID && u.IsActive {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNoRecord
}

func (f *fakeStore) CreateDepartment(_ context.Context, _ *storage.Department) (int64, error) {
	return 0, nil
}
func (f *fakeStore) GetDepartment(_ context.Context, _ int64) (*storage.Department, error) {
	return nil, storage.ErrNoRecord
}
func (f *fakeStore) ListDepartments(_ context.Context) ([]storage.Department, error) { return nil, nil }
func (f *fakeStore) UpdateDepartment(_ context.Context, _ *storage.Department) error { return nil }
func (f *fakeStore) DeleteDepartment(_ context.Context, _ int64) error               { return nil }

func (f *fakeStore) CreateStation(_ context.Context, _ storage.Station) error { return nil }
func (f *fakeStore) GetStation(_ context.Context, _ string) (*storage.Station, error) {
	return nil, storage.ErrNoRecord
}
func (f *fakeStore) ListStations(_ context.Context, _ storage.StationStatus) ([]storage.Station, error) {
	return nil, nil
}
func (f *fakeStore) UpdateStationStatus(_ context.Context, _ string, _ storage.StationStatus, _ *int64) error {
	return nil
}
func (f *fakeStore) PruneStations(_ context.Context, _ time.Time, _ storage.StationStatus) (int64, error) {
	return 0, nil
}

func (f *fakeStore) CountOutpassesByStatus(_ context.Context, _, _ time.Time) ([]storage.StatusCount, error) {
	return nil, nil
}
func (f *fakeStore) CountUsersByRole(_ context.Context) ([]storage.RoleCount, error) {
	return nil, nil
}
func (f *fakeStore) DepartmentStats(_ context.Context, _, _ time.Time) ([]storage.DeptStat, error) {
	return nil, nil
}
func (f *fakeStore) TopReasons(_ context.Context, _, _ time.Time, _ int) ([]storage.ReasonCount, error) {
	return nil, nil
}

// testEnv bundles a service wired to the fake store with one department
// worth of users.
type testEnv struct {
	store   *fakeStore
	svc     *Service
	student *storage.User
	advisor *storage.User
	hod     *storage.User
	guard   *storage.User
	admin   *storage.User
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	deptID := int64(1)

	advisor := store.addUser(storage.User{Username: "advisor", FullName: "A Advisor", Role: storage.RoleStaff, DeptID: &deptID})
	hod := store.addUser(storage.User{Username: "hod", FullName: "H Hod", Role: storage.RoleHOD, DeptID: &deptID})
	student := store.addUser(storage.User{
		Username: "student", FullName: "S Student", Role: storage.RoleStudent,
		DeptID: &deptID, AdvisorID: &advisor.ID, RegistrationNo: "REG001",
	})
	guard := store.addUser(storage.User{Username: "guard", FullName: "G Guard", Role: storage.RoleSecurity})
	admin := store.addUser(storage.User{Username: "admin", FullName: "Root", Role: storage.RoleAdmin})

	env := &testEnv{
		store: store, student: student, advisor: advisor,
		hod: hod, guard: guard, admin: admin,
		now: time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local),
	}
	env.svc = NewService(store, nil, Options{})
	env.svc.now = func() time.Time { return env.now }
	return env
}

func (e *testEnv) actor(u *storage.User) Actor {
	return Actor{ID: u.ID, Role: u.Role, DeptID: u.DeptID}
}

func (e *testEnv) submit(t *testing.T) int64 {
	t.Helper()
	id, err := e.svc.Submit(context.Background(), e.actor(e.student), SubmitInput{
		OutDate:            e.now.Format("2006-01-02"),
		OutTime:            "10:00",
		ExpectedReturnTime: "17:00",
		Reason:             "Medical appointment",
		Destination:        "City hospital",
	})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	return id
}

func (e *testEnv) approveBoth(t *testing.T, id int64) string {
	t.Helper()
	if err := e.svc.AdvisorDecide(context.Background(), e.actor(e.advisor), id, Decision{Approve: true}); err != nil {
		t.Fatalf("AdvisorDecide() error: %v", err)
	}
	token, err := e.svc.HODDecide(context.Background(), e.actor(e.hod), id, Decision{Approve: true})
	if err != nil {
		t.Fatalf("HODDecide() error: %v", err)
	}
	if token == "" {
		t.Fatal("HODDecide() approved without issuing a token")
	}
	return token
}

func TestLifecycleHappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.submit(t)
	token := env.approveBoth(t, id)

	rec, err := env.svc.RecordExit(ctx, env.actor(env.guard), token, "gate-1")
	if err != nil {
		t.Fatalf("RecordExit() error: %v", err)
	}
	if rec.Status != storage.StatusExited {
		t.Errorf("status after exit = %s, want %s", rec.Status, storage.StatusExited)
	}
	if rec.ExitAt == nil || rec.ExitStationID == nil || *rec.ExitStationID != "gate-1" {
		t.Error("exit timestamp or station not recorded")
	}

	rec, err = env.svc.RecordEntry(ctx, env.actor(env.guard), token, "gate-2")
	if err != nil {
		t.Fatalf("RecordEntry() error: %v", err)
	}
	if rec.Status != storage.StatusReturned {
		t.Errorf("status after entry = %s, want %s", rec.Status, storage.StatusReturned)
	}

	trail, err := env.svc.AuditTrail(ctx, env.actor(env.student), id)
	if err != nil {
		t.Fatalf("AuditTrail() error: %v", err)
	}
	// Trail is returned newest first.
	wantActions := []string{
		storage.AuditEntryRecorded, storage.AuditExitRecorded,
		storage.AuditHODApproved, storage.AuditAdvisorApproved, storage.AuditCreated,
	}
	if len(trail) != len(wantActions) {
		t.Fatalf("audit trail has %d entries, want %d", len(trail), len(wantActions))
	}
	for i, want := range wantActions {
		if trail[i].Action != want {
			t.Errorf("trail[%d].Action = %s, want %s", i, trail[i].Action, want)
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   SubmitInput
	}{
		{"past date", SubmitInput{OutDate: "2026-03-09", OutTime: "10:00", ExpectedReturnTime: "17:00", Reason: "x"}},
		{"too far ahead", SubmitInput{OutDate: "2026-05-10", OutTime: "10:00", ExpectedReturnTime: "17:00", Reason: "x"}},
		{"return before out", SubmitInput{OutDate: "2026-03-10", OutTime: "17:00", ExpectedReturnTime: "10:00", Reason: "x"}},
		{"return equals out", SubmitInput{OutDate: "2026-03-10", OutTime: "10:00", ExpectedReturnTime: "10:00", Reason: "x"}},
		{"blank reason", SubmitInput{OutDate: "2026-03-10", OutTime: "10:00", ExpectedReturnTime: "17:00", Reason: "   "}},
		{"bad date format", SubmitInput{OutDate: "10-03-2026", OutTime: "10:00", ExpectedReturnTime: "17:00", Reason: "x"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Submit(ctx, env.actor(env.student), tc.in)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Submit() error = %v, want ErrValidation", err)
			}
		})
	}

	if len(env.store.outpasses) != 0 {
		t.Errorf("rejected submissions left %d records behind", len(env.store.outpasses))
	}
}

func TestSubmitRequiresStudentRole(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Submit(context.Background(), env.actor(env.advisor), SubmitInput{
		OutDate: "2026-03-10", OutTime: "10:00", ExpectedReturnTime: "17:00", Reason: "x",
	})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("Submit() as staff error = %v, want ErrForbidden", err)
	}
}

func TestSubmitAdvisorFallback(t *testing.T) {
	env := newTestEnv(t)
	env.store.mu.Lock()
	env.store.users[env.student.ID].AdvisorID = nil
	env.store.mu.Unlock()

	id := env.submit(t)
	rec, err := env.store.GetOutpass(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.AdvisorID != env.advisor.ID {
		t.Errorf("fallback advisor = %d, want %d", rec.AdvisorID, env.advisor.ID)
	}
}

func TestAdvisorRejectIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.submit(t)

	err := env.svc.AdvisorDecide(ctx, env.actor(env.advisor), id, Decision{Approve: false})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("rejection without remarks error = %v, want ErrValidation", err)
	}

	if err := env.svc.AdvisorDecide(ctx, env.actor(env.advisor), id, Decision{Approve: false, Remarks: "No"}); err != nil {
		t.Fatalf("AdvisorDecide() error: %v", err)
	}

	_, err = env.svc.HODDecide(ctx, env.actor(env.hod), id, Decision{Approve: true})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("HODDecide() after rejection error = %v, want ErrInvalidState", err)
	}
}

func TestAdvisorDecideScope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.submit(t)

	otherDept := int64(2)
	other := env.store.addUser(storage.User{Username: "other", Role: storage.RoleStaff, DeptID: &otherDept})

	err := env.svc.AdvisorDecide(ctx, env.actor(other), id, Decision{Approve: true})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("AdvisorDecide() by unassigned staff error = %v, want ErrForbidden", err)
	}
}

func TestConcurrentHODDecisions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.submit(t)
	if err := env.svc.AdvisorDecide(ctx, env.actor(env.advisor), id, Decision{Approve: true}); err != nil {
		t.Fatal(err)
	}

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(approve bool) {
			defer wg.Done()
			_, err := env.svc.HODDecide(ctx, env.actor(env.hod), id, Decision{Approve: approve, Remarks: "contested"})
			errs <- err
		}(i%2 == 0)
	}
	wg.Wait()
	close(errs)

	var won, lost int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrInvalidState):
			lost++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Errorf("%d decisions succeeded, want exactly 1", won)
	}
	if lost != attempts-1 {
		t.Errorf("%d decisions lost the race, want %d", lost, attempts-1)
	}
}

func TestCancelOnlyWhilePendingAdvisor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := env.submit(t)
	if err := env.svc.Cancel(ctx, env.actor(env.student), id); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	rec, _ := env.store.GetOutpass(ctx, id)
	if rec.Status != storage.StatusCancelled {
		t.Errorf("status = %s, want %s", rec.Status, storage.StatusCancelled)
	}

	id2 := env.submit(t)
	if err := env.svc.AdvisorDecide(ctx, env.actor(env.advisor), id2, Decision{Approve: true}); err != nil {
		t.Fatal(err)
	}
	err := env.svc.Cancel(ctx, env.actor(env.student), id2)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("Cancel() after advisor approval error = %v, want ErrInvalidState", err)
	}

	other := env.store.addUser(storage.User{Username: "other-student", Role: storage.RoleStudent})
	id3 := env.submit(t)
	err = env.svc.Cancel(ctx, env.actor(other), id3)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("Cancel() by another student error = %v, want ErrForbidden", err)
	}
}

func TestExitScanIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.submit(t)
	token := env.approveBoth(t, id)

	if _, err := env.svc.RecordExit(ctx, env.actor(env.guard), token, "gate-1"); err != nil {
		t.Fatal(err)
	}

	_, err := env.svc.RecordExit(ctx, env.actor(env.guard), token, "gate-1")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second exit scan error = %v, want ErrInvalidState", err)
	}

	n, _ := env.store.CountMisuse(ctx, time.Time{}, time.Time{})
	if n != 1 {
		t.Errorf("misuse count = %d, want 1", n)
	}
}

func TestExitScanRejectsExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.submit(t)
	token := env.approveBoth(t, id)

	// Pass expires at return time plus skew; jump past it.
	env.now = env.now.Add(48 * time.Hour)

	_, err := env.svc.RecordExit(ctx, env.actor(env.guard), token, "gate-1")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expired scan error = %v, want ErrInvalidState", err)
	}

	trail, _ := env.store.ListAudit(ctx, id)
	last := trail[0]
	if last.Action != storage.AuditTokenExpired {
		t.Errorf("latest audit action = %s, want %s", last.Action, storage.AuditTokenExpired)
	}

	rec, _ := env.store.GetOutpass(ctx, id)
	if rec.Status != storage.StatusApproved {
		t.Errorf("stored status changed to %s on a rejected scan", rec.Status)
	}
}

func TestEntryRequiresExit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.submit(t)
	token := env.approveBoth(t, id)

	_, err := env.svc.RecordEntry(ctx, env.actor(env.guard), token, "gate-1")
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("RecordEntry() before exit error = %v, want ErrInvalidState", err)
	}
}

func TestScanRequiresSecurityRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.submit(t)
	token := env.approveBoth(t, id)

	if _, err := env.svc.RecordExit(ctx, env.actor(env.student), token, "gate-1"); !errors.Is(err, ErrForbidden) {
		t.Errorf("RecordExit() as student error = %v, want ErrForbidden", err)
	}
	if _, err := env.svc.Verify(ctx, env.actor(env.student), token); !errors.Is(err, ErrForbidden) {
		t.Errorf("Verify() as student error = %v, want ErrForbidden", err)
	}
}

func TestVerifyReportsEffectiveStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.submit(t)
	token := env.approveBoth(t, id)

	res, err := env.svc.Verify(ctx, env.actor(env.guard), token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if !res.Usable || res.Effective != storage.StatusApproved {
		t.Errorf("Verify() = usable=%v effective=%s, want usable approved", res.Usable, res.Effective)
	}

	env.now = env.now.Add(48 * time.Hour)
	res, err = env.svc.Verify(ctx, env.actor(env.guard), token)
	if err != nil {
		t.Fatal(err)
	}
	if res.Usable || res.Effective != storage.StatusExpired {
		t.Errorf("Verify() after expiry = usable=%v effective=%s, want unusable expired", res.Usable, res.Effective)
	}

	if _, err := env.svc.Verify(ctx, env.actor(env.guard), "no-such-token"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Verify() unknown token error = %v, want ErrNotFound", err)
	}
}

func TestPendingRequestExpiresLazily(t *testing.T) {
	env := newTestEnv(t)
	id := env.submit(t)

	rec, _ := env.store.GetOutpass(context.Background(), id)
	grace := 6 * time.Hour

	if got := EffectiveStatus(&rec.Outpass, env.now, grace); got != storage.StatusPendingAdvisor {
		t.Errorf("EffectiveStatus before departure = %s", got)
	}
	late := rec.DepartAt.Add(grace + time.Minute)
	if got := EffectiveStatus(&rec.Outpass, late, grace); got != storage.StatusExpired {
		t.Errorf("EffectiveStatus past grace = %s, want expired", got)
	}
}

func TestListScoping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.submit(t)

	views, err := env.svc.List(ctx, env.actor(env.student), ListQuery{})
	if err != nil || len(views) != 1 {
		t.Fatalf("student List() = %d records, err %v", len(views), err)
	}

	otherStudent := env.store.addUser(storage.User{Username: "s2", Role: storage.RoleStudent})
	views, err = env.svc.List(ctx, env.actor(otherStudent), ListQuery{})
	if err != nil || len(views) != 0 {
		t.Errorf("other student List() = %d records, err %v", len(views), err)
	}

	if _, err := env.svc.Get(ctx, env.actor(otherStudent), id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() out of scope error = %v, want ErrNotFound", err)
	}

	views, err = env.svc.List(ctx, env.actor(env.advisor), ListQuery{})
	if err != nil || len(views) != 1 {
		t.Errorf("advisor List() = %d records, err %v", len(views), err)
	}
}

func TestListExpiredFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.submit(t)

	env.now = env.now.Add(72 * time.Hour)

	expired := storage.StatusExpired
	views, err := env.svc.List(ctx, env.actor(env.admin), ListQuery{Status: &expired})
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].EffectiveStatus != storage.StatusExpired {
		t.Errorf("expired filter returned %d records", len(views))
	}

	pending := storage.StatusPendingAdvisor
	views, err = env.svc.List(ctx, env.actor(env.admin), ListQuery{Status: &pending})
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 {
		t.Errorf("stored-status filter returned %d records", len(views))
	}
}

func TestListExpiredFilterPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Three requests that will expire, then a fresh one after the clock
	// jumps, so the newest record is not expired and a naive store-side
	// page would come up short.
	for i := 0; i < 3; i++ {
		env.submit(t)
	}
	env.now = env.now.Add(72 * time.Hour)
	env.submit(t)

	expired := storage.StatusExpired
	views, err := env.svc.List(ctx, env.actor(env.admin), ListQuery{Status: &expired, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 {
		t.Fatalf("limit 2 returned %d records, want 2", len(views))
	}
	for _, v := range views {
		if v.EffectiveStatus != storage.StatusExpired {
			t.Errorf("record %d has effective status %s, want expired", v.ID, v.EffectiveStatus)
		}
	}

	views, err = env.svc.List(ctx, env.actor(env.admin), ListQuery{Status: &expired, Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 {
		t.Errorf("limit 2 offset 2 returned %d records, want 1", len(views))
	}
}

func TestListExitRecorded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.submit(t)
	id := env.submit(t)
	token := env.approveBoth(t, id)
	if _, err := env.svc.RecordExit(ctx, env.actor(env.guard), token, "gate-1"); err != nil {
		t.Fatal(err)
	}

	views, err := env.svc.List(ctx, env.actor(env.guard), ListQuery{ExitRecorded: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].ID != id {
		t.Errorf("exit-recorded filter returned %d records", len(views))
	}
}

func TestGateSummaryCountsToday(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A trip completed yesterday must not bleed into today's counts.
	id1 := env.submit(t)
	tok1 := env.approveBoth(t, id1)
	if _, err := env.svc.RecordExit(ctx, env.actor(env.guard), tok1, "gate-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.RecordEntry(ctx, env.actor(env.guard), tok1, "gate-1"); err != nil {
		t.Fatal(err)
	}

	env.now = env.now.Add(24 * time.Hour)
	id2 := env.submit(t)
	tok2 := env.approveBoth(t, id2)
	if _, err := env.svc.RecordExit(ctx, env.actor(env.guard), tok2, "gate-1"); err != nil {
		t.Fatal(err)
	}

	sum, err := env.svc.BuildGateSummary(ctx, env.actor(env.guard))
	if err != nil {
		t.Fatalf("BuildGateSummary() error: %v", err)
	}
	if sum.ExitsToday != 1 || sum.EntriesToday != 0 || sum.CurrentlyOut != 1 {
		t.Errorf("summary = %+v, want 1 exit, 0 entries, 1 out", sum)
	}

	if _, err := env.svc.BuildGateSummary(ctx, env.actor(env.student)); !errors.Is(err, ErrForbidden) {
		t.Errorf("BuildGateSummary() as student error = %v, want ErrForbidden", err)
	}
}

func TestStatusSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.submit(t)
	id := env.submit(t)
	env.approveBoth(t, id)

	counts, err := env.svc.StatusSummary(ctx, env.actor(env.student))
	if err != nil {
		t.Fatalf("StatusSummary() error: %v", err)
	}
	if counts[storage.StatusPendingAdvisor] != 1 || counts[storage.StatusApproved] != 1 {
		t.Errorf("counts = %v, want one pending_advisor and one approved", counts)
	}
}

func TestArchiveRequiresTerminalState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.submit(t)

	err := env.svc.Archive(ctx, env.actor(env.student), id)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Archive() while pending error = %v, want ErrInvalidState", err)
	}

	if err := env.svc.Cancel(ctx, env.actor(env.student), id); err != nil {
		t.Fatal(err)
	}
	if err := env.svc.Archive(ctx, env.actor(env.student), id); err != nil {
		t.Fatalf("Archive() after cancel error: %v", err)
	}

	views, _ := env.svc.List(ctx, env.actor(env.student), ListQuery{})
	if len(views) != 0 {
		t.Errorf("archived request still listed by default")
	}
}

func TestHardDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.submit(t)

	if err := env.svc.HardDelete(ctx, env.actor(env.student), id); !errors.Is(err, ErrForbidden) {
		t.Fatalf("HardDelete() as student error = %v, want ErrForbidden", err)
	}
	if err := env.svc.HardDelete(ctx, env.actor(env.admin), id); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("HardDelete() while pending error = %v, want ErrInvalidState", err)
	}

	if err := env.svc.Cancel(ctx, env.actor(env.student), id); err != nil {
		t.Fatal(err)
	}
	if err := env.svc.HardDelete(ctx, env.actor(env.admin), id); err != nil {
		t.Fatalf("HardDelete() error: %v", err)
	}

	if _, err := env.store.GetOutpass(ctx, id); !errors.Is(err, storage.ErrNoRecord) {
		t.Error("record survived hard delete")
	}
	trail, _ := env.store.ListAudit(ctx, id)
	if len(trail) != 0 {
		t.Errorf("audit trail survived hard delete: %d entries", len(trail))
	}
}

func TestTokensAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		tok, err := generateToken()
		if err != nil {
			t.Fatal(err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[tok] = true
	}
}
