package tour

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"homeflow/notification"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func setup() (*Service, *fakeRepo, *fakeNotifier, *fakeThreads) {
	repo := &fakeRepo{
		props: map[string]PropertyInfo{},
		tours: map[string]Tour{},
		names: map[string]string{},
	}
	notifier := &fakeNotifier{}
	threads := &fakeThreads{}
	n := 0
	svc := NewService(&fakePool{}, repo, notifier, threads).
		WithIDGenerator(func() string { n++; return fmt.Sprintf("tour-%d", n) }).
		WithClock(func() time.Time { return testNow })
	return svc, repo, notifier, threads
}

func seedProperty(repo *fakeRepo, verifier *string) {
	repo.props["prop-1"] = PropertyInfo{
		ID:         "prop-1",
		ListerID:   "lister-1",
		VerifierID: verifier,
		Address:    "4 Bourdillon Rd",
	}
	repo.names["lister-1"] = "Bola Lister"
	repo.names["agent-1"] = "Funke Agent"
}

func TestRequest_AgentFallsBackToLister(t *testing.T) {
	svc, repo, notifier, _ := setup()
	seedProperty(repo, nil)

	tour, err := svc.Request(context.Background(), RequestParams{
		PropertyID:    "prop-1",
		RenterID:      "renter-1",
		ProposedTimes: []time.Time{testNow.Add(24 * time.Hour), testNow.Add(48 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if tour.AgentID != "lister-1" {
		t.Fatalf("expected lister as agent, got %q", tour.AgentID)
	}
	if tour.Status != StatusPending {
		t.Fatalf("expected pending, got %s", tour.Status)
	}

	if len(notifier.recorded) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(notifier.recorded))
	}
	if n := notifier.recorded[0]; n.RecipientID != "lister-1" || n.Type != notification.TypeTour {
		t.Fatalf("unexpected notification %+v", n)
	}
}

func TestRequest_VerifierPreferred(t *testing.T) {
	svc, repo, notifier, _ := setup()
	verifier := "agent-1"
	seedProperty(repo, &verifier)

	tour, err := svc.Request(context.Background(), RequestParams{
		PropertyID:    "prop-1",
		RenterID:      "renter-1",
		ProposedTimes: []time.Time{testNow.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if tour.AgentID != "agent-1" {
		t.Fatalf("expected verifier as agent, got %q", tour.AgentID)
	}
	if notifier.recorded[0].RecipientID != "agent-1" {
		t.Fatalf("notification must target the verifier, got %+v", notifier.recorded[0])
	}
}

func TestRequest_Rejections(t *testing.T) {
	svc, repo, notifier, _ := setup()
	seedProperty(repo, nil)
	ctx := context.Background()

	if _, err := svc.Request(ctx, RequestParams{PropertyID: "prop-1", RenterID: "renter-1"}); !errors.Is(err, ErrNoTimes) {
		t.Fatalf("expected ErrNoTimes, got %v", err)
	}
	if _, err := svc.Request(ctx, RequestParams{
		PropertyID:    "prop-1",
		RenterID:      "renter-1",
		ProposedTimes: []time.Time{testNow.Add(-time.Hour)},
	}); !errors.Is(err, ErrPastTime) {
		t.Fatalf("expected ErrPastTime, got %v", err)
	}
	if _, err := svc.Request(ctx, RequestParams{
		PropertyID:    "prop-unknown",
		RenterID:      "renter-1",
		ProposedTimes: []time.Time{testNow.Add(time.Hour)},
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if len(notifier.recorded) != 0 {
		t.Fatalf("failed calls must emit no notifications, got %d", len(notifier.recorded))
	}
}

func TestBook_NotifiesEveryParticipantExceptRequester(t *testing.T) {
	svc, repo, notifier, _ := setup()
	verifier := "agent-1"
	seedProperty(repo, &verifier)

	tour, err := svc.Book(context.Background(), BookParams{
		PropertyID:     "prop-1",
		RenterID:       "renter-1",
		RequestedDate:  "2026-03-15",
		RequestedTime:  "14:30",
		Message:        "Can I see the kitchen?",
		ParticipantIDs: []string{"renter-1", "lister-1"},
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if len(tour.ProposedTimes) != 1 {
		t.Fatalf("expected single slot, got %d", len(tour.ProposedTimes))
	}
	if tour.Note != "Can I see the kitchen?" {
		t.Fatalf("expected note to carry the message, got %q", tour.Note)
	}

	got := map[string]bool{}
	for _, n := range notifier.recorded {
		if got[n.RecipientID] {
			t.Fatalf("duplicate notification to %s", n.RecipientID)
		}
		got[n.RecipientID] = true
	}
	if got["renter-1"] {
		t.Fatal("requester must not be notified")
	}
	if !got["lister-1"] || !got["agent-1"] {
		t.Fatalf("lister and verifier must be notified, got %v", got)
	}
}

func TestBook_SlotValidation(t *testing.T) {
	svc, repo, _, _ := setup()
	seedProperty(repo, nil)
	ctx := context.Background()

	if _, err := svc.Book(ctx, BookParams{
		PropertyID:    "prop-1",
		RenterID:      "renter-1",
		RequestedDate: "not-a-date",
		RequestedTime: "14:30",
	}); !errors.Is(err, ErrBadSlot) {
		t.Fatalf("expected ErrBadSlot, got %v", err)
	}
	if _, err := svc.Book(ctx, BookParams{
		PropertyID:    "prop-1",
		RenterID:      "renter-1",
		RequestedDate: "2020-01-01",
		RequestedTime: "09:00",
	}); !errors.Is(err, ErrPastTime) {
		t.Fatalf("expected ErrPastTime, got %v", err)
	}
}

func TestConfirm(t *testing.T) {
	svc, repo, notifier, threads := setup()
	verifier := "agent-1"
	seedProperty(repo, &verifier)

	repo.tours["tour-9"] = Tour{
		ID: "tour-9", PropertyID: "prop-1", RenterID: "renter-1", AgentID: "agent-1",
		Status: StatusPending, ProposedTimes: []time.Time{testNow.Add(time.Hour)},
	}

	when := testNow.Add(time.Hour)
	confirmed, err := svc.Confirm(context.Background(), "tour-9", when)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}
	if confirmed.ConfirmedTime == nil || !confirmed.ConfirmedTime.Equal(when) {
		t.Fatalf("expected confirmed time %v, got %+v", when, confirmed.ConfirmedTime)
	}

	if len(notifier.recorded) != 1 || notifier.recorded[0].RecipientID != "renter-1" {
		t.Fatalf("expected one notification to the renter, got %+v", notifier.recorded)
	}

	if len(threads.joins) != 1 {
		t.Fatalf("expected agent folded into thread once, got %d", len(threads.joins))
	}
	j := threads.joins[0]
	if j.propertyID != "prop-1" || j.memberID != "renter-1" || j.joinerID != "agent-1" || j.joinerName != "Funke Agent" {
		t.Fatalf("unexpected join %+v", j)
	}
}

func TestConfirm_TerminalOnce(t *testing.T) {
	svc, repo, notifier, _ := setup()
	seedProperty(repo, nil)

	first := testNow.Add(time.Hour)
	repo.tours["tour-9"] = Tour{
		ID: "tour-9", PropertyID: "prop-1", RenterID: "renter-1", AgentID: "lister-1",
		Status: StatusConfirmed, ConfirmedTime: &first,
	}

	if _, err := svc.Confirm(context.Background(), "tour-9", testNow.Add(2*time.Hour)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if got := repo.tours["tour-9"].ConfirmedTime; !got.Equal(first) {
		t.Fatalf("confirmed time must be immutable, got %v", got)
	}

	repo.tours["tour-9"] = Tour{ID: "tour-9", PropertyID: "prop-1", RenterID: "renter-1", AgentID: "lister-1", Status: StatusCancelled}
	if _, err := svc.Confirm(context.Background(), "tour-9", testNow.Add(2*time.Hour)); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for cancelled, got %v", err)
	}

	if _, err := svc.Confirm(context.Background(), "missing", testNow.Add(time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if len(notifier.recorded) != 0 {
		t.Fatalf("failed calls must emit no notifications, got %d", len(notifier.recorded))
	}
}

func TestConfirm_RejectsPastTime(t *testing.T) {
	svc, repo, notifier, _ := setup()
	seedProperty(repo, nil)
	repo.tours["tour-9"] = Tour{
		ID: "tour-9", PropertyID: "prop-1", RenterID: "renter-1", AgentID: "lister-1",
		Status: StatusPending, ProposedTimes: []time.Time{testNow.Add(time.Hour)},
	}

	if _, err := svc.Confirm(context.Background(), "tour-9", testNow.Add(-time.Hour)); !errors.Is(err, ErrPastTime) {
		t.Fatalf("expected ErrPastTime, got %v", err)
	}
	if got := repo.tours["tour-9"]; got.Status != StatusPending || got.ConfirmedTime != nil {
		t.Fatalf("rejected confirm must not touch the tour, got %+v", got)
	}
	if len(notifier.recorded) != 0 {
		t.Fatalf("failed calls must emit no notifications, got %d", len(notifier.recorded))
	}
}

func TestCancelNotifiesCounterpart(t *testing.T) {
	svc, repo, notifier, _ := setup()
	seedProperty(repo, nil)

	repo.tours["tour-9"] = Tour{
		ID: "tour-9", PropertyID: "prop-1", RenterID: "renter-1", AgentID: "lister-1",
		Status: StatusPending,
	}

	cancelled, err := svc.Cancel(context.Background(), "tour-9", "renter-1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if len(notifier.recorded) != 1 || notifier.recorded[0].RecipientID != "lister-1" {
		t.Fatalf("expected notification to the agent, got %+v", notifier.recorded)
	}
}

func TestCompleteRequiresConfirmed(t *testing.T) {
	svc, repo, _, _ := setup()
	seedProperty(repo, nil)

	repo.tours["tour-9"] = Tour{ID: "tour-9", PropertyID: "prop-1", RenterID: "renter-1", AgentID: "lister-1", Status: StatusPending}
	if _, err := svc.Complete(context.Background(), "tour-9"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	repo.tours["tour-9"] = Tour{ID: "tour-9", PropertyID: "prop-1", RenterID: "renter-1", AgentID: "lister-1", Status: StatusConfirmed}
	done, err := svc.Complete(context.Background(), "tour-9")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
}

// --- fakes ---

type fakeRepo struct {
	props map[string]PropertyInfo
	tours map[string]Tour
	names map[string]string
}

func (f *fakeRepo) GetProperty(ctx context.Context, tx pgx.Tx, propertyID string) (PropertyInfo, error) {
	p, ok := f.props[propertyID]
	if !ok {
		return PropertyInfo{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) GetUserName(ctx context.Context, tx pgx.Tx, userID string) (string, error) {
	name, ok := f.names[userID]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

func (f *fakeRepo) Insert(ctx context.Context, tx pgx.Tx, t Tour) (Tour, error) {
	t.Status = StatusPending
	f.tours[t.ID] = t
	return t, nil
}

func (f *fakeRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Tour, error) {
	t, ok := f.tours[id]
	if !ok {
		return Tour{}, ErrNotFound
	}
	return t, nil
}

func (f *fakeRepo) Confirm(ctx context.Context, tx pgx.Tx, id string, confirmedTime time.Time) (Tour, error) {
	t, ok := f.tours[id]
	if !ok || t.Status != StatusPending {
		return Tour{}, ErrInvalidState
	}
	t.Status = StatusConfirmed
	t.ConfirmedTime = &confirmedTime
	f.tours[id] = t
	return t, nil
}

func (f *fakeRepo) SetStatus(ctx context.Context, tx pgx.Tx, id string, from []Status, to Status) (Tour, error) {
	t, ok := f.tours[id]
	if !ok {
		return Tour{}, ErrInvalidState
	}
	allowed := false
	for _, s := range from {
		if t.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return Tour{}, ErrInvalidState
	}
	t.Status = to
	f.tours[id] = t
	return t, nil
}

type fakeNotifier struct {
	recorded []notification.RecordParams
}

func (f *fakeNotifier) Record(ctx context.Context, tx pgx.Tx, params notification.RecordParams) (notification.Notification, error) {
	f.recorded = append(f.recorded, params)
	return notification.Notification{ID: "n", RecipientID: params.RecipientID, Type: params.Type}, nil
}

type joinCall struct {
	propertyID, memberID, joinerID, joinerName string
}

type fakeThreads struct {
	joins []joinCall
}

func (f *fakeThreads) JoinPropertyThread(ctx context.Context, tx pgx.Tx, propertyID, memberID, joinerID, joinerName string) (bool, error) {
	f.joins = append(f.joins, joinCall{propertyID, memberID, joinerID, joinerName})
	return true, nil
}

type fakePool struct{}

func (f *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	return &fakeTx{}, nil
}

type fakeTx struct {
	rolled    bool
	committed bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolled = true
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn {
	return nil
}
