package sellers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/marketbot/storage"
)

type fakeStore struct {
	mu      sync.Mutex
	sellers map[int64]storage.NewSeller
	otps    map[string]*storage.OTPRecord

	existsErr error
	findErr   error
	createErr error

	findCalls   int
	insertCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sellers: make(map[int64]storage.NewSeller),
		otps:    make(map[string]*storage.OTPRecord),
	}
}

func (f *fakeStore) addOTP(code string, expiresAt time.Time, used bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.otps[code] = &storage.OTPRecord{Code: code, ExpiresAt: expiresAt, Used: used}
}

func (f *fakeStore) SellerExists(_ context.Context, telegramID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.sellers[telegramID]
	return ok, nil
}

func (f *fakeStore) CreateSeller(_ context.Context, s storage.NewSeller) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.insertCalls++
	if _, ok := f.sellers[s.TelegramID]; ok {
		return storage.ErrAlreadyRegistered
	}
	f.sellers[s.TelegramID] = s
	return nil
}

func (f *fakeStore) SaveOTP(_ context.Context, code string, expiresAt time.Time) error {
	f.addOTP(code, expiresAt, false)
	return nil
}

func (f *fakeStore) FindValidOTP(_ context.Context, code string) (storage.OTPRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return storage.OTPRecord{}, f.findErr
	}
	rec, ok := f.otps[code]
	if !ok || rec.Used || !rec.ExpiresAt.After(time.Now()) {
		return storage.OTPRecord{}, storage.ErrNotFound
	}
	return *rec, nil
}

func (f *fakeStore) MarkOTPUsed(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.otps[code]
	if !ok || rec.Used {
		return storage.ErrNotFound
	}
	rec.Used = true
	return nil
}

var testUser = User{ID: 100, Name: "Ada", Username: "ada"}

func newTestService(store *fakeStore) *Service {
	return NewService(store, NewAttemptTracker())
}

func mustReply(t *testing.T, r Reply, err error, want State) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.State != want {
		t.Fatalf("state = %q, want %q (text: %s)", r.State, want, r.Text)
	}
}

func TestFullRegistrationFlow(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addOTP("482913", time.Now().Add(24*time.Hour), false)
	svc := newTestService(store)

	r, err := svc.Start(ctx, testUser)
	mustReply(t, r, err, StateOTP)
	if !svc.InProgress(testUser.ID) {
		t.Fatal("session should be in progress after start")
	}

	r, err = svc.HandleText(ctx, testUser, " 482913 ")
	mustReply(t, r, err, StateBusinessName)

	r, err = svc.HandleText(ctx, testUser, "FreshFarm Foods")
	mustReply(t, r, err, StateEmail)

	r, err = svc.HandleText(ctx, testUser, "shop@example.com")
	mustReply(t, r, err, StatePhone)

	r, err = svc.HandleText(ctx, testUser, "+2348012345678")
	mustReply(t, r, err, StateDone)
	if !r.ShowMenu {
		t.Error("done reply should show the seller menu")
	}

	if svc.InProgress(testUser.ID) {
		t.Error("session should be discarded after completion")
	}
	if svc.tracker.Tracked(testUser.ID) {
		t.Error("attempt counters should be cleared after completion")
	}

	s, ok := store.sellers[testUser.ID]
	if !ok {
		t.Fatal("seller record was not created")
	}
	if s.BusinessName != "FreshFarm Foods" || s.Email != "shop@example.com" || s.Phone != "+2348012345678" {
		t.Errorf("stored fields = %+v", s)
	}
	if s.Name != "Ada" || s.Username != "ada" {
		t.Errorf("stored identity = %+v", s)
	}

	// The code was marked used during the flow; a repeat lookup finds nothing.
	if _, err := store.FindValidOTP(ctx, "482913"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("used code lookup err = %v, want ErrNotFound", err)
	}
}

func TestOTPAttemptExhaustion(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addOTP("482913", time.Now().Add(24*time.Hour), false)
	svc := newTestService(store)

	if _, err := svc.Start(ctx, testUser); err != nil {
		t.Fatal(err)
	}

	// Two wrong guesses: remaining goes 2, then 1, state stays at the OTP step.
	for i, wantRemaining := range []int{2, 1} {
		r, err := svc.HandleText(ctx, testUser, "000000")
		mustReply(t, r, err, StateOTP)
		if want := fmt.Sprintf("%d attempts remaining", wantRemaining); !strings.Contains(r.Text, want) {
			t.Errorf("guess #%d text = %q, want mention of %q", i+1, r.Text, want)
		}
	}

	// Third wrong guess ends the session.
	r, err := svc.HandleText(ctx, testUser, "000000")
	mustReply(t, r, err, StateAborted)
	if svc.InProgress(testUser.ID) {
		t.Fatal("session should be gone after exhaustion")
	}
	if svc.tracker.Tracked(testUser.ID) {
		t.Error("attempt counters should be cleared after exhaustion")
	}

	// A fourth message is not processed as an OTP check.
	before := store.findCalls
	r, err = svc.HandleText(ctx, testUser, "482913")
	mustReply(t, r, err, StateIdle)
	if store.findCalls != before {
		t.Errorf("find calls grew from %d to %d after exhaustion", before, store.findCalls)
	}
}

func TestUsedOTPRejected(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addOTP("482913", time.Now().Add(24*time.Hour), true)
	svc := newTestService(store)

	if _, err := svc.Start(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	r, err := svc.HandleText(ctx, testUser, "482913")
	mustReply(t, r, err, StateOTP)
}

func TestExpiredOTPRejected(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addOTP("482913", time.Now().Add(-time.Minute), false)
	svc := newTestService(store)

	if _, err := svc.Start(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	r, err := svc.HandleText(ctx, testUser, "482913")
	mustReply(t, r, err, StateOTP)
}

func TestOTPSingleUseAcrossUsers(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addOTP("482913", time.Now().Add(24*time.Hour), false)
	svc := newTestService(store)

	first := User{ID: 1, Name: "First"}
	second := User{ID: 2, Name: "Second"}

	if _, err := svc.Start(ctx, first); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Start(ctx, second); err != nil {
		t.Fatal(err)
	}

	r, err := svc.HandleText(ctx, first, "482913")
	mustReply(t, r, err, StateBusinessName)

	// The same code is spent now; the second session burns an attempt on it.
	r, err = svc.HandleText(ctx, second, "482913")
	mustReply(t, r, err, StateOTP)
	if !strings.Contains(r.Text, "2 attempts remaining") {
		t.Errorf("second user text = %q", r.Text)
	}
}

func TestShortBusinessNameNeverAdvances(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addOTP("482913", time.Now().Add(24*time.Hour), false)
	svc := newTestService(store)

	if _, err := svc.Start(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.HandleText(ctx, testUser, "482913"); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"F", " F ", "", "   "} {
		r, err := svc.HandleText(ctx, testUser, name)
		mustReply(t, r, err, StateBusinessName)
	}

	r, err := svc.HandleText(ctx, testUser, "OK")
	mustReply(t, r, err, StateEmail)
}

func TestInvalidEmailAndPhoneReprompt(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addOTP("482913", time.Now().Add(24*time.Hour), false)
	svc := newTestService(store)

	if _, err := svc.Start(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.HandleText(ctx, testUser, "482913"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.HandleText(ctx, testUser, "FreshFarm Foods"); err != nil {
		t.Fatal(err)
	}

	r, err := svc.HandleText(ctx, testUser, "shop@@example")
	mustReply(t, r, err, StateEmail)

	r, err = svc.HandleText(ctx, testUser, "shop@example.com")
	mustReply(t, r, err, StatePhone)

	r, err = svc.HandleText(ctx, testUser, "12345")
	mustReply(t, r, err, StatePhone)

	r, err = svc.HandleText(ctx, testUser, "+2348012345678")
	mustReply(t, r, err, StateDone)
}

func TestStartShortCircuitsForRegisteredSeller(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.sellers[testUser.ID] = storage.NewSeller{TelegramID: testUser.ID}
	svc := newTestService(store)

	r, err := svc.Start(ctx, testUser)
	mustReply(t, r, err, StateDone)
	if !r.ShowMenu {
		t.Error("registered seller should get the menu")
	}
	if svc.InProgress(testUser.ID) {
		t.Error("no session should be created")
	}
	if svc.tracker.Tracked(testUser.ID) {
		t.Error("tracker entry must not be created for a registered seller")
	}
}

func TestCommitDuplicateReCheck(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addOTP("482913", time.Now().Add(24*time.Hour), false)
	svc := newTestService(store)

	if _, err := svc.Start(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.HandleText(ctx, testUser, "482913"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.HandleText(ctx, testUser, "FreshFarm Foods"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.HandleText(ctx, testUser, "shop@example.com"); err != nil {
		t.Fatal(err)
	}

	// Registration happened through another path mid-flow.
	store.mu.Lock()
	store.sellers[testUser.ID] = storage.NewSeller{TelegramID: testUser.ID}
	store.mu.Unlock()

	r, err := svc.HandleText(ctx, testUser, "+2348012345678")
	mustReply(t, r, err, StateAborted)
	if !r.ShowMenu {
		t.Error("duplicate abort should still show the menu")
	}
	if store.insertCalls != 0 {
		t.Errorf("insert attempted %d times despite existing record", store.insertCalls)
	}
	if svc.InProgress(testUser.ID) {
		t.Error("session should be discarded")
	}
}

func TestConcurrentStartsNeverDoubleInsert(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	for i := 0; i < 8; i++ {
		store.addOTP(fmt.Sprintf("10000%d", i), time.Now().Add(24*time.Hour), false)
	}
	svc := newTestService(store)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			if _, err := svc.Start(ctx, testUser); err != nil {
				t.Error(err)
				return
			}
			if _, err := svc.HandleText(ctx, testUser, code); err != nil {
				t.Error(err)
				return
			}
			svc.HandleText(ctx, testUser, "FreshFarm Foods")
			svc.HandleText(ctx, testUser, "shop@example.com")
			svc.HandleText(ctx, testUser, "+2348012345678")
		}(fmt.Sprintf("10000%d", i))
	}
	wg.Wait()

	if n := len(store.sellers); n > 1 {
		t.Fatalf("seller rows = %d, duplicate registration happened", n)
	}
}

func TestCancelClearsEverything(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.addOTP("482913", time.Now().Add(24*time.Hour), false)
	svc := newTestService(store)

	if _, err := svc.Start(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.HandleText(ctx, testUser, "000000"); err != nil {
		t.Fatal(err)
	}

	r := svc.Cancel(ctx, testUser.ID)
	if r.State != StateCancelled {
		t.Fatalf("state = %q", r.State)
	}
	if svc.InProgress(testUser.ID) {
		t.Error("session should be gone")
	}
	if svc.tracker.Tracked(testUser.ID) {
		t.Error("tracker should be cleared")
	}

	// Cancel with no active session still answers politely.
	r = svc.Cancel(ctx, testUser.ID)
	if r.State != StateCancelled {
		t.Fatalf("idle cancel state = %q", r.State)
	}
}

func TestStoreFailureAbortsOTPStep(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(store)

	if _, err := svc.Start(ctx, testUser); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("connection reset")
	store.mu.Lock()
	store.findErr = boom
	store.mu.Unlock()

	r, err := svc.HandleText(ctx, testUser, "482913")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if r.State != StateAborted {
		t.Fatalf("state = %q, want aborted", r.State)
	}
	if svc.InProgress(testUser.ID) {
		t.Error("session should not linger after an internal failure")
	}
}

func TestStoreFailureAbortsStart(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.existsErr = errors.New("down")
	svc := newTestService(store)

	r, err := svc.Start(ctx, testUser)
	if err == nil {
		t.Fatal("expected error")
	}
	if r.State != StateAborted {
		t.Fatalf("state = %q", r.State)
	}
	if svc.InProgress(testUser.ID) {
		t.Error("no session should exist")
	}
}

func TestTerminalStates(t *testing.T) {
	for _, st := range []State{StateDone, StateCancelled, StateAborted} {
		if !st.Terminal() {
			t.Errorf("%q should be terminal", st)
		}
	}
	for _, st := range []State{StateOTP, StateBusinessName, StateEmail, StatePhone, StateIdle} {
		if st.Terminal() {
			t.Errorf("%q should not be terminal", st)
		}
	}
}
