// Package sellers implements the OTP-gated seller registration flow: the
// per-user conversation state machine, the attempt-limited OTP check, and
// the session lifecycle around them.
package sellers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"log/slog"

	"github.com/m3rciful/marketbot/core/logger"
	"github.com/m3rciful/marketbot/storage"
	"github.com/m3rciful/marketbot/validate"
)

const svcComponent = "service.sellers"

// State identifies a step or terminal outcome of the registration flow.
type State string

const (
	// StateOTP waits for the one-time registration code.
	StateOTP State = "otp"
	// StateBusinessName waits for the business display name.
	StateBusinessName State = "business_name"
	// StateEmail waits for the business email address.
	StateEmail State = "email"
	// StatePhone waits for the contact phone number.
	StatePhone State = "phone"

	// StateDone is terminal: the seller record exists.
	StateDone State = "done"
	// StateCancelled is terminal: the user gave up via /cancel.
	StateCancelled State = "cancelled"
	// StateAborted is terminal: attempts exhausted, duplicate account, or
	// an internal failure.
	StateAborted State = "aborted"

	// StateIdle indicates there is no active session for the user.
	StateIdle State = ""
)

// Terminal reports whether st ends the conversation.
func (st State) Terminal() bool {
	switch st {
	case StateDone, StateCancelled, StateAborted:
		return true
	}
	return false
}

// User identifies the Telegram account driving a session.
type User struct {
	ID       int64
	Name     string
	Username string
}

// Reply is the outcome of one conversation step: the state the session is in
// after the step, the text to show, and whether the seller menu applies.
type Reply struct {
	State    State
	Text     string
	ShowMenu bool
}

// session is the ephemeral per-user registration record. It lives only in
// memory and is discarded on completion, cancellation or abort.
type session struct {
	id           string
	step         State
	businessName string
	email        string
	startedAt    time.Time
}

// Store is the slice of the persistence layer the flow depends on.
type Store interface {
	storage.SellerStore
	storage.OTPStore
}

// Service drives users through the registration conversation. Entry points
// serialize per user id, so duplicate or racing updates for one user are
// strictly ordered while unrelated users proceed independently.
type Service struct {
	store   Store
	tracker *AttemptTracker

	mu       sync.Mutex
	sessions map[int64]*session
	locks    map[int64]*sync.Mutex
}

// NewService builds a Service around the given store and tracker.
func NewService(store Store, tracker *AttemptTracker) *Service {
	return &Service{
		store:    store,
		tracker:  tracker,
		sessions: make(map[int64]*session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

func (s *Service) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lk, ok := s.locks[userID]
	if !ok {
		lk = &sync.Mutex{}
		s.locks[userID] = lk
	}
	return lk
}

func (s *Service) session(userID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

func (s *Service) putSession(userID int64, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = sess
}

// terminate forgets the session and attempt counters for userID.
func (s *Service) terminate(userID int64) {
	s.tracker.Clear(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// InProgress reports whether userID has an active registration session.
func (s *Service) InProgress(userID int64) bool {
	return s.session(userID) != nil
}

// Start begins the flow for u. A user who already has a seller record goes
// straight to done (the menu is shown) without the tracker being touched;
// anyone else gets a fresh session and the OTP prompt.
func (s *Service) Start(ctx context.Context, u User) (Reply, error) {
	lk := s.userLock(u.ID)
	lk.Lock()
	defer lk.Unlock()

	exists, err := s.store.SellerExists(ctx, u.ID)
	if err != nil {
		logger.Error(ctx, svcComponent, "start.check_failed",
			slog.Int64("user_id", u.ID),
			slog.String("err", err.Error()),
		)
		return Reply{State: StateAborted, Text: msgInternalCheck}, err
	}
	if exists {
		logger.Debug(ctx, svcComponent, "start.already_registered",
			slog.Int64("user_id", u.ID),
		)
		return Reply{State: StateDone, Text: fmt.Sprintf(msgWelcomeBack, u.Name), ShowMenu: true}, nil
	}

	s.tracker.Reset(u.ID)
	sess := &session{id: uuid.NewString(), step: StateOTP, startedAt: time.Now()}
	s.putSession(u.ID, sess)

	logger.Info(ctx, svcComponent, "session.started",
		slog.String("session_id", sess.id),
		slog.Int64("user_id", u.ID),
	)
	return Reply{State: StateOTP, Text: msgAskOTP}, nil
}

// HandleText feeds one user message into the session's current step.
// Without an active session the reply is idle and the text is ignored.
func (s *Service) HandleText(ctx context.Context, u User, text string) (Reply, error) {
	lk := s.userLock(u.ID)
	lk.Lock()
	defer lk.Unlock()

	sess := s.session(u.ID)
	if sess == nil {
		return Reply{State: StateIdle}, nil
	}

	text = strings.TrimSpace(text)
	switch sess.step {
	case StateOTP:
		return s.handleOTP(ctx, u, sess, text)
	case StateBusinessName:
		return s.handleBusinessName(ctx, u, sess, text)
	case StateEmail:
		return s.handleEmail(ctx, u, sess, text)
	case StatePhone:
		return s.handlePhone(ctx, u, sess, text)
	default:
		// A session should never sit in a terminal step; drop it.
		s.terminate(u.ID)
		return Reply{State: StateIdle}, nil
	}
}

// Cancel discards the session and attempt counters for userID.
func (s *Service) Cancel(ctx context.Context, userID int64) Reply {
	lk := s.userLock(userID)
	lk.Lock()
	defer lk.Unlock()

	if sess := s.session(userID); sess != nil {
		logger.Info(ctx, svcComponent, "session.cancelled",
			slog.String("session_id", sess.id),
			slog.Int64("user_id", userID),
			slog.String("step", string(sess.step)),
		)
	}
	s.terminate(userID)
	return Reply{State: StateCancelled, Text: msgCancelled}
}

// otpVerdict is the explicit outcome of one OTP verification attempt.
type otpVerdict int

const (
	otpAccepted otpVerdict = iota
	otpRejected
	otpExhausted
	otpInternalError
)

type otpResult struct {
	verdict   otpVerdict
	remaining int
	err       error
}

// checkOTPAndMark validates code under the attempt limit and, on success,
// marks it used. Marking is single-shot in the store, so a code that raced
// to used elsewhere counts as a plain rejection here.
func (s *Service) checkOTPAndMark(ctx context.Context, userID int64, code string) otpResult {
	if s.tracker.Remaining(userID) <= 0 {
		return otpResult{verdict: otpExhausted}
	}

	count := s.tracker.Record(userID)

	rejected := func() otpResult {
		remaining := MaxAttempts - count
		if remaining <= 0 {
			return otpResult{verdict: otpExhausted}
		}
		return otpResult{verdict: otpRejected, remaining: remaining}
	}

	_, err := s.store.FindValidOTP(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return rejected()
	}
	if err != nil {
		return otpResult{verdict: otpInternalError, err: err}
	}

	if err := s.store.MarkOTPUsed(ctx, code); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return rejected()
		}
		return otpResult{verdict: otpInternalError, err: err}
	}
	return otpResult{verdict: otpAccepted}
}

func (s *Service) handleOTP(ctx context.Context, u User, sess *session, code string) (Reply, error) {
	res := s.checkOTPAndMark(ctx, u.ID, code)
	switch res.verdict {
	case otpAccepted:
		sess.step = StateBusinessName
		logger.Info(ctx, svcComponent, "otp.accepted",
			slog.String("session_id", sess.id),
			slog.Int64("user_id", u.ID),
		)
		return Reply{State: StateBusinessName, Text: msgOTPVerified}, nil

	case otpRejected:
		logger.Debug(ctx, svcComponent, "otp.rejected",
			slog.String("session_id", sess.id),
			slog.Int64("user_id", u.ID),
			slog.Int("remaining", res.remaining),
		)
		return Reply{State: StateOTP, Text: fmt.Sprintf(msgOTPInvalid, res.remaining)}, nil

	case otpExhausted:
		logger.Warn(ctx, svcComponent, "otp.exhausted",
			slog.String("session_id", sess.id),
			slog.Int64("user_id", u.ID),
		)
		s.terminate(u.ID)
		return Reply{State: StateAborted, Text: msgOTPExhausted}, nil

	default:
		logger.Error(ctx, svcComponent, "otp.check_failed",
			slog.String("session_id", sess.id),
			slog.Int64("user_id", u.ID),
			slog.String("err", res.err.Error()),
		)
		s.terminate(u.ID)
		return Reply{State: StateAborted, Text: msgInternalOTP}, res.err
	}
}

func (s *Service) handleBusinessName(ctx context.Context, u User, sess *session, name string) (Reply, error) {
	if len([]rune(name)) < 2 {
		return Reply{State: StateBusinessName, Text: msgNameTooShort}, nil
	}
	sess.businessName = name
	sess.step = StateEmail
	return Reply{State: StateEmail, Text: msgAskEmail}, nil
}

func (s *Service) handleEmail(ctx context.Context, u User, sess *session, email string) (Reply, error) {
	if !validate.Email(email) {
		return Reply{State: StateEmail, Text: msgEmailInvalid}, nil
	}
	sess.email = email
	sess.step = StatePhone
	return Reply{State: StatePhone, Text: msgAskPhone}, nil
}

func (s *Service) handlePhone(ctx context.Context, u User, sess *session, phone string) (Reply, error) {
	if !validate.Phone(phone) {
		return Reply{State: StatePhone, Text: msgPhoneInvalid}, nil
	}

	// Re-check right before insert: registration may have happened through
	// another path while the flow was in flight.
	exists, err := s.store.SellerExists(ctx, u.ID)
	if err != nil {
		logger.Error(ctx, svcComponent, "commit.check_failed",
			slog.String("session_id", sess.id),
			slog.Int64("user_id", u.ID),
			slog.String("err", err.Error()),
		)
		s.terminate(u.ID)
		return Reply{State: StateAborted, Text: msgInternalCommit}, err
	}
	if exists {
		s.terminate(u.ID)
		return Reply{State: StateAborted, Text: msgAlreadyRegistered, ShowMenu: true}, nil
	}

	err = s.store.CreateSeller(ctx, storage.NewSeller{
		TelegramID:   u.ID,
		Name:         u.Name,
		Username:     u.Username,
		BusinessName: sess.businessName,
		Email:        sess.email,
		Phone:        phone,
	})
	if errors.Is(err, storage.ErrAlreadyRegistered) {
		s.terminate(u.ID)
		return Reply{State: StateAborted, Text: msgAlreadyRegistered, ShowMenu: true}, nil
	}
	if err != nil {
		logger.Error(ctx, svcComponent, "commit.failed",
			slog.String("session_id", sess.id),
			slog.Int64("user_id", u.ID),
			slog.String("err", err.Error()),
		)
		s.terminate(u.ID)
		return Reply{State: StateAborted, Text: msgInternalCommit}, err
	}

	logger.Info(ctx, svcComponent, "session.completed",
		slog.String("session_id", sess.id),
		slog.Int64("user_id", u.ID),
		slog.Duration("duration", logger.Took(sess.startedAt)),
	)
	s.terminate(u.ID)
	return Reply{State: StateDone, Text: msgRegistered, ShowMenu: true}, nil
}
