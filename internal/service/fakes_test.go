package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sekolahku/portal/internal/domain"
	"github.com/sekolahku/portal/internal/events"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users []*domain.User
	osis  map[string]bool
	err   error
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username && u.Role == user.Role {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	user.ID = "u-" + user.Username
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users = append(r.users, user)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByUsernameAndRole(_ context.Context, username string, role domain.Role) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Username == username && u.Role == role {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetOsisCandidate(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var fallback *domain.User
	for _, u := range r.users {
		if u.Username != username {
			continue
		}
		if u.Role == domain.RoleOsis {
			return u, nil
		}
		if u.Role == domain.RoleSiswa && r.osis[u.ID] {
			fallback = u
		}
	}
	if fallback == nil {
		return nil, pgx.ErrNoRows
	}
	return fallback, nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []domain.LoginAttempt
	resolved []string
}

func (r *fakeAttemptRepo) Create(_ context.Context, attempt *domain.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, *attempt)
	return nil
}

func (r *fakeAttemptRepo) ResolveFailures(_ context.Context, username string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = append(r.resolved, username)
	return 1, nil
}

type fakeStudentRepo struct {
	mu       sync.Mutex
	students map[string]*domain.Student
	err      error
	lookups  int
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{students: map[string]*domain.Student{}}
}

func (r *fakeStudentRepo) Create(_ context.Context, student *domain.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	student.ID = "s-" + student.UserID
	r.students[student.UserID] = student
	return nil
}

func (r *fakeStudentRepo) GetByUserID(_ context.Context, userID string) (*domain.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

func (r *fakeStudentRepo) GetOsisAccess(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.err != nil {
		return false, r.err
	}
	s, ok := r.students[userID]
	return ok && s.OsisAccess, nil
}

func (r *fakeStudentRepo) SetOsisAccess(_ context.Context, userID string, granted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	s.OsisAccess = granted
	return nil
}

type eventSink struct {
	mu     sync.Mutex
	events []events.Event
}

func newEventSink(d events.Dispatcher, types ...events.EventType) *eventSink {
	sink := &eventSink{}
	for _, et := range types {
		d.Subscribe(et, func(_ context.Context, e events.Event) error {
			sink.mu.Lock()
			defer sink.mu.Unlock()
			sink.events = append(sink.events, e)
			return nil
		})
	}
	return sink
}

func (s *eventSink) types() []events.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

var errStorage = errors.New("connection refused")
