// Package membershiptest provides in-memory collaborators for exercising the
// membership engine without a database.
package membershiptest

import (
	"context"
	"sort"
	"sync"
	"time"

	"shapeup/internal/apperr"
	"shapeup/internal/membership"

	"github.com/jmoiron/sqlx"
)

// Store is an in-memory membership.Repository. The querier argument is ignored.
type Store struct {
	mu      sync.Mutex
	members map[string]membership.Member
	events  []membership.Event
	nextID  int64

	// FailSave makes Save return this error when set.
	FailSave error
}

func NewStore() *Store {
	return &Store{members: make(map[string]membership.Member)}
}

// Put seeds or overwrites a record.
func (s *Store) Put(m membership.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ID] = m
}

// Member returns the stored copy.
func (s *Store) Member(id string) (membership.Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	return m, ok
}

func (s *Store) Events(memberID string) []membership.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []membership.Event
	for _, e := range s.events {
		if e.MemberID == memberID {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) Insert(_ context.Context, _ sqlx.ExtContext, m *membership.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.ID]; ok {
		return &membership.DuplicateMemberError{ID: m.ID}
	}
	s.members[m.ID] = *m
	return nil
}

func (s *Store) Get(_ context.Context, _ sqlx.ExtContext, id string) (*membership.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return nil, apperr.NotFound("member", id)
	}
	return &m, nil
}

func (s *Store) GetForUpdate(ctx context.Context, q sqlx.ExtContext, id string) (*membership.Member, error) {
	return s.Get(ctx, q, id)
}

func (s *Store) Save(_ context.Context, _ sqlx.ExtContext, m *membership.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	if _, ok := s.members[m.ID]; !ok {
		return apperr.NotFound("member", m.ID)
	}
	s.members[m.ID] = *m
	return nil
}

func (s *Store) List(_ context.Context, _ sqlx.ExtContext, status membership.Status) ([]membership.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []membership.Member{}
	for _, m := range s.members {
		if status == "" || m.Status == status {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListFrozen(ctx context.Context, q sqlx.ExtContext) ([]membership.Member, error) {
	return s.List(ctx, q, membership.StatusFrozen)
}

func (s *Store) AppendEvent(_ context.Context, _ sqlx.ExtContext, e *membership.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	s.events = append(s.events, *e)
	return nil
}

func (s *Store) History(ctx context.Context, q sqlx.ExtContext, memberID string) ([]membership.Event, error) {
	return s.Events(memberID), nil
}

func (s *Store) snapshot() (map[string]membership.Member, []membership.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make(map[string]membership.Member, len(s.members))
	for k, v := range s.members {
		members[k] = v
	}
	return members, append([]membership.Event(nil), s.events...)
}

func (s *Store) restore(members map[string]membership.Member, events []membership.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = members
	s.events = events
}

// Tx runs work directly against the store and rolls it back when fn fails.
// Concurrent transactions are not isolated from each other.
type Tx struct {
	Store *Store
}

func (t Tx) WithinTx(_ context.Context, fn func(q sqlx.ExtContext) error) error {
	members, events := t.Store.snapshot()
	if err := fn(nil); err != nil {
		t.Store.restore(members, events)
		return err
	}
	return nil
}

// Plans maps service ids to max days.
type Plans map[string]int

func (p Plans) GetMaxDays(_ context.Context, serviceID string) (int, error) {
	days, ok := p[serviceID]
	if !ok {
		return 0, apperr.NotFound("service", serviceID)
	}
	return days, nil
}

type Note struct {
	RecipientID string
	Name        string
	Description string
}

// Recorder collects notifications.
type Recorder struct {
	mu    sync.Mutex
	notes []Note
}

func (r *Recorder) Notify(_ context.Context, recipientID, name, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, Note{RecipientID: recipientID, Name: name, Description: description})
}

func (r *Recorder) Notes() []Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Note(nil), r.notes...)
}

// Date builds a UTC calendar day.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
