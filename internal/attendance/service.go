package attendance

import (
	"context"
	"errors"
	"time"

	"shapeup/internal/apperr"
	"shapeup/internal/calendar"
	"shapeup/internal/db"
	"shapeup/internal/lock"
	"shapeup/internal/logger"
	"shapeup/internal/membership"
	"shapeup/internal/metrics"
	"shapeup/internal/tracing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = tracing.Tracer("attendance")

// Memberships is the part of the membership engine the ledger drives.
type Memberships interface {
	LoadForUpdate(ctx context.Context, q sqlx.ExtContext, id string) (*membership.Member, error)
	SettleTx(ctx context.Context, q sqlx.ExtContext, m *membership.Member, total int) (*membership.Member, []membership.Transition, error)
	Announce(ctx context.Context, memberID string, steps []membership.Transition)
}

type Service interface {
	// Record adds a check-in. A blank date means today; members may only record today.
	Record(ctx context.Context, memberID, date string, actor Actor) (*Receipt, error)
	TotalFor(ctx context.Context, memberID string) (int, error)
	Entries(ctx context.Context, memberID string) ([]Entry, error)
	AttendedToday(ctx context.Context, memberID string) (bool, error)
	// Reconcile rebuilds totalAttendance from the ledger for the current period.
	Reconcile(ctx context.Context, memberID string) (*membership.Member, error)
}

type service struct {
	repo    Repository
	db      sqlx.ExtContext
	tx      db.Transactor
	members Memberships
	clock   calendar.Clock
	locks   *lock.KeyedMutex
}

// NewService must share locks with the membership engine.
func NewService(repo Repository, conn sqlx.ExtContext, tx db.Transactor, members Memberships, clock calendar.Clock, locks *lock.KeyedMutex) Service {
	return &service{
		repo:    repo,
		db:      conn,
		tx:      tx,
		members: members,
		clock:   clock,
		locks:   locks,
	}
}

func (s *service) Record(ctx context.Context, memberID, date string, actor Actor) (*Receipt, error) {
	ctx, span := tracer.Start(ctx, "attendance.Record")
	span.SetAttributes(attribute.String("member.id", memberID), attribute.String("actor", string(actor)))
	var err error
	defer func() { tracing.End(span, err) }()

	day, err := s.resolveDay(memberID, date, actor)
	if err != nil {
		s.rejected(err)
		return nil, err
	}

	unlock := s.locks.Lock(memberID)
	defer unlock()

	var (
		receipt *Receipt
		steps   []membership.Transition
	)
	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		m, err := s.members.LoadForUpdate(ctx, q, memberID)
		if err != nil {
			return err
		}
		if err := checkEligible(m, day, actor); err != nil {
			return err
		}

		exists, err := s.repo.ExistsOn(ctx, q, memberID, day)
		if err != nil {
			return err
		}
		if exists {
			return &Error{Kind: ErrAlreadyRecordedToday, MemberID: memberID, Date: day}
		}

		entry := Entry{ID: uuid.NewString(), MemberID: memberID, Date: day, RecordedBy: actor}
		if err := s.repo.Insert(ctx, q, &entry); err != nil {
			if db.IsUniqueViolation(err) {
				return &Error{Kind: ErrAlreadyRecordedToday, MemberID: memberID, Date: day}
			}
			return err
		}

		updated, settled, err := s.members.SettleTx(ctx, q, m, m.TotalAttendance+1)
		if err != nil {
			return err
		}
		receipt = &Receipt{Entry: entry, Member: *updated}
		steps = settled
		return nil
	})
	if err != nil {
		s.rejected(err)
		err = apperr.Wrap("record attendance", err)
		return nil, err
	}

	metrics.RecordAttendance(string(actor))
	logger.Info("attendance recorded",
		"member_id", memberID,
		"date", calendar.Format(day),
		"actor", actor,
		"days_left", receipt.Member.DaysLeft,
	)
	s.members.Announce(ctx, memberID, steps)
	return receipt, nil
}

func (s *service) resolveDay(memberID, date string, actor Actor) (time.Time, error) {
	today := calendar.Today(s.clock)
	if date == "" {
		return today, nil
	}
	day, err := calendar.ParseDate(date, today.Location())
	if err != nil {
		return time.Time{}, err
	}
	if calendar.DaysBetween(today, day) > 0 || (actor != ActorAdmin && !calendar.SameDay(day, today)) {
		return time.Time{}, &Error{Kind: ErrDateOutOfRange, MemberID: memberID, Date: day}
	}
	return day, nil
}

// Only active members accrue attendance. Admins may also back-fill days for expired
// members; that never changes their status.
func checkEligible(m *membership.Member, day time.Time, actor Actor) error {
	switch {
	case m.Status == membership.StatusActive:
	case m.Status == membership.StatusExpired && actor == ActorAdmin:
	default:
		return &Error{Kind: ErrMemberNotEligible, MemberID: m.ID, Date: day, Status: m.Status}
	}
	if m.StartDate != nil && calendar.DaysBetween(*m.StartDate, day) < 0 {
		return &Error{Kind: ErrDateOutOfRange, MemberID: m.ID, Date: day}
	}
	return nil
}

func (s *service) rejected(err error) {
	var ae *Error
	if errors.As(err, &ae) {
		metrics.RecordAttendanceRejected(ae.reason())
	}
}

func (s *service) TotalFor(ctx context.Context, memberID string) (int, error) {
	n, err := s.repo.Count(ctx, s.db, memberID)
	if err != nil {
		return 0, apperr.Wrap("count attendance", err)
	}
	return n, nil
}

func (s *service) Entries(ctx context.Context, memberID string) ([]Entry, error) {
	entries, err := s.repo.List(ctx, s.db, memberID)
	if err != nil {
		return nil, apperr.Wrap("list attendance", err)
	}
	return entries, nil
}

func (s *service) AttendedToday(ctx context.Context, memberID string) (bool, error) {
	ok, err := s.repo.ExistsOn(ctx, s.db, memberID, calendar.Today(s.clock))
	if err != nil {
		return false, apperr.Wrap("load attendance", err)
	}
	return ok, nil
}

func (s *service) Reconcile(ctx context.Context, memberID string) (*membership.Member, error) {
	ctx, span := tracer.Start(ctx, "attendance.Reconcile")
	span.SetAttributes(attribute.String("member.id", memberID))
	var err error
	defer func() { tracing.End(span, err) }()

	unlock := s.locks.Lock(memberID)
	defer unlock()

	var (
		updated *membership.Member
		steps   []membership.Transition
		before  int
	)
	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		m, err := s.members.LoadForUpdate(ctx, q, memberID)
		if err != nil {
			return err
		}
		if m.Status == membership.StatusFrozen {
			return &Error{Kind: ErrMemberNotEligible, MemberID: memberID, Status: m.Status}
		}
		before = m.TotalAttendance

		total := 0
		if m.StartDate != nil {
			if total, err = s.repo.CountSince(ctx, q, memberID, *m.StartDate); err != nil {
				return err
			}
		}
		updated, steps, err = s.members.SettleTx(ctx, q, m, total)
		return err
	})
	if err != nil {
		err = apperr.Wrap("reconcile attendance", err)
		return nil, err
	}

	if before != updated.TotalAttendance {
		logger.Warn("attendance total repaired",
			"member_id", memberID,
			"was", before,
			"now", updated.TotalAttendance,
		)
	}
	s.members.Announce(ctx, memberID, steps)
	return updated, nil
}
