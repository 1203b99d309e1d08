package renewal

import (
	"context"
	"errors"
	"fmt"

	"shapeup/internal/apperr"
	"shapeup/internal/calendar"
	"shapeup/internal/db"
	"shapeup/internal/lock"
	"shapeup/internal/logger"
	"shapeup/internal/membership"
	"shapeup/internal/metrics"
	"shapeup/internal/notify"
	"shapeup/internal/tracing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
)

// AdminRecipient is where renewal requests are announced.
const AdminRecipient = notify.AdminRecipient

var tracer = tracing.Tracer("renewal")

type Memberships interface {
	LoadForUpdate(ctx context.Context, q sqlx.ExtContext, id string) (*membership.Member, error)
	ApplyTx(ctx context.Context, q sqlx.ExtContext, m *membership.Member, cmd membership.Command) (*membership.Member, []membership.Transition, error)
	Announce(ctx context.Context, memberID string, steps []membership.Transition)
}

type Service interface {
	CreateRequest(ctx context.Context, memberID, serviceID string) (*Request, error)
	// Resolve approves or rejects a pending request. startDate is only used on
	// approval; blank means today.
	Resolve(ctx context.Context, requestID string, outcome Status, startDate string) (*Request, error)
	StatusFor(ctx context.Context, memberID string) (Status, error)
	List(ctx context.Context, status string) ([]Request, error)
}

type service struct {
	repo     Repository
	db       sqlx.ExtContext
	tx       db.Transactor
	members  Memberships
	plans    membership.PlanLookup
	notifier membership.Notifier
	clock    calendar.Clock
	locks    *lock.KeyedMutex
}

type Deps struct {
	Repo     Repository
	DB       sqlx.ExtContext
	Tx       db.Transactor
	Members  Memberships
	Plans    membership.PlanLookup
	Notifier membership.Notifier
	Clock    calendar.Clock
	// Must be the engine's lock set.
	Locks *lock.KeyedMutex
}

func NewService(d Deps) Service {
	return &service{
		repo:     d.Repo,
		db:       d.DB,
		tx:       d.Tx,
		members:  d.Members,
		plans:    d.Plans,
		notifier: d.Notifier,
		clock:    d.Clock,
		locks:    d.Locks,
	}
}

func (s *service) CreateRequest(ctx context.Context, memberID, serviceID string) (*Request, error) {
	ctx, span := tracer.Start(ctx, "renewal.CreateRequest")
	span.SetAttributes(attribute.String("member.id", memberID), attribute.String("service.id", serviceID))
	var err error
	defer func() { tracing.End(span, err) }()

	if _, err = s.plans.GetMaxDays(ctx, serviceID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(memberID)
	defer unlock()

	req := &Request{
		ID:        uuid.NewString(),
		MemberID:  memberID,
		ServiceID: serviceID,
		Status:    StatusPending,
		CreatedAt: s.clock.Now(),
	}
	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		m, err := s.members.LoadForUpdate(ctx, q, memberID)
		if err != nil {
			return err
		}
		// Approval activates; refuse requests that could never be approved.
		if _, ok := membership.Target(m.Status, membership.ActionActivate); !ok {
			return &membership.IllegalTransitionError{From: m.Status, Action: membership.ActionActivate}
		}

		pending, err := s.repo.PendingFor(ctx, q, memberID)
		if err != nil {
			return err
		}
		if pending != nil {
			return &RequestError{Kind: ErrDuplicatePendingRequest, RequestID: pending.ID, MemberID: memberID}
		}

		if err := s.repo.Insert(ctx, q, req); err != nil {
			if db.IsUniqueViolation(err) {
				return &RequestError{Kind: ErrDuplicatePendingRequest, MemberID: memberID}
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicatePendingRequest) {
			metrics.RecordRenewal("duplicate")
		}
		err = apperr.Wrap("create renewal request", err)
		return nil, err
	}

	metrics.RecordRenewal("created")
	logger.Info("renewal requested", "request_id", req.ID, "member_id", memberID, "service_id", serviceID)
	s.notify(ctx, AdminRecipient, "Renewal requested",
		fmt.Sprintf("Member %s asked to renew on plan %s.", memberID, serviceID))
	return req, nil
}

func (s *service) Resolve(ctx context.Context, requestID string, outcome Status, startDate string) (*Request, error) {
	ctx, span := tracer.Start(ctx, "renewal.Resolve")
	span.SetAttributes(attribute.String("request.id", requestID), attribute.String("outcome", string(outcome)))
	var err error
	defer func() { tracing.End(span, err) }()

	if outcome != StatusApproved && outcome != StatusRejected {
		err = apperr.Invalid("outcome", "must be approved or rejected")
		return nil, err
	}

	// The member id is needed to take the lock before the request row is locked.
	peek, err := s.repo.Get(ctx, s.db, requestID)
	if err != nil {
		err = apperr.Wrap("load renewal request", err)
		return nil, err
	}

	unlock := s.locks.Lock(peek.MemberID)
	defer unlock()

	var (
		resolved *Request
		steps    []membership.Transition
	)
	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		req, err := s.repo.GetForUpdate(ctx, q, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return &RequestError{Kind: ErrRequestAlreadyResolved, RequestID: requestID, MemberID: req.MemberID, Status: req.Status}
		}

		now := s.clock.Now()
		if outcome == StatusApproved {
			m, err := s.members.LoadForUpdate(ctx, q, req.MemberID)
			if err != nil {
				return err
			}
			start := calendar.ResolveDate(startDate, s.clock)
			activated, applied, err := s.members.ApplyTx(ctx, q, m, membership.Command{
				Action:    membership.ActionActivate,
				At:        now,
				StartDate: start,
				ServiceID: req.ServiceID,
			})
			if err != nil {
				return err
			}
			steps = applied
			req.StartDate = activated.StartDate
		}

		ok, err := s.repo.Resolve(ctx, q, requestID, outcome, req.StartDate, now)
		if err != nil {
			return err
		}
		if !ok {
			return &RequestError{Kind: ErrRequestAlreadyResolved, RequestID: requestID, MemberID: req.MemberID}
		}
		req.Status = outcome
		req.ResolvedAt = &now
		resolved = req
		return nil
	})
	if err != nil {
		err = apperr.Wrap("resolve renewal request", err)
		return nil, err
	}

	metrics.RecordRenewal(string(outcome))
	logger.Info("renewal resolved", "request_id", requestID, "member_id", resolved.MemberID, "outcome", outcome)
	s.members.Announce(ctx, resolved.MemberID, steps)
	if outcome == StatusRejected {
		s.notify(ctx, resolved.MemberID, "Renewal rejected", "Your renewal request was not approved.")
	}
	return resolved, nil
}

func (s *service) StatusFor(ctx context.Context, memberID string) (Status, error) {
	latest, err := s.repo.LatestFor(ctx, s.db, memberID)
	if err != nil {
		return "", apperr.Wrap("load renewal status", err)
	}
	if latest == nil {
		return StatusNone, nil
	}
	return latest.Status, nil
}

func (s *service) List(ctx context.Context, status string) ([]Request, error) {
	filter, err := parseFilter(status)
	if err != nil {
		return nil, err
	}
	requests, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, apperr.Wrap("list renewal requests", err)
	}
	return requests, nil
}

func (s *service) notify(ctx context.Context, recipient, name, description string) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, recipient, name, description)
	}
}
