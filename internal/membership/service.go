package membership

import (
	"context"
	"fmt"
	"time"

	"shapeup/internal/apperr"
	"shapeup/internal/calendar"
	"shapeup/internal/db"
	"shapeup/internal/lock"
	"shapeup/internal/logger"
	"shapeup/internal/metrics"
	"shapeup/internal/notify"
	"shapeup/internal/tracing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = tracing.Tracer("membership")

// Member ids double as notification recipients, so shared inbox ids cannot be taken.
var reservedIDs = map[string]bool{
	notify.AdminRecipient: true,
}

// PlanLookup resolves a service id to the attendance-days it grants.
type PlanLookup interface {
	GetMaxDays(ctx context.Context, serviceID string) (int, error)
}

// Notifier is fire-and-forget: it reports its own failures.
type Notifier interface {
	Notify(ctx context.Context, recipientID, name, description string)
}

// AttendanceProbe answers whether a member has a ledger entry on a day.
type AttendanceProbe interface {
	ExistsOn(ctx context.Context, q sqlx.ExtContext, memberID string, day time.Time) (bool, error)
}

// Service is the status transition engine and the only writer of member records.
type Service interface {
	Register(ctx context.Context, serviceID, id string) (*Member, error)
	Get(ctx context.Context, id string) (*MemberView, error)
	List(ctx context.Context, status string) ([]MemberView, error)
	History(ctx context.Context, id string) ([]Event, error)
	OverdueFreezes(ctx context.Context, asOf string) ([]MemberView, error)

	Activate(ctx context.Context, id, startDate string) (*Member, error)
	Deactivate(ctx context.Context, id string) (*Member, error)
	Freeze(ctx context.Context, id string, days int) (*Member, error)
	Unfreeze(ctx context.Context, id string) (*Member, error)
	MarkDormant(ctx context.Context, id string) (*Member, error)

	TxEngine
}

// TxEngine is used by the ledger and the renewal workflow to change a record inside
// their own transaction. Callers hold the member lock and call Announce after commit.
type TxEngine interface {
	LoadForUpdate(ctx context.Context, q sqlx.ExtContext, id string) (*Member, error)
	ApplyTx(ctx context.Context, q sqlx.ExtContext, m *Member, cmd Command) (*Member, []Transition, error)
	SettleTx(ctx context.Context, q sqlx.ExtContext, m *Member, total int) (*Member, []Transition, error)
	Announce(ctx context.Context, memberID string, steps []Transition)
}

type service struct {
	repo       Repository
	db         sqlx.ExtContext
	tx         db.Transactor
	plans      PlanLookup
	attendance AttendanceProbe
	notifier   Notifier
	clock      calendar.Clock
	locks      *lock.KeyedMutex
}

type Deps struct {
	Repo       Repository
	DB         sqlx.ExtContext
	Tx         db.Transactor
	Plans      PlanLookup
	Attendance AttendanceProbe
	Notifier   Notifier
	Clock      calendar.Clock
	Locks      *lock.KeyedMutex
}

func NewService(d Deps) Service {
	if d.Clock == nil {
		d.Clock = calendar.SystemClock{}
	}
	if d.Locks == nil {
		d.Locks = lock.NewKeyedMutex()
	}
	return &service{
		repo:       d.Repo,
		db:         d.DB,
		tx:         d.Tx,
		plans:      d.Plans,
		attendance: d.Attendance,
		notifier:   d.Notifier,
		clock:      d.Clock,
		locks:      d.Locks,
	}
}

// Register creates a pending record. A blank id gets a generated one.
func (s *service) Register(ctx context.Context, serviceID, id string) (*Member, error) {
	ctx, span := tracer.Start(ctx, "membership.Register")
	var err error
	defer func() { tracing.End(span, err) }()

	if reservedIDs[id] {
		err = apperr.Invalid("member_id", "is reserved")
		return nil, err
	}

	maxDays, err := s.plans.GetMaxDays(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}

	now := s.clock.Now()
	m := &Member{
		ID:                id,
		Status:            StatusPending,
		ServiceID:         serviceID,
		DaysLeft:          remaining(maxDays, 0),
		FirstRegisteredAt: now,
		UpdatedAt:         now,
	}
	span.SetAttributes(attribute.String("member.id", id))

	if err = s.repo.Insert(ctx, s.db, m); err != nil {
		if db.IsUniqueViolation(err) {
			err = &DuplicateMemberError{ID: id}
			return nil, err
		}
		err = apperr.Wrap("register member", err)
		return nil, err
	}

	logger.Info("member registered", "member_id", id, "service_id", serviceID)
	return m, nil
}

func (s *service) Get(ctx context.Context, id string) (*MemberView, error) {
	m, err := s.repo.Get(ctx, s.db, id)
	if err != nil {
		return nil, apperr.Wrap("load member", err)
	}
	v := s.view(*m)

	if s.attendance != nil {
		attended, err := s.attendance.ExistsOn(ctx, s.db, id, calendar.Today(s.clock))
		if err != nil {
			return nil, apperr.Wrap("load attendance", err)
		}
		v.AttendedToday = &attended
	}
	return &v, nil
}

func (s *service) List(ctx context.Context, status string) ([]MemberView, error) {
	var filter Status
	if status != "" {
		st, err := ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filter = st
	}

	members, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, apperr.Wrap("list members", err)
	}
	views := make([]MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, s.view(m))
	}
	return views, nil
}

func (s *service) History(ctx context.Context, id string) ([]Event, error) {
	if _, err := s.repo.Get(ctx, s.db, id); err != nil {
		return nil, apperr.Wrap("load member", err)
	}
	events, err := s.repo.History(ctx, s.db, id)
	if err != nil {
		return nil, apperr.Wrap("load history", err)
	}
	return events, nil
}

// OverdueFreezes lists frozen members whose freeze window ended on or before asOf
// (blank means today). Nothing is unfrozen.
func (s *service) OverdueFreezes(ctx context.Context, asOf string) ([]MemberView, error) {
	day := calendar.Today(s.clock)
	if asOf != "" {
		parsed, err := calendar.ParseDate(asOf, day.Location())
		if err != nil {
			return nil, err
		}
		day = parsed
	}

	frozen, err := s.repo.ListFrozen(ctx, s.db)
	if err != nil {
		return nil, apperr.Wrap("list frozen members", err)
	}
	overdue := []MemberView{}
	for _, m := range frozen {
		end := FreezeEndsOn(m)
		if end != nil && calendar.DaysBetween(*end, day) >= 0 {
			overdue = append(overdue, s.view(m))
		}
	}
	return overdue, nil
}

func (s *service) Activate(ctx context.Context, id, startDate string) (*Member, error) {
	return s.run(ctx, id, Command{Action: ActionActivate, StartDate: calendar.ResolveDate(startDate, s.clock)})
}

func (s *service) Deactivate(ctx context.Context, id string) (*Member, error) {
	return s.run(ctx, id, Command{Action: ActionDeactivate})
}

func (s *service) Freeze(ctx context.Context, id string, days int) (*Member, error) {
	return s.run(ctx, id, Command{Action: ActionFreeze, Days: days})
}

func (s *service) Unfreeze(ctx context.Context, id string) (*Member, error) {
	return s.run(ctx, id, Command{Action: ActionUnfreeze})
}

func (s *service) MarkDormant(ctx context.Context, id string) (*Member, error) {
	return s.run(ctx, id, Command{Action: ActionDormant})
}

// run executes one command as its own unit of work.
func (s *service) run(ctx context.Context, id string, cmd Command) (*Member, error) {
	ctx, span := tracer.Start(ctx, "membership."+string(cmd.Action),
		trace.WithAttributes(attribute.String("member.id", id)))
	var err error
	defer func() { tracing.End(span, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	var (
		updated *Member
		steps   []Transition
	)
	err = s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
		m, err := s.LoadForUpdate(ctx, q, id)
		if err != nil {
			return err
		}
		updated, steps, err = s.ApplyTx(ctx, q, m, cmd)
		return err
	})
	if err != nil {
		err = apperr.Wrap(string(cmd.Action)+" member", err)
		return nil, err
	}

	s.Announce(ctx, id, steps)
	return updated, nil
}

func (s *service) LoadForUpdate(ctx context.Context, q sqlx.ExtContext, id string) (*Member, error) {
	return s.repo.GetForUpdate(ctx, q, id)
}

// ApplyTx validates and applies cmd to m, persisting the record and its history.
func (s *service) ApplyTx(ctx context.Context, q sqlx.ExtContext, m *Member, cmd Command) (*Member, []Transition, error) {
	if _, ok := Target(m.Status, cmd.Action); !ok {
		metrics.RecordRejectedTransition(string(m.Status), string(cmd.Action))
		return nil, nil, &IllegalTransitionError{From: m.Status, Action: cmd.Action}
	}

	serviceID := m.ServiceID
	if cmd.Action == ActionActivate && cmd.ServiceID != "" {
		serviceID = cmd.ServiceID
	}
	maxDays, err := s.plans.GetMaxDays(ctx, serviceID)
	if err != nil {
		return nil, nil, err
	}

	if cmd.At.IsZero() {
		cmd.At = s.clock.Now()
	}
	next, steps, err := Apply(*m, cmd, maxDays)
	if err != nil {
		return nil, nil, err
	}
	if err := s.persist(ctx, q, &next, steps); err != nil {
		return nil, nil, err
	}
	return &next, steps, nil
}

// SettleTx records a new attendance total and expires the member if it ran out of days.
func (s *service) SettleTx(ctx context.Context, q sqlx.ExtContext, m *Member, total int) (*Member, []Transition, error) {
	maxDays, err := s.plans.GetMaxDays(ctx, m.ServiceID)
	if err != nil {
		return nil, nil, err
	}
	next, steps := Settle(*m, total, maxDays)
	if err := s.persist(ctx, q, &next, steps); err != nil {
		return nil, nil, err
	}
	return &next, steps, nil
}

func (s *service) persist(ctx context.Context, q sqlx.ExtContext, m *Member, steps []Transition) error {
	now := s.clock.Now()
	m.UpdatedAt = now
	if err := s.repo.Save(ctx, q, m); err != nil {
		return err
	}
	for _, st := range steps {
		ev := &Event{MemberID: m.ID, FromStatus: st.From, ToStatus: st.To, Action: st.Action, OccurredAt: now}
		if err := s.repo.AppendEvent(ctx, q, ev); err != nil {
			return err
		}
	}
	return nil
}

// Announce records metrics and notifies the member for each committed step.
func (s *service) Announce(ctx context.Context, memberID string, steps []Transition) {
	for _, st := range steps {
		metrics.RecordTransition(string(st.From), string(st.To), string(st.Action))
		logger.Info("membership status changed",
			"member_id", memberID,
			"from", st.From,
			"to", st.To,
			"action", st.Action,
		)
		if s.notifier != nil {
			name, description := notification(st)
			s.notifier.Notify(ctx, memberID, name, description)
		}
	}
}

func (s *service) view(m Member) MemberView {
	v := MemberView{Member: m, FreezeEndsOn: FreezeEndsOn(m)}
	if m.StartDate != nil {
		n := calendar.DaysBetween(*m.StartDate, calendar.Today(s.clock))
		v.DaysSinceStart = &n
	}
	return v
}

func notification(st Transition) (string, string) {
	switch st.To {
	case StatusActive:
		if st.Action == ActionUnfreeze {
			return "Membership resumed", "Your membership is active again. Remaining days are unchanged."
		}
		return "Membership activated", "Your membership is now active."
	case StatusInactive:
		return "Membership deactivated", "Your membership has been deactivated."
	case StatusFrozen:
		return "Membership frozen", "Your membership is frozen. Remaining days are kept until it resumes."
	case StatusDormant:
		return "Membership dormant", "Your membership has been marked dormant."
	case StatusExpired:
		return "Membership expired", "You have used all attendance days on your plan. Request a renewal to continue."
	default:
		return "Membership updated", fmt.Sprintf("Your membership is now %s.", st.To)
	}
}
