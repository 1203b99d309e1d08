package attendance

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"shapeup/internal/calendar"
	"shapeup/internal/membership"
)

var (
	ErrAlreadyRecordedToday = errors.New("attendance already recorded for this day")
	ErrMemberNotEligible    = errors.New("member is not eligible for attendance")
	ErrDateOutOfRange       = errors.New("attendance date out of range")
)

// Error carries the member and day a check-in was refused for. Compare Kind with errors.Is.
type Error struct {
	Kind     error
	MemberID string
	Date     time.Time
	Status   membership.Status
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrMemberNotEligible:
		return fmt.Sprintf("%s: member %s is %s", e.Kind, e.MemberID, e.Status)
	default:
		return fmt.Sprintf("%s: member %s on %s", e.Kind, e.MemberID, calendar.Format(e.Date))
	}
}

func (e *Error) Unwrap() error { return e.Kind }

func (e *Error) HTTPStatus() int {
	if e.Kind == ErrAlreadyRecordedToday {
		return http.StatusConflict
	}
	return http.StatusUnprocessableEntity
}

func (e *Error) ErrorCode() string {
	switch e.Kind {
	case ErrAlreadyRecordedToday:
		return "ALREADY_RECORDED_TODAY"
	case ErrMemberNotEligible:
		return "MEMBER_NOT_ELIGIBLE"
	default:
		return "ATTENDANCE_DATE_OUT_OF_RANGE"
	}
}

func (e *Error) reason() string {
	switch e.Kind {
	case ErrAlreadyRecordedToday:
		return "already_recorded"
	case ErrMemberNotEligible:
		return "not_eligible"
	default:
		return "out_of_range"
	}
}
