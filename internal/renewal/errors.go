package renewal

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDuplicatePendingRequest = errors.New("a renewal request is already pending")
	ErrRequestNotFound         = errors.New("renewal request not found")
	ErrRequestAlreadyResolved  = errors.New("renewal request already resolved")
)

// RequestError wraps one of the sentinels above with the ids involved.
type RequestError struct {
	Kind      error
	RequestID string
	MemberID  string
	Status    Status
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case ErrDuplicatePendingRequest:
		return fmt.Sprintf("%s for member %s", e.Kind, e.MemberID)
	case ErrRequestAlreadyResolved:
		return fmt.Sprintf("%s: %s is %s", e.Kind, e.RequestID, e.Status)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.RequestID)
	}
}

func (e *RequestError) Unwrap() error { return e.Kind }

func (e *RequestError) HTTPStatus() int {
	if e.Kind == ErrRequestNotFound {
		return http.StatusNotFound
	}
	return http.StatusConflict
}

func (e *RequestError) ErrorCode() string {
	switch e.Kind {
	case ErrDuplicatePendingRequest:
		return "DUPLICATE_PENDING_REQUEST"
	case ErrRequestNotFound:
		return "REQUEST_NOT_FOUND"
	default:
		return "REQUEST_ALREADY_RESOLVED"
	}
}
