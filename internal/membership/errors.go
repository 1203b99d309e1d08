package membership

import (
	"fmt"
	"net/http"
)

// DuplicateMemberError is returned when registering an id that already exists.
type DuplicateMemberError struct {
	ID string
}

func (e *DuplicateMemberError) Error() string {
	return fmt.Sprintf("member %q already exists", e.ID)
}

func (e *DuplicateMemberError) HTTPStatus() int   { return http.StatusConflict }
func (e *DuplicateMemberError) ErrorCode() string { return "MEMBER_EXISTS" }
