// Package policy decides who may do what to which resource. Decide is a pure function:
// it reads nothing but its arguments and has no side effects.
package policy

import (
	"errors"

	"github.com/google/uuid"
)

// ErrPermissionDenied is the error form of every deny decision.
var ErrPermissionDenied = errors.New("you do not have permission to perform this action")

type Resource string

const (
	Books      Resource = "books"
	Borrowings Resource = "borrowings"
)

type Action string

const (
	ActionList        Action = "list"
	ActionRetrieve    Action = "retrieve"
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionUploadImage Action = "upload_image"
	ActionReturn      Action = "return"
)

// Requester is the caller of an operation. The zero value is anonymous.
type Requester struct {
	UserID        uuid.UUID
	Authenticated bool
	IsStaff       bool
}

// Anonymous is a requester without credentials.
var Anonymous = Requester{}

type Decision int

const (
	Allow Decision = iota
	// DenyUnauthenticated means the action needs credentials the requester did not present.
	DenyUnauthenticated
	// DenyForbidden means the requester is known but lacks the privilege.
	DenyForbidden
	// DenyMethod means nobody may perform the action on the resource.
	DenyMethod
)

func (d Decision) Allowed() bool { return d == Allow }

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "deny_unauthenticated"
	case DenyForbidden:
		return "deny_forbidden"
	case DenyMethod:
		return "deny_method"
	default:
		return "unknown"
	}
}

// Err returns nil for Allow and ErrPermissionDenied otherwise.
func (d Decision) Err() error {
	if d == Allow {
		return nil
	}
	return ErrPermissionDenied
}

// Decide applies the access rules:
//
//   - books: anyone may list and retrieve; every mutation is staff only.
//   - borrowings: list, retrieve, create and return need an authenticated requester.
//     Listing and retrieval are narrowed to the requester's own records by the
//     borrowing service, and return additionally requires ownership, which the
//     service reports as not found. Generic update and delete are not offered.
//
// Unknown resources and actions are denied.
func Decide(req Requester, action Action, resource Resource) Decision {
	switch resource {
	case Books:
		return decideBooks(req, action)
	case Borrowings:
		return decideBorrowings(req, action)
	default:
		return DenyForbidden
	}
}

func decideBooks(req Requester, action Action) Decision {
	switch action {
	case ActionList, ActionRetrieve:
		return Allow
	case ActionCreate, ActionUpdate, ActionDelete, ActionUploadImage:
		return requireStaff(req)
	default:
		return DenyMethod
	}
}

func decideBorrowings(req Requester, action Action) Decision {
	switch action {
	case ActionList, ActionRetrieve, ActionCreate, ActionReturn:
		if !req.Authenticated {
			return DenyUnauthenticated
		}
		return Allow
	default:
		return DenyMethod
	}
}

func requireStaff(req Requester) Decision {
	if !req.Authenticated {
		return DenyUnauthenticated
	}
	if !req.IsStaff {
		return DenyForbidden
	}
	return Allow
}
