// # Error Codes Reference
//
// This file maps internal errors to user-facing messages with codes for
// support reference. When users encounter errors, they can quote the code
// to support staff for faster diagnosis.
//
// Taxonomy errors (matched by sentinel):
//
//	REQ001 - Not found: The requested resource does not exist
//	REQ002 - Invalid argument: The request was malformed or incomplete
//	REQ003 - Invalid parent: The target parent cannot contain children
//	REQ004 - Conflict: The resource already exists
//	CAP001 - Capacity exceeded: A write exceeded the store's size ceiling
//	PRT001 - Partial completion: A bulk replace stopped mid-way
//
// Infrastructure errors (matched by pattern, case-insensitive):
//
//	DB001 - Connection refused: Unable to reach the database
//	DB002 - Connection reset: The database connection was interrupted
//	DB003 - Deadlock: The database was busy with conflicting operations
//	REQ005 - Request cancelled: "context canceled"
//	REQ006 - Request timeout: "context deadline exceeded"
//
// Fallback when nothing matches:
//
//	ERR000 - Unknown error: check application logs for the original error
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// sentinelMessages maps taxonomy sentinels to user messages. Sentinel
// matching runs before pattern matching so wrapped context in the error
// string cannot shadow the classification.
var sentinelMessages = []struct {
	sentinel error
	msg      UserMessage
}{
	{
		sentinel: ErrNotFound,
		msg: UserMessage{
			Message: "The requested resource does not exist",
			Action:  "Check the id and try again",
			Code:    "REQ001",
		},
	},
	{
		sentinel: ErrInvalidParent,
		msg: UserMessage{
			Message: "The target parent cannot contain children",
			Action:  "Choose a folder as the parent",
			Code:    "REQ003",
		},
	},
	{
		sentinel: ErrInvalidArgument,
		msg: UserMessage{
			Message: "The request was malformed or incomplete",
			Action:  "Review the request fields and try again",
			Code:    "REQ002",
		},
	},
	{
		sentinel: ErrConflict,
		msg: UserMessage{
			Message: "The resource already exists",
			Action:  "Use a different name or key",
			Code:    "REQ004",
		},
	},
	{
		sentinel: ErrCapacityExceeded,
		msg:      capacityMessage,
	},
}

// capacityMessage is shared by the sentinel table and the pre-partial check
// in MapError: a ceiling violation stays CAP001 even when it aborted a
// batched replace part-way.
var capacityMessage = UserMessage{
	Message: "A write exceeded the store's size ceiling",
	Action:  "Reduce the batch size or split the submission",
	Code:    "CAP001",
}

// errorPatterns maps technical error substrings (case-insensitive) to user
// messages. First match wins, so specific patterns come before general ones.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "The database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "The database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "REQ005",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The request timed out",
			Action:  "Try a smaller submission or check your connection",
			Code:    "REQ006",
		},
	},
}

// defaultMessage is the ERR000 fallback. Support staff should check
// application logs for the original technical error when users report it.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an internal error to a user-friendly message. Taxonomy
// sentinels are checked first, then known infrastructure patterns; anything
// else maps to the generic ERR000 fallback.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	// Ceiling violations outrank partial reporting: the size problem is
	// what the user must act on, and the partial counts still travel on
	// the error value itself.
	if errors.Is(err, ErrCapacityExceeded) {
		return capacityMessage
	}

	var partial *PartialError
	if errors.As(err, &partial) {
		return UserMessage{
			Message: fmt.Sprintf("The replace stopped at batch %d of %d; %d records were committed", partial.BatchIndex, partial.Batches, partial.Committed),
			Action:  "Re-run the full replace to reach a consistent state",
			Code:    "PRT001",
		}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.sentinel) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether the error maps to a specific known message
// rather than the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
