package core

// error_messages.go maps technical errors to user messages with support codes.
//
// # Error Codes Reference
//
// Validation (VAL001-VAL099):
//
//	VAL001 - Form has invalid fields          ("validation failed")
//	VAL002 - Value is not a number            ("must be a valid number")
//	VAL003 - Required field is empty          ("is required")
//	VAL004 - Request body is not valid JSON   ("invalid request body")
//
// Import (IMP001-IMP099):
//
//	IMP001 - Too many imports in progress     ("too many concurrent imports")
//	IMP002 - Import timed out                 ("context deadline exceeded")
//	IMP003 - Import cancelled                 ("context canceled")
//
// File (FILE001-FILE099):
//
//	FILE001 - File too large                  ("file too large")
//	FILE002 - No file selected                ("no file provided")
//	FILE003 - File has no data rows           ("empty file")
//	FILE004 - File could not be read          ("read import file")
//
// Observations (OBS001-OBS099):
//
//	OBS001 - Observation not found            ("observation not found")
//	OBS002 - Duplicate observation ID         ("duplicate observation id")
//
// Analysis (ANL001-ANL099):
//
//	ANL001 - Analysis service unavailable     ("analysis service")
//	ANL002 - Nothing to analyze               ("no observations")
//	ANL003 - Invalid prediction input         ("must be greater than 0")
//
// RATE001 is request throttling; ERR000 is the fallback when nothing matches.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Validation
	{
		pattern: "validation failed",
		msg: UserMessage{
			Message: "Some fields are invalid",
			Action:  "Correct the highlighted fields and submit again",
			Code:    "VAL001",
		},
	},
	{
		pattern: "must be a valid number",
		msg: UserMessage{
			Message: "A numeric field contains an invalid number",
			Action:  "Use plain decimal numbers such as 3.52 or 1200",
			Code:    "VAL002",
		},
	},
	{
		pattern: "is required",
		msg: UserMessage{
			Message: "A required field is empty",
			Action:  "Fill in every required field",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Send a valid JSON body",
			Code:    "VAL004",
		},
	},

	// Import
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "Too many imports in progress",
			Action:  "Please wait a moment and try again",
			Code:    "IMP001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "IMP002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "IMP003",
		},
	},

	// File
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to import",
			Code:    "FILE002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Import a CSV file with a header and data rows",
			Code:    "FILE003",
		},
	},
	{
		pattern: "read import file",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Check the file and try again",
			Code:    "FILE004",
		},
	},

	// Observations
	{
		pattern: "observation not found",
		msg: UserMessage{
			Message: "Observation not found",
			Action:  "Refresh the list; it may have been deleted",
			Code:    "OBS001",
		},
	},
	{
		pattern: "duplicate observation id",
		msg: UserMessage{
			Message: "An observation with this ID already exists",
			Action:  "Create the observation again to get a new ID",
			Code:    "OBS002",
		},
	},

	// Analysis
	{
		pattern: "analysis service",
		msg: UserMessage{
			Message: "The analysis service is unavailable",
			Action:  "Please try again in a few moments",
			Code:    "ANL001",
		},
	},
	{
		pattern: "no observations",
		msg: UserMessage{
			Message: "There are no observations to analyze",
			Action:  "Add or import observations first",
			Code:    "ANL002",
		},
	},
	{
		pattern: "must be greater than 0",
		msg: UserMessage{
			Message: "A value is below its minimum",
			Action:  "Use values greater than 0",
			Code:    "ANL003",
		},
	},

	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is the ERR000 fallback. Support should check the server
// logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the zero UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
