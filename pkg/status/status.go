package status

import (
	"errors"
	"fmt"
)

// Code is a stable, comparable error classification. Values group into the
// families spec'd in §7: storage, policy/admission, routing, RPC/client,
// replication, and offline SST generation, plus a sentinel Unknown.
type Code int

const (
	OK Code = iota

	// Storage
	NotFound
	Corruption
	NotSupported
	InvalidArgument
	IOError
	MergeInProgress
	Incomplete
	ShutdownInProgress
	Timedout
	Aborted
	Busy
	Expired
	TryAgain
	CompactionTooLarge
	KeyExpired
	KeyExists
	Empty

	// Policy / admission
	OperationDenied
	TrafficRestriction
	WriteInFollower
	PartFailed

	// Routing
	NotExistsPartition
	SourceNotFound
	UnionDataTypeInvalid

	// RPC / client
	ThriftCallError
	NoShardId
	CallTimeout
	FutureTimeout

	// Replication
	SourceReadError
	SourceDbRemoved
	SourceWalLogRemoved
	RoleError

	// Offline SST generator
	TableNotExists
	GetTableLockFail
	TableProcessing
	SetQueueFail
	SetHashFail
	SetLockFail
	DelLockFail
	DelQueueFail

	UnknownError
)

var names = map[Code]string{
	OK:                   "OK",
	NotFound:             "NotFound",
	Corruption:           "Corruption",
	NotSupported:         "NotSupported",
	InvalidArgument:      "InvalidArgument",
	IOError:              "IOError",
	MergeInProgress:      "MergeInProgress",
	Incomplete:           "Incomplete",
	ShutdownInProgress:   "ShutdownInProgress",
	Timedout:             "Timedout",
	Aborted:              "Aborted",
	Busy:                 "Busy",
	Expired:              "Expired",
	TryAgain:             "TryAgain",
	CompactionTooLarge:   "CompactionTooLarge",
	KeyExpired:           "KeyExpired",
	KeyExists:            "KeyExists",
	Empty:                "Empty",
	OperationDenied:      "OperationDenied",
	TrafficRestriction:   "TrafficRestriction",
	WriteInFollower:      "WriteInFollower",
	PartFailed:           "PartFailed",
	NotExistsPartition:   "NotExistsPartition",
	SourceNotFound:       "SourceNotFound",
	UnionDataTypeInvalid: "UnionDataTypeInvalid",
	ThriftCallError:      "ThriftCallError",
	NoShardId:            "NoShardId",
	CallTimeout:          "CallTimeout",
	FutureTimeout:        "FutureTimeout",
	SourceReadError:      "SourceReadError",
	SourceDbRemoved:      "SourceDbRemoved",
	SourceWalLogRemoved:  "SourceWalLogRemoved",
	RoleError:            "RoleError",
	TableNotExists:       "TableNotExists",
	GetTableLockFail:     "GetTableLockFail",
	TableProcessing:      "TableProcessing",
	SetQueueFail:         "SetQueueFail",
	SetHashFail:          "SetHashFail",
	SetLockFail:          "SetLockFail",
	DelLockFail:          "DelLockFail",
	DelQueueFail:         "DelQueueFail",
	UnknownError:         "UnknownError",
}

func (c Code) String() string {
	if name, ok := names[c]; ok {
		return name
	}
	return "UnknownError"
}

// Error is a status code plus an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a status error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a status error with a formatted message.
func Newf(code Code, format string, args ...interface{}) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an existing cause.
func Wrap(code Code, message string, cause error) error {
	if cause == nil {
		return New(code, message)
	}
	return &Error{Code: code, Message: message, Cause: cause}
}

// Is reports whether the first *Error in err's chain carries the given code
// (the same *Error CodeOf reads); codes of status errors it wraps are not
// consulted.
func Is(err error, code Code) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// CodeOf extracts the Code from err, or UnknownError if err does not carry one.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return UnknownError
}
