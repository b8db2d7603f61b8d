package ldap

import (
	"errors"
	"fmt"
	"net"

	"github.com/go-ldap/ldap/v3"
)

// ErrorKind identifies the harvest failure taxonomy reported to callers.
type ErrorKind string

const (
	ErrorKindConnectionExhausted ErrorKind = "connection_exhausted"
	ErrorKindRetrievalFailed     ErrorKind = "retrieval_failed"
	ErrorKindMissingAttribute    ErrorKind = "missing_attribute"
	ErrorKindUnknown             ErrorKind = "unknown"
)

// KindError is implemented by every error of the harvest taxonomy.
type KindError interface {
	error
	Kind() ErrorKind
}

// KindOf returns the taxonomy kind of err, or ErrorKindUnknown.
func KindOf(err error) ErrorKind {
	var kindErr KindError
	if errors.As(err, &kindErr) {
		return kindErr.Kind()
	}
	return ErrorKindUnknown
}

// ConnectionExhaustedError is returned when every connection attempt failed.
type ConnectionExhaustedError struct {
	Attempts int   // Attempts made before giving up
	Cause    error // Last connection error, or the context error if the wait was cancelled
}

func (e *ConnectionExhaustedError) Error() string {
	return fmt.Sprintf("directory connection could not be established after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *ConnectionExhaustedError) Kind() ErrorKind {
	return ErrorKindConnectionExhausted
}

func (e *ConnectionExhaustedError) Unwrap() error {
	return e.Cause
}

// RetrievalFailedError identifies which of the four searches failed.
type RetrievalFailedError struct {
	Stage  Stage
	BaseDN string
	Cause  error
}

func (e *RetrievalFailedError) Error() string {
	return fmt.Sprintf("retrieval of %s from %q failed: %v", e.Stage, e.BaseDN, e.Cause)
}

func (e *RetrievalFailedError) Kind() ErrorKind {
	return ErrorKindRetrievalFailed
}

func (e *RetrievalFailedError) Unwrap() error {
	return e.Cause
}

// ErrorCategory classifies the protocol failure behind a harvest error.
type ErrorCategory string

const (
	ErrorCategoryConnection     ErrorCategory = "connection"
	ErrorCategoryAuthentication ErrorCategory = "authentication"
	ErrorCategoryPermission     ErrorCategory = "permission"
	ErrorCategoryNotFound       ErrorCategory = "not_found"
	ErrorCategoryLimit          ErrorCategory = "limit"
	ErrorCategoryServer         ErrorCategory = "server"
	ErrorCategoryUnknown        ErrorCategory = "unknown"
)

// OperationError records which directory operation failed and how.
type OperationError struct {
	Operation string // dial, start_tls, bind, discover, search or unbind
	Category  ErrorCategory
	Code      uint16 // LDAP result code, zero when the server sent none
	Cause     error
}

func (e *OperationError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("LDAP %s failed (%s): %v", e.Operation, ldap.LDAPResultCodeMap[e.Code], e.Cause)
	}
	return fmt.Sprintf("LDAP %s failed: %v", e.Operation, e.Cause)
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// WrapError tags err with the operation that produced it. A nil err stays nil.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}

	opErr := &OperationError{Operation: operation, Cause: err}

	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		opErr.Code = ldapErr.ResultCode
	}
	opErr.Category = categorize(operation, opErr.Code, err)

	return opErr
}

func categorize(operation string, code uint16, err error) ErrorCategory {
	switch code {
	case ldap.ErrorNetwork, ldap.LDAPResultUnavailable:
		return ErrorCategoryConnection
	case ldap.LDAPResultInvalidCredentials, ldap.LDAPResultInappropriateAuthentication:
		return ErrorCategoryAuthentication
	case ldap.LDAPResultInsufficientAccessRights:
		return ErrorCategoryPermission
	case ldap.LDAPResultNoSuchObject:
		return ErrorCategoryNotFound
	case ldap.LDAPResultTimeLimitExceeded, ldap.LDAPResultSizeLimitExceeded:
		return ErrorCategoryLimit
	case ldap.LDAPResultBusy, ldap.LDAPResultUnwillingToPerform, ldap.LDAPResultOther:
		return ErrorCategoryServer
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorCategoryConnection
	}

	if code == 0 {
		switch operation {
		case "dial", "start_tls", "discover":
			return ErrorCategoryConnection
		case "bind":
			return ErrorCategoryAuthentication
		}
	}

	return ErrorCategoryUnknown
}

// CategoryOf returns the category of the first OperationError in err's chain.
func CategoryOf(err error) ErrorCategory {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Category
	}
	return ErrorCategoryUnknown
}

// IsRetryable reports whether another connection attempt may succeed.
func IsRetryable(err error) bool {
	switch CategoryOf(err) {
	case ErrorCategoryConnection, ErrorCategoryServer:
		return true
	default:
		return false
	}
}
