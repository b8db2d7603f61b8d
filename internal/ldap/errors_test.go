package ldap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapError(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	tests := []struct {
		name      string
		operation string
		err       error
		category  ErrorCategory
		code      uint16
		retryable bool
	}{
		{
			name:      "dial refused",
			operation: "dial",
			err:       fmt.Errorf("failed to connect to ldap://127.0.0.1:1: %w", ldap.NewError(ldap.ErrorNetwork, refused)),
			category:  ErrorCategoryConnection,
			code:      ldap.ErrorNetwork,
			retryable: true,
		},
		{
			name:      "dial without result code",
			operation: "dial",
			err:       refused,
			category:  ErrorCategoryConnection,
			retryable: true,
		},
		{
			name:      "invalid credentials",
			operation: "bind",
			err:       ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials")),
			category:  ErrorCategoryAuthentication,
			code:      ldap.LDAPResultInvalidCredentials,
		},
		{
			name:      "bind rejected before sending",
			operation: "bind",
			err:       errors.New("password is required"),
			category:  ErrorCategoryAuthentication,
		},
		{
			name:      "search base missing",
			operation: "search",
			err:       ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object")),
			category:  ErrorCategoryNotFound,
			code:      ldap.LDAPResultNoSuchObject,
		},
		{
			name:      "search time limit",
			operation: "search",
			err:       ldap.NewError(ldap.LDAPResultTimeLimitExceeded, errors.New("time limit exceeded")),
			category:  ErrorCategoryLimit,
			code:      ldap.LDAPResultTimeLimitExceeded,
		},
		{
			name:      "search size limit",
			operation: "search",
			err:       ldap.NewError(ldap.LDAPResultSizeLimitExceeded, errors.New("size limit exceeded")),
			category:  ErrorCategoryLimit,
			code:      ldap.LDAPResultSizeLimitExceeded,
		},
		{
			name:      "search server busy",
			operation: "search",
			err:       ldap.NewError(ldap.LDAPResultBusy, errors.New("busy")),
			category:  ErrorCategoryServer,
			code:      ldap.LDAPResultBusy,
			retryable: true,
		},
		{
			name:      "search plain error",
			operation: "search",
			err:       errors.New("boom"),
			category:  ErrorCategoryUnknown,
		},
		{
			name:      "unbind on closed connection",
			operation: "unbind",
			err:       ldap.NewError(ldap.ErrorNetwork, errors.New("ldap: connection closed")),
			category:  ErrorCategoryConnection,
			code:      ldap.ErrorNetwork,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapError(tt.operation, tt.err)

			var opErr *OperationError
			require.ErrorAs(t, err, &opErr)
			assert.Equal(t, tt.operation, opErr.Operation)
			assert.Equal(t, tt.category, opErr.Category)
			assert.Equal(t, tt.code, opErr.Code)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.category, CategoryOf(err))
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestWrapError_Nil(t *testing.T) {
	assert.NoError(t, WrapError("search", nil))
}

func TestOperationError_Error(t *testing.T) {
	withCode := WrapError("search", ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object")))
	assert.Contains(t, withCode.Error(), "LDAP search failed (No Such Object)")

	withoutCode := WrapError("bind", errors.New("password is required"))
	assert.Equal(t, "LDAP bind failed: password is required", withoutCode.Error())
}

func TestCategoryOf_ThroughHarvestErrors(t *testing.T) {
	cause := WrapError("search", ldap.NewError(ldap.LDAPResultSizeLimitExceeded, errors.New("size limit exceeded")))
	err := fmt.Errorf("harvest: %w", &RetrievalFailedError{Stage: StageUsers, Cause: cause})

	assert.Equal(t, ErrorCategoryLimit, CategoryOf(err))
	assert.Equal(t, ErrorKindRetrievalFailed, KindOf(err))
	assert.Equal(t, ErrorCategoryUnknown, CategoryOf(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestHarvestErrorKinds(t *testing.T) {
	cause := errors.New("connection refused")

	exhausted := &ConnectionExhaustedError{Attempts: 3, Cause: cause}
	assert.Equal(t, ErrorKindConnectionExhausted, exhausted.Kind())
	assert.ErrorIs(t, exhausted, cause)
	assert.Contains(t, exhausted.Error(), "3 attempt(s)")

	retrieval := &RetrievalFailedError{Stage: StageGroups, BaseDN: "ou=groups,o=acme", Cause: cause}
	assert.Equal(t, ErrorKindRetrievalFailed, retrieval.Kind())
	assert.ErrorIs(t, retrieval, cause)
	assert.Contains(t, retrieval.Error(), "groups")
	assert.Contains(t, retrieval.Error(), "ou=groups,o=acme")
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{
			name: "nil",
			err:  nil,
			want: ErrorKindUnknown,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: ErrorKindUnknown,
		},
		{
			name: "connection exhausted",
			err:  &ConnectionExhaustedError{Attempts: 1, Cause: context.Canceled},
			want: ErrorKindConnectionExhausted,
		},
		{
			name: "wrapped retrieval failure",
			err:  fmt.Errorf("harvest: %w", &RetrievalFailedError{Stage: StageUsers}),
			want: ErrorKindRetrievalFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestRetrievalFailedError_As(t *testing.T) {
	err := fmt.Errorf("harvest: %w", &RetrievalFailedError{Stage: StageRoles, BaseDN: "ou=roles,o=acme", Cause: errors.New("no such object")})

	var retrieval *RetrievalFailedError
	require.ErrorAs(t, err, &retrieval)
	assert.Equal(t, StageRoles, retrieval.Stage)
}
