package ldap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// searchConn is the part of a go-ldap connection a session needs.
type searchConn interface {
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	SearchWithPaging(req *ldap.SearchRequest, pagingSize uint32) (*ldap.SearchResult, error)
	Unbind() error
}

// connSession is a Session backed by a bound go-ldap connection.
type connSession struct {
	conn     searchConn
	close    func()
	server   string
	pageSize uint32

	releaseOnce sync.Once
	releaseErr  error
}

// NewSession wraps a bound go-ldap connection. A pageSize above zero enables paged searches.
func NewSession(conn *ldap.Conn, server string, pageSize uint32) Session {
	return newSession(conn, func() { conn.Close() }, server, pageSize)
}

func newSession(conn searchConn, closeFn func(), server string, pageSize uint32) *connSession {
	return &connSession{
		conn:     conn,
		close:    closeFn,
		server:   server,
		pageSize: pageSize,
	}
}

// Search performs an LDAP search and converts the entries to Records.
func (s *connSession) Search(ctx context.Context, req *SearchRequest) ([]Record, error) {
	if req == nil {
		return nil, fmt.Errorf("search request cannot be nil")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fields := map[string]any{
		"server":     s.server,
		"base_dn":    req.BaseDN,
		"scope":      req.Scope.String(),
		"filter":     req.Filter,
		"attributes": req.Attributes,
		"page_size":  s.pageSize,
	}

	// Convert our SearchRequest to go-ldap SearchRequest
	ldapReq := ldap.NewSearchRequest(
		req.BaseDN,
		int(req.Scope),
		int(req.DerefAliases),
		req.SizeLimit,
		int(req.TimeLimit.Seconds()),
		false, // TypesOnly
		req.Filter,
		req.Attributes,
		nil, // Controls
	)

	start := time.Now()

	var (
		result *ldap.SearchResult
		err    error
	)
	if s.pageSize > 0 {
		result, err = s.conn.SearchWithPaging(ldapReq, s.pageSize)
	} else {
		result, err = s.conn.Search(ldapReq)
	}
	if err != nil {
		LogLDAPError(ctx, subsystem, "search", err, fields)
		return nil, WrapError("search", err)
	}

	records := make([]Record, 0, len(result.Entries))
	for _, entry := range result.Entries {
		records = append(records, EntryToRecord(entry))
	}

	fields["entries_found"] = len(records)
	fields["duration_ms"] = time.Since(start).Milliseconds()
	tflog.SubsystemDebug(ctx, subsystem, "Search completed", fields)

	return records, nil
}

// Release unbinds and closes the connection exactly once.
func (s *connSession) Release() error {
	s.releaseOnce.Do(func() {
		if err := s.conn.Unbind(); err != nil {
			s.releaseErr = WrapError("unbind", err)
		}
		s.close()
	})
	return s.releaseErr
}
