package ldap

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver answers SRV lookups from a fixed table keyed by the queried name.
type fakeResolver struct {
	records map[string][]*net.SRV
	queries []string
}

func (r *fakeResolver) LookupSRV(_ context.Context, _, _, name string) (string, []*net.SRV, error) {
	r.queries = append(r.queries, name)
	if srv, ok := r.records[name]; ok {
		return name, srv, nil
	}
	return "", nil, &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

func TestSRVDiscovery_DiscoverServers(t *testing.T) {
	tests := []struct {
		name     string
		records  map[string][]*net.SRV
		expected []*ServerInfo
		queries  []string
	}{
		{
			name: "ldaps records stop the search",
			records: map[string][]*net.SRV{
				"_ldaps._tcp.example.com": {
					{Target: "dc2.example.com.", Port: 636, Priority: 10, Weight: 50},
					{Target: "dc1.example.com.", Port: 636, Priority: 0, Weight: 100},
				},
				"_ldap._tcp.example.com": {
					{Target: "dc3.example.com.", Port: 389},
				},
			},
			expected: []*ServerInfo{
				{Host: "dc1.example.com", Port: 636, UseTLS: true, Priority: 0, Weight: 100},
				{Host: "dc2.example.com", Port: 636, UseTLS: true, Priority: 10, Weight: 50},
			},
			queries: []string{"_ldaps._tcp.example.com"},
		},
		{
			name: "plain ldap and global catalog are combined",
			records: map[string][]*net.SRV{
				"_ldap._tcp.example.com": {
					{Target: "dc1.example.com.", Port: 389, Priority: 0, Weight: 10},
					{Target: "dc2.example.com.", Port: 389, Priority: 0, Weight: 90},
				},
				"_gc._tcp.example.com": {
					{Target: "gc.example.com.", Port: 3268, Priority: 5},
				},
			},
			expected: []*ServerInfo{
				{Host: "dc2.example.com", Port: 389, Priority: 0, Weight: 90},
				{Host: "dc1.example.com", Port: 389, Priority: 0, Weight: 10},
				{Host: "gc.example.com", Port: 3268, Priority: 5},
			},
			queries: []string{"_ldaps._tcp.example.com", "_ldap._tcp.example.com", "_gc._tcp.example.com"},
		},
		{
			name:    "fallback to standard ports",
			records: map[string][]*net.SRV{},
			expected: []*ServerInfo{
				{Host: "example.com", Port: 636, UseTLS: true, Priority: 0, Weight: 100},
				{Host: "example.com", Port: 389, UseTLS: false, Priority: 1, Weight: 100},
			},
			queries: []string{"_ldaps._tcp.example.com", "_ldap._tcp.example.com", "_gc._tcp.example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &fakeResolver{records: tt.records}
			discovery := &SRVDiscovery{resolver: resolver}

			servers, err := discovery.DiscoverServers(t.Context(), "example.com.")
			require.NoError(t, err)

			assert.Equal(t, tt.expected, servers)
			assert.Equal(t, tt.queries, resolver.queries)
			for _, server := range servers {
				assert.NoError(t, ValidateServerInfo(server))
			}
		})
	}
}

func TestSRVDiscovery_EmptyDomain(t *testing.T) {
	discovery := &SRVDiscovery{resolver: &fakeResolver{}}

	_, err := discovery.DiscoverServers(t.Context(), "  ")
	assert.Error(t, err)
}

func TestSRVDiscovery_CancelledContext(t *testing.T) {
	discovery := &SRVDiscovery{resolver: &fakeResolver{}}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	servers, err := discovery.DiscoverServers(ctx, "example.com")
	assert.Nil(t, servers)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSortServersByPriority(t *testing.T) {
	servers := []*ServerInfo{
		{Host: "c", Priority: 2, Weight: 0},
		{Host: "b", Priority: 1, Weight: 10},
		{Host: "a", Priority: 1, Weight: 20},
		{Host: "d", Priority: 1, Weight: 20},
	}

	sortServersByPriority(servers)

	hosts := make([]string, len(servers))
	for i, s := range servers {
		hosts[i] = s.Host
	}
	assert.Equal(t, []string{"a", "d", "b", "c"}, hosts)
}
