/*
Package ldap provides the directory access layer of the collector.

# Architecture Overview

The package is organized into a few small components:

  - Connector: bounded connection attempts with a cancellable delay between them
  - Session: a bound go-ldap connection that searches and releases exactly once
  - Retriever: the users, roles, groups and organizations searches
  - Attribute decoding: objectGUID, objectSid and other binary values as strings

# Connection Management

A DialFunc opens one bound Session per call. The production dialer supports
plain LDAP, LDAPS and StartTLS, and binds with one of:

  - simple bind (bind DN and password, or unauthenticated when no password is set)
  - GSSAPI/Kerberos with a keytab or password
  - SASL EXTERNAL with a TLS client certificate

Without an explicit endpoint, servers are discovered from the DNS SRV records
of the configured domain and tried in priority order.

The Connector calls the DialFunc up to MaxRetries times, waiting RetryDelay
between failures, and reports a *ConnectionExhaustedError when no attempt succeeds.

# Error Handling

Harvest-level failures carry an ErrorKind (see KindOf):

  - *ConnectionExhaustedError: every connection attempt failed
  - *RetrievalFailedError: one of the four searches failed, with its Stage

Protocol errors are tagged with their operation and category through OperationError.

# Example Usage

	connector, err := ldap.NewConnectorFromConfig(cfg)
	if err != nil {
		return err
	}

	session, err := connector.Connect(ctx)
	if err != nil {
		return err
	}

	raw, err := ldap.NewRetriever(false).Retrieve(ctx, session, "o=acme,dc=example,dc=com")
	if err != nil {
		return err
	}
*/
package ldap
