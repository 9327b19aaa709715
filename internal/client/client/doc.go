// Package client contains the client-side contracts of the two remote
// services workoutlog relies on and their gRPC implementation.
//
// AuthService issues and validates credentials and reports session changes;
// DataStore is the hierarchical data store with point reads, writes, appends
// and live subscriptions. GRPCClient implements both over one connection: it
// keeps the access token of the current session, injects it into every call
// through interceptors and maps gRPC status codes to the sentinel errors in
// package common.
//
// Data store failures are returned as *common.SyncError wrapping the mapped
// cause, so callers can match both the operation and the reason.
package client
