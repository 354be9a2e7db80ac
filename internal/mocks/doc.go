// Package mocks provides in-memory implementations of the store
// interfaces for testing. The fakes are stateful: they model the state
// machine and conditional-update semantics of the real stores, so
// coordination logic can be tested against realistic races without a
// database. Err* fields inject failures per method.
package mocks
