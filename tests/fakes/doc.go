// Package fakes provides hand-written test doubles shared across packages.
//
// Each fake is map-backed with optional Func fields that override individual
// methods, plus call counters for asserting interaction patterns.
package fakes
