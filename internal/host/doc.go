// Package host defines the contract between the placement engine and the
// embedding application's window system, plus an in-memory reference host
// used by the demo TUI and the test suite.
package host
