//go:build ccdebug

package check

// Enabled reports whether contract violations panic.
const Enabled = true
