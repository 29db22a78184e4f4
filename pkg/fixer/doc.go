// Package fixer invokes per-failure repair routines after a check
// phase, in dry-run or live mode.
//
// For every failing test method, Run looks for a Fix method on the
// owning runner.FixerCheck — the Go analogue of the fix_<name>/
// fix_failures naming convention: a Check either implements Fix for
// every test it can repair, or does not implement runner.FixerCheck at
// all and is skipped. In dry-run mode Fix must return a preview
// message without mutating anything; in live mode it performs the
// repair and reports whether it succeeded.
package fixer
