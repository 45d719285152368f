// Package middleware provides StateStore decorators for the session vault:
// at-rest encryption and redaction for inspection tooling.
package middleware
