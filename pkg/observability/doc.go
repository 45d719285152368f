/*
Package observability provides lifecycle hooks for auditing tree evaluations.

AuditHooks writes node transitions and terminal results to a structured logger,
Recorder keeps events in memory for tooling and tests, and Compose fans one set of
engine callbacks out to several consumers.
*/
package observability
