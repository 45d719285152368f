/*
Package session implements access to the session vault.

Suspended evaluations keep their full TreeState (including private node namespaces)
in a ports.StateStore under an unguessable handle. The Manager serializes work on one
handle within a process with reference-counted mutexes and, when configured, across
replicas with a ports.DistributedLocker.
*/
package session
