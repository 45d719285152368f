/*
Package ports defines the driven ports (interfaces) for the authentication tree engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various tree sources, vault backends, and lock managers.

# Key Interfaces

  - TreeSource: Responsible for loading tree definitions (e.g., from a realm directory or memory).
  - StateStore: Responsible for persisting and loading suspended TreeStates (the session vault).
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
  - Watchable: Notifies about tree definition changes.
*/
package ports
