/*
Package authtree is a resumable authentication tree engine.

An authentication tree is a directed graph of decision nodes. Each node either asks the
end user for input through callbacks or completes with an outcome that selects the next
node, until the evaluation reaches one of the two terminals: Success or Failure.

# Concept

Evaluations are stateless from the caller's point of view. When a node needs input the
engine suspends, keeps the full evaluation state in a server-side session vault, and hands
the client a sealed continuation token. The client answers the callbacks and sends the
token back; the engine opens it, checks it against the vault record and resumes exactly
where it stopped. Replayed or tampered tokens are rejected.

# Key Features

  - Step-up aware choices: choice collectors hide branches that cannot reach the requested
    authentication level.
  - Inner trees: a whole tree can run as a single node of another tree.
  - Pluggable vaults: memory, file, Redis, SQLite and MySQL, with optional encryption at rest.
  - Realm directories: trees defined as YAML or JSON files, validated and hot reloaded.
  - Observability: slog logging, Prometheus metrics and OpenTelemetry spans per node.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/authtree"
		"github.com/aretw0/authtree/pkg/adapters/realm"
		"github.com/aretw0/authtree/pkg/domain"
	)

	func main() {
		users, err := realm.LoadIdentities("./realm")
		if err != nil {
			log.Fatal(err)
		}
		eng, err := authtree.New(realm.New("./realm"), authtree.WithCredentials(users))
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		resp, err := eng.Authenticate(ctx, authtree.AuthRequest{Tree: "login"})
		for err == nil && resp.Status == domain.ResultNeedInput {
			// Show resp.Callbacks to the user and fill in their values.
			answers := ask(resp.Callbacks)
			resp, err = eng.Authenticate(ctx, authtree.AuthRequest{Token: resp.Token, Callbacks: answers})
		}
		if err != nil {
			log.Fatal(err)
		}
		log.Println(resp.Status, resp.Identity, resp.AuthLevel)
	}
*/
package authtree
