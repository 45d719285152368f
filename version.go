package authtree

// Version is the release of the module, set at build time with
// -ldflags "-X github.com/aretw0/authtree.Version=...".
var Version = "dev"
