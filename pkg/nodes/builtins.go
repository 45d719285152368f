package nodes

import (
	"context"
	"log/slog"

	"github.com/aretw0/authtree/internal/logging"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/registry"
)

// Built-in type tags.
const (
	TypeChoiceCollector      = "ChoiceCollector"
	TypeInnerTreeEvaluator   = "InnerTreeEvaluator"
	TypeModifyAuthLevel      = "ModifyAuthLevel"
	TypeUsernameCollector    = "UsernameCollector"
	TypePasswordCollector    = "PasswordCollector"
	TypeDataStoreDecision    = "DataStoreDecision"
	TypeOneTimePassword      = "OneTimePassword"
	TypeSetSessionProperties = "SetSessionProperties"
	TypeLoginAudit           = "LoginAudit"
)

// DefaultMaxInnerDepth bounds inner tree nesting.
const DefaultMaxInnerDepth = 8

// TreeProvider resolves trees by name.
type TreeProvider interface {
	Get(ctx context.Context, name string) (*domain.Tree, error)
}

// Processor runs one evaluation pass of a tree.
type Processor interface {
	Process(ctx context.Context, tree *domain.Tree, state *domain.TreeState, req *domain.Request) (*domain.TreeResult, error)
}

// Deps are the collaborators of the built-in nodes. Nil members disable the node
// types that need them: constructing such a node fails with an error.
type Deps struct {
	Trees       TreeProvider
	Processor   Processor
	Credentials CredentialStore
	Secrets     SecretStore
	// Levels analyzes downstream auth level effects. Defaults to the registry.
	Levels        domain.LevelAnalyzer
	Logger        *slog.Logger
	MaxInnerDepth int
}

var (
	outcomeOnly = func(domain.NodeDecl) ([]string, error) { return []string{"outcome"}, nil }
	trueFalse   = func(domain.NodeDecl) ([]string, error) { return []string{"true", "false"}, nil }
	neutral     = func(domain.NodeDecl) (int, bool) { return 0, true }
)

// checkWith adapts a config parser into a registry.Descriptor Check.
func checkWith[T any](parse func(domain.NodeDecl) (T, error)) func(domain.NodeDecl) error {
	return func(decl domain.NodeDecl) error {
		_, err := parse(decl)
		return err
	}
}

// checkEmptyConfig rejects any configuration on node types that take none.
func checkEmptyConfig(decl domain.NodeDecl) error {
	var cfg struct{}
	return registry.Decode(decl.Config, &cfg)
}

func collectorConfig(decl domain.NodeDecl) (CollectorConfig, error) {
	return parseCollectorConfig(decl, "")
}

// RegisterBuiltins registers every built-in node type with reg.
func RegisterBuiltins(reg *registry.Registry, deps Deps) {
	if deps.Levels == nil {
		deps.Levels = reg
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.MaxInnerDepth <= 0 {
		deps.MaxInnerDepth = DefaultMaxInnerDepth
	}

	reg.Register(registry.Descriptor{
		Type:       TypeChoiceCollector,
		Check:      checkWith(parseChoiceConfig),
		New:        func(decl domain.NodeDecl) (domain.Node, error) { return NewChoiceCollector(decl, deps.Levels) },
		Outcomes:   choiceOutcomes,
		LevelDelta: neutral,
	})
	reg.Register(registry.Descriptor{
		Type:  TypeInnerTreeEvaluator,
		Check: checkWith(parseInnerTreeConfig),
		New: func(decl domain.NodeDecl) (domain.Node, error) {
			return NewInnerTreeEvaluator(decl, deps.Trees, deps.Processor, deps.MaxInnerDepth)
		},
		Outcomes: trueFalse,
		// The inner tree may change the level in ways only running it reveals.
		LevelDelta: nil,
	})
	reg.Register(registry.Descriptor{
		Type:       TypeModifyAuthLevel,
		Check:      checkWith(parseModifyAuthLevelConfig),
		New:        func(decl domain.NodeDecl) (domain.Node, error) { return NewModifyAuthLevel(decl) },
		Outcomes:   outcomeOnly,
		LevelDelta: modifyAuthLevelDelta,
	})
	reg.Register(registry.Descriptor{
		Type:       TypeUsernameCollector,
		Check:      checkWith(collectorConfig),
		New:        func(decl domain.NodeDecl) (domain.Node, error) { return NewUsernameCollector(decl) },
		Outcomes:   outcomeOnly,
		LevelDelta: neutral,
	})
	reg.Register(registry.Descriptor{
		Type:       TypePasswordCollector,
		Check:      checkWith(collectorConfig),
		New:        func(decl domain.NodeDecl) (domain.Node, error) { return NewPasswordCollector(decl) },
		Outcomes:   outcomeOnly,
		LevelDelta: neutral,
	})
	reg.Register(registry.Descriptor{
		Type:       TypeDataStoreDecision,
		Check:      checkEmptyConfig,
		New:        func(decl domain.NodeDecl) (domain.Node, error) { return NewDataStoreDecision(decl, deps.Credentials) },
		Outcomes:   trueFalse,
		LevelDelta: neutral,
	})
	reg.Register(registry.Descriptor{
		Type:       TypeOneTimePassword,
		Check:      checkWith(parseOneTimePasswordConfig),
		New:        func(decl domain.NodeDecl) (domain.Node, error) { return NewOneTimePassword(decl, deps.Secrets) },
		Outcomes:   trueFalse,
		LevelDelta: neutral,
	})
	reg.Register(registry.Descriptor{
		Type:       TypeSetSessionProperties,
		Check:      checkWith(parseSessionPropertiesConfig),
		New:        func(decl domain.NodeDecl) (domain.Node, error) { return NewSetSessionProperties(decl) },
		Outcomes:   outcomeOnly,
		LevelDelta: neutral,
	})
	reg.Register(registry.Descriptor{
		Type:       TypeLoginAudit,
		Check:      checkEmptyConfig,
		New:        func(decl domain.NodeDecl) (domain.Node, error) { return NewLoginAudit(decl, deps.Logger) },
		Outcomes:   outcomeOnly,
		LevelDelta: neutral,
	})
}
