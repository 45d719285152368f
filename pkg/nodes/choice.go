package nodes

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/registry"
)

const choicePrefix = "choice"

// ChoiceConfig configures a ChoiceCollector.
type ChoiceConfig struct {
	Choices       []string `json:"choices"`
	DefaultChoice int      `json:"default_choice"`
	Prompt        string   `json:"prompt"`
	// TargetLevel applies when the session carries no target_auth_level.
	TargetLevel *int `json:"target_level"`
}

// ChoiceCollector presents labeled choices, each leading to outcome "choice<i>".
// Choices whose branch can never reach success at the session's target auth level
// are not offered.
type ChoiceCollector struct {
	cfg    ChoiceConfig
	levels domain.LevelAnalyzer
}

// NewChoiceCollector decodes decl into a ChoiceCollector.
func NewChoiceCollector(decl domain.NodeDecl, levels domain.LevelAnalyzer) (*ChoiceCollector, error) {
	cfg, err := parseChoiceConfig(decl)
	if err != nil {
		return nil, err
	}
	return &ChoiceCollector{cfg: cfg, levels: levels}, nil
}

func parseChoiceConfig(decl domain.NodeDecl) (ChoiceConfig, error) {
	var cfg ChoiceConfig
	if err := registry.Decode(decl.Config, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "Choose one of the following options"
	}
	return cfg, nil
}

func choiceOutcomes(decl domain.NodeDecl) ([]string, error) {
	cfg, err := parseChoiceConfig(decl)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(cfg.Choices))
	for i := range cfg.Choices {
		out[i] = ChoiceOutcome(i)
	}
	return out, nil
}

// ChoiceOutcome returns the outcome label of the configured choice i.
func ChoiceOutcome(i int) string {
	return choicePrefix + strconv.Itoa(i)
}

// Process implements domain.Node.
func (c *ChoiceCollector) Process(_ context.Context, req *domain.Request, state domain.NodeState) (domain.Action, error) {
	if len(c.cfg.Choices) == 0 {
		return domain.Action{}, domain.NewConfigError(req.Tree.Name(), req.NodeID, "choice collector has no choices configured")
	}

	viable := c.viableChoices(req.Tree, req.NodeID, state)
	if len(viable) == 0 {
		return domain.Action{}, domain.NewConfigError(req.Tree.Name(), req.NodeID, "no choice can reach success at the target auth level")
	}
	if len(viable) == 1 {
		return domain.Goto(ChoiceOutcome(viable[0])), nil
	}

	if cb, ok := req.Callback(domain.CallbackChoice); ok {
		selected, ok := cb.IntValue()
		if !ok {
			return domain.Action{}, fmt.Errorf("%w: choice answer %v is not an index", domain.ErrInvalidInput, cb.Value)
		}
		if selected < 0 || selected >= len(viable) {
			return domain.Action{}, fmt.Errorf("%w: choice index %d out of range [0, %d)", domain.ErrInvalidInput, selected, len(viable))
		}
		return domain.Goto(ChoiceOutcome(viable[selected])), nil
	}

	labels := make([]string, len(viable))
	defaultIndex := 0
	for i, original := range viable {
		labels[i] = c.cfg.Choices[original]
		if original == c.cfg.DefaultChoice {
			defaultIndex = i
		}
	}
	return domain.Send(domain.ChoiceCallback(c.cfg.Prompt, labels, defaultIndex)), nil
}

// viableChoices returns the indexes, in configuration order, of the choices whose
// branch may still reach success.
func (c *ChoiceCollector) viableChoices(tree *domain.Tree, nodeID string, state domain.NodeState) []int {
	all := make([]int, len(c.cfg.Choices))
	for i := range all {
		all[i] = i
	}

	target, ok := c.targetLevel(state)
	if !ok {
		return all
	}
	level := 0
	if raw, found := state.Shared(domain.KeyAuthLevel); found {
		level, _ = domain.AsInt(raw)
	}

	edges := tree.Connections(nodeID)
	var viable []int
	for _, i := range all {
		next, wired := edges[ChoiceOutcome(i)]
		if !wired {
			continue
		}
		if canReachSuccess(tree, c.levels, next, level, target, map[string]bool{}) {
			viable = append(viable, i)
		}
	}
	return viable
}

func (c *ChoiceCollector) targetLevel(state domain.NodeState) (int, bool) {
	if raw, ok := state.Shared(domain.KeyTargetAuthLevel); ok {
		if target, ok := domain.AsInt(raw); ok {
			return target, true
		}
	}
	if c.cfg.TargetLevel != nil {
		return *c.cfg.TargetLevel, true
	}
	return math.MinInt, false
}

// canReachSuccess walks forward from nodeID, accumulating declared level deltas.
// A node whose effect is unknown, or a cycle back onto the current path, is assumed
// to reach success.
func canReachSuccess(tree *domain.Tree, levels domain.LevelAnalyzer, nodeID string, level, target int, onPath map[string]bool) bool {
	switch nodeID {
	case domain.SuccessNodeID:
		return level >= target
	case domain.FailureNodeID:
		return false
	}
	if onPath[nodeID] {
		return true
	}
	decl, ok := tree.Node(nodeID)
	if !ok || levels == nil {
		return true
	}
	delta, known := levels.LevelDelta(decl)
	if !known {
		return true
	}

	onPath[nodeID] = true
	defer delete(onPath, nodeID)

	edges := tree.Connections(nodeID)
	outcomes := make([]string, 0, len(edges))
	for outcome := range edges {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		if canReachSuccess(tree, levels, edges[outcome], level+delta, target, onPath) {
			return true
		}
	}
	return false
}
