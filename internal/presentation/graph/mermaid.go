package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/authtree/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFromState builds an overlay from an evaluation snapshot.
func OverlayFromState(state *domain.TreeState) *GraphOverlay {
	if state == nil {
		return nil
	}
	return &GraphOverlay{
		VisitedNodes: append([]string(nil), state.Visited...),
		CurrentNode:  state.CurrentNodeID,
	}
}

// inputTypes are the built-in node types that ask the user for something.
var inputTypes = map[string]bool{
	"UsernameCollector": true,
	"PasswordCollector": true,
	"ChoiceCollector":   true,
	"OneTimePassword":   true,
}

// GenerateMermaid produces a Mermaid flowchart of a tree.
// It applies semantic styling:
// - Entry: ((Circle))
// - Inner tree: [[Subroutine]]
// - Input collectors: [/Parallelogram/]
// - Success / Failure terminals: ([Stadium])
// - Default: [Rectangle]
// Edges are labelled with their outcome. Overlay styles (Visited/Current) are
// applied if provided.
func GenerateMermaid(tree *domain.Tree, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range tree.NodeIDs() {
		decl, _ := tree.Node(id)
		safeID := sanitizeMermaidID(id)

		// Node Shape based on Type
		opener, closer := "[", "]"
		switch {
		case id == tree.EntryNodeID():
			opener, closer = "((", "))"
		case decl.Type == "InnerTreeEvaluator":
			opener, closer = "[[", "]]"
		case inputTypes[decl.Type]:
			opener, closer = "[/", "/]"
		}

		label := id
		if decl.DisplayName != "" {
			label = decl.DisplayName
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s <br/> <small>%s</small>\"%s\n",
			safeID, opener, escape(label), escape(decl.Type), closer))

		edges := tree.Connections(id)
		outcomes := make([]string, 0, len(edges))
		for outcome := range edges {
			outcomes = append(outcomes, outcome)
		}
		sort.Strings(outcomes)

		for _, outcome := range outcomes {
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, escape(outcome), sanitizeMermaidID(edges[outcome])))
		}
	}

	sb.WriteString("    SUCCESS([\"Success\"])\n")
	sb.WriteString("    FAILURE([\"Failure\"])\n")
	sb.WriteString("    classDef success fill:#c8e6c9,stroke:#2e7d32,color:#000;\n")
	sb.WriteString("    classDef failure fill:#ffcdd2,stroke:#c62828,color:#000;\n")
	sb.WriteString("    class SUCCESS success;\n")
	sb.WriteString("    class FAILURE failure;\n")

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			// Only style nodes the tree still declares
			if !tree.HasNode(id) {
				continue
			}
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentNode != "" && tree.HasNode(overlay.CurrentNode) {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	switch id {
	case domain.SuccessNodeID:
		return "SUCCESS"
	case domain.FailureNodeID:
		return "FAILURE"
	}
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	// Mermaid reserves "end" as a keyword.
	if s == "end" {
		s = "end_"
	}
	return s
}
