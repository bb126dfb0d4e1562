package multihop

import (
	"context"
	"fmt"
	"strings"

	"github.com/orneryd/graphscout/pkg/model"
)

// Interpreter turns a path into a human-readable sentence. The engine
// ships a deterministic rule-based implementation; callers may swap in an
// external text-generation service.
type Interpreter interface {
	InterpretPath(ctx context.Context, path []*model.Entity) (string, error)
}

// RuleInterpreter is the deterministic default: sentences are keyed by the
// sequence of entity types along the path, with a generic fallback.
type RuleInterpreter struct{}

// templates maps a type-sequence key ("Customer>Risk>Objective") to a
// sentence template with %s slots for the first and last entity ids.
var templates = map[string]string{
	"Customer>Risk>Project>Objective": "%s carries a risk whose mitigation project serves objective %s",
	"Customer>Risk>Objective":         "%s is exposed to a risk that threatens objective %s",
	"Customer>Product>Team":           "%s uses a product maintained by team %s",
	"Team>Project>Objective":          "%s drives a project contributing to objective %s",
	"Person>Team>Project":             "%s works on a team assigned to project %s",
}

// InterpretPath never fails; the error return satisfies the Interpreter
// contract for external services that can.
func (RuleInterpreter) InterpretPath(_ context.Context, path []*model.Entity) (string, error) {
	if len(path) < 2 {
		return "", nil
	}
	key := typeSequence(path)
	first, last := path[0], path[len(path)-1]
	if tmpl, ok := templates[key]; ok {
		return fmt.Sprintf(tmpl, first.ID, last.ID), nil
	}
	return fmt.Sprintf("%s is connected to %s through %d intermediary entities",
		first.ID, last.ID, len(path)-2), nil
}

// insight proposes an action for a scored path. Bottlenecked paths call out
// the weak link; otherwise the suggestion follows the path score.
func insight(pa *model.PathAnalysis) string {
	if len(pa.Bottlenecks) > 0 {
		b := pa.Bottlenecks[0]
		return fmt.Sprintf("strengthen the weak link between %s and %s to firm up this connection", b[0], b[1])
	}
	if pa.Score >= 0.7 {
		return "consider materializing this connection as an explicit relationship"
	}
	return "monitor this indirect connection for reinforcement"
}

func typeSequence(path []*model.Entity) string {
	parts := make([]string, len(path))
	for i, e := range path {
		parts[i] = string(e.Type)
	}
	return strings.Join(parts, ">")
}
