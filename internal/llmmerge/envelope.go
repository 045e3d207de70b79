// Package llmmerge turns a validated ExtractionEnvelope into graph writes:
// envelope validation, alias resolution, node/relation upsert, and
// idempotent-merge semantics, grounded on the pipeline's plugin-dispatch
// style and the graph package's Store contract.
package llmmerge

import (
	"time"

	gerrors "github.com/coderisk/gkg/internal/errors"
	"github.com/coderisk/gkg/internal/temporal"
	"github.com/coderisk/gkg/internal/types"
)

// validateEnvelope checks the structural invariants before any write is
// attempted: unique node aliases, resolvable relation aliases, parseable
// temporal fields, and valid_to >= valid_from.
func validateEnvelope(env types.ExtractionEnvelope) error {
	seen := make(map[string]struct{}, len(env.Nodes))
	for _, n := range env.Nodes {
		if n.IDAlias == "" {
			return gerrors.Validation("envelope node missing id_alias")
		}
		if n.Label == "" {
			return gerrors.Validation("envelope node %q missing label", n.IDAlias)
		}
		if _, dup := seen[n.IDAlias]; dup {
			return gerrors.Validation("envelope node alias %q is not unique", n.IDAlias)
		}
		seen[n.IDAlias] = struct{}{}
	}

	for i, rel := range env.Relations {
		if _, ok := seen[rel.FromIDAlias]; !ok {
			return gerrors.Validation("envelope relation %d references undefined alias %q (from_id_alias)", i, rel.FromIDAlias)
		}
		if _, ok := seen[rel.ToIDAlias]; !ok {
			return gerrors.Validation("envelope relation %d references undefined alias %q (to_id_alias)", i, rel.ToIDAlias)
		}
		if rel.TypeLabel == "" {
			return gerrors.Validation("envelope relation %d missing type_label", i)
		}

		from, err := parseOptionalUTC(rel.ValidFrom)
		if err != nil {
			return gerrors.Validation("envelope relation %d has unparseable valid_from: %v", i, err)
		}
		to, err := parseOptionalUTC(rel.ValidTo)
		if err != nil {
			return gerrors.Validation("envelope relation %d has unparseable valid_to: %v", i, err)
		}
		if from != nil && to != nil && to.Before(*from) {
			return gerrors.Validation("envelope relation %d has valid_to before valid_from", i)
		}
	}
	return nil
}

// parseOptionalUTC returns nil, nil for an unset field and otherwise parses
// with the same RFC3339-with-timezone requirement as the rest of the core.
func parseOptionalUTC(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := temporal.ParseUTC(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
