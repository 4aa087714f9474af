package gram

import (
	log "github.com/sirupsen/logrus"
)

// Validate performs the two grammar-level checks that are not already
// enforced while parsing: reachability from the root rule and undefined
// rule references. Character-class well-formedness is enforced during
// parsing itself (see parseCharClassRange).
//
// It returns every error found rather than stopping at the first one,
// mirroring check_rules in the original implementation which prints
// every offending rule before reporting overall failure. The traversal
// itself is a plain BFS from the root rule over the NAME references
// each rule's alternatives carry.
func Validate(g *Grammar) []error {
	visited := make(map[string]bool)
	pending := []string{g.Root}
	var errs []error

	for len(pending) > 0 {
		name := pending[0]
		pending = pending[1:]
		if visited[name] {
			continue
		}
		visited[name] = true

		rule, ok := g.Rules[name]
		if !ok {
			err := undefinedRuleError(name)
			log.WithField("rule", name).Error(err.Error())
			errs = append(errs, err)
			continue
		}

		for _, alt := range rule.Alts {
			pending = collectReferences(alt, visited, pending)
		}
	}

	for _, name := range g.Order {
		if !visited[name] {
			err := unreachableRuleError(name)
			log.WithField("rule", name).Warn(err.Error())
			errs = append(errs, err)
		}
	}

	return errs
}

func collectReferences(e *Element, visited map[string]bool, pending []string) []string {
	if e.Kind == KindName && !visited[e.Tokens[0]] {
		pending = append(pending, e.Tokens[0])
	}

	for _, sub := range e.Sub {
		pending = collectReferences(sub, visited, pending)
	}

	return pending
}
