// Package classify implements the QueryClassifier: a pure, deterministic
// function from a natural-language query string to a search.Classification.
package classify

import (
	"strings"

	"github.com/kodexhq/kodex/domain/search"
)

type intentRule struct {
	intent   search.Intent
	keywords []string
}

var intentTypeNouns = []string{
	"model", "controller", "service", "job", "mailer", "component", "endpoint", "resolver",
}

var frameworkNames = map[string]struct{}{
	"rails": {}, "activerecord": {}, "actioncable": {}, "actionmailer": {},
	"sidekiq": {}, "devise": {}, "graphql": {}, "rspec": {},
}

var targetTypeNouns = map[string][]string{
	"model":      {"model", "schema", "columns", "activerecord", "validation"},
	"controller": {"controller", "endpoint", "request", "action", "filter"},
	"service":    {"service", "interactor"},
	"job":        {"job", "worker", "sidekiq", "queue", "background"},
	"mailer":     {"mailer", "email", "notification"},
	"graphql":    {"graphql", "mutation", "resolver", "fields"},
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "of": {}, "to": {}, "and": {}, "in": {},
	"on": {}, "for": {}, "how": {}, "does": {}, "what": {}, "are": {}, "it": {},
	"me": {}, "show": {}, "all": {}, "about": {},
}

// Classify is the QueryClassifier's pure entry point.
func Classify(query string) search.Classification {
	lower := strings.ToLower(query)
	tokens := tokenize(lower)
	tokenSet := toSet(tokens)

	return search.Classification{
		Intent:           classifyIntent(lower, tokenSet),
		Scope:            classifyScope(tokenSet),
		TargetType:       classifyTargetType(tokenSet),
		FrameworkContext: hasFrameworkContext(tokenSet),
		Keywords:         keywords(tokens),
	}
}

func classifyIntent(lower string, tokens map[string]struct{}) search.Intent {
	if hasAny(tokens, "where") || containsPhrase(lower, "which file") || hasAny(tokens, "find") {
		return search.IntentLocate
	}
	if hasAny(tokens, "calls") || containsPhrase(lower, "who calls") || containsPhrase(lower, "trace") ||
		containsPhrase(lower, "depends on") || containsPhrase(lower, "what depends") {
		return search.IntentTrace
	}
	if hasAny(tokens, "fix", "bug", "error", "broken") {
		return search.IntentDebug
	}
	if hasAny(tokens, "add", "create", "build") && hasAnyOf(tokens, intentTypeNouns) {
		return search.IntentImplement
	}
	if hasFrameworkContext(tokens) && hasAny(tokens, "how", "what", "does") {
		return search.IntentFramework
	}
	if hasAny(tokens, "interface", "api") || containsPhrase(lower, "list all") || containsPhrase(lower, "list available") {
		return search.IntentReference
	}
	if hasAny(tokens, "compare") || containsPhrase(lower, "difference between") {
		return search.IntentCompare
	}
	return search.IntentUnderstand
}

func classifyScope(tokens map[string]struct{}) search.Scope {
	switch {
	case hasAny(tokens, "exactly", "specific", "just", "only"):
		return search.ScopePinpoint
	case hasAny(tokens, "all", "every", "entire"):
		return search.ScopeComprehensive
	case hasAny(tokens, "related", "similar", "associated"):
		return search.ScopeExploratory
	default:
		return search.ScopeFocused
	}
}

func classifyTargetType(tokens map[string]struct{}) string {
	for _, tag := range []string{"model", "controller", "service", "job", "mailer", "graphql"} {
		if hasAnyOf(tokens, targetTypeNouns[tag]) {
			return tag
		}
	}
	return ""
}

func hasFrameworkContext(tokens map[string]struct{}) bool {
	for t := range tokens {
		if _, ok := frameworkNames[t]; ok {
			return true
		}
	}
	return false
}

func keywords(tokens []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range tokens {
		if len(t) < 2 {
			continue
		}
		if _, ok := stopWords[t]; ok {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func hasAny(tokens map[string]struct{}, words ...string) bool {
	for _, w := range words {
		if _, ok := tokens[w]; ok {
			return true
		}
	}
	return false
}

func hasAnyOf(tokens map[string]struct{}, words []string) bool {
	return hasAny(tokens, words...)
}

func containsPhrase(s, phrase string) bool {
	return strings.Contains(s, phrase)
}
