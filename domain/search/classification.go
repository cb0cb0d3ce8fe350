package search

// Intent is the classifier's first-matching-rule result.
type Intent string

// Closed set of intents, in classifier priority order.
const (
	IntentLocate      Intent = "locate"
	IntentTrace       Intent = "trace"
	IntentDebug       Intent = "debug"
	IntentImplement   Intent = "implement"
	IntentFramework   Intent = "framework"
	IntentReference   Intent = "reference"
	IntentCompare     Intent = "compare"
	IntentUnderstand  Intent = "understand"
)

// Scope is the classifier's breadth signal.
type Scope string

// Closed set of scopes.
const (
	ScopePinpoint     Scope = "pinpoint"
	ScopeFocused      Scope = "focused"
	ScopeExploratory  Scope = "exploratory"
	ScopeComprehensive Scope = "comprehensive"
)

// Classification is the deterministic output of the QueryClassifier.
type Classification struct {
	Intent           Intent
	Scope            Scope
	TargetType       string
	FrameworkContext bool
	Keywords         []string
}

// KeywordsCopy returns a defensive copy of the classification's keyword list.
func (c Classification) KeywordsCopy() []string {
	return append([]string(nil), c.Keywords...)
}
