package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kodexhq/kodex/domain/search"
)

func TestClassifyUnderstandModelQuery(t *testing.T) {
	c := Classify("How does the User model work?")
	assert.Equal(t, search.IntentUnderstand, c.Intent)
	assert.Equal(t, search.ScopeFocused, c.Scope)
	assert.Equal(t, "model", c.TargetType)
	assert.False(t, c.FrameworkContext)
}

func TestClassifyLocateController(t *testing.T) {
	c := Classify("Where is the PostsController?")
	assert.Equal(t, search.IntentLocate, c.Intent)
	assert.Equal(t, search.ScopeFocused, c.Scope)
}

func TestClassifyTraceDependencies(t *testing.T) {
	c := Classify("What depends on the Post model?")
	assert.Equal(t, search.IntentTrace, c.Intent)
}

func TestClassifyHybridExploratory(t *testing.T) {
	c := Classify("Show me everything related to users")
	assert.Equal(t, search.ScopeExploratory, c.Scope)
}

func TestClassifyKeywordsDedupedLowercasedOrdered(t *testing.T) {
	c := Classify("User user USER posts")
	assert.Equal(t, []string{"user", "posts"}, c.Keywords)
}

func TestClassifyImplementIntent(t *testing.T) {
	c := Classify("add a new controller for comments")
	assert.Equal(t, search.IntentImplement, c.Intent)
}

func TestClassifyDebugIntent(t *testing.T) {
	c := Classify("fix the bug in checkout")
	assert.Equal(t, search.IntentDebug, c.Intent)
}

func TestClassifyCompareIntent(t *testing.T) {
	c := Classify("compare User and Account models")
	assert.Equal(t, search.IntentCompare, c.Intent)
}

func TestClassifyComprehensiveScope(t *testing.T) {
	c := Classify("list all controllers")
	assert.Equal(t, search.ScopeComprehensive, c.Scope)
}

func TestClassifyPinpointScope(t *testing.T) {
	c := Classify("find the exactly specific method just only")
	assert.Equal(t, search.ScopePinpoint, c.Scope)
}
