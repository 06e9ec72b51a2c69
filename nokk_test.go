package nokk_test

import (
	"slices"
	"testing"

	"github.com/m-mizutani/gt"

	nokk "github.com/nextlw/nokk-agents"
)

func TestRunContext(t *testing.T) {
	rc := nokk.NewRunContext()
	gt.NotEqual(t, rc.ID(), "")
	gt.NotEqual(t, rc.ID(), nokk.NewRunContext().ID())

	_, ok := rc.Value("missing")
	gt.False(t, ok)

	rc.Set("customer", "acme")
	v, ok := rc.Value("customer")
	gt.True(t, ok)
	gt.Equal(t, v, any("acme"))

	rc.Set("customer", "globex")
	v, _ = rc.Value("customer")
	gt.Equal(t, v, any("globex"))

	rc.Delete("customer")
	_, ok = rc.Value("customer")
	gt.False(t, ok)

	rc.Delete("customer") // absent key is fine
}

func TestRunContextOf(t *testing.T) {
	rc := nokk.NewRunContext()

	gt.Value(t, nokk.RunContextOf([]any{"Triagem", "hello", rc})).NotNil()
	gt.Equal(t, nokk.RunContextOf([]any{"Triagem", "hello", rc}).ID(), rc.ID())
	gt.Value(t, nokk.RunContextOf([]any{"Triagem", "hello"})).Nil()
	gt.Value(t, nokk.RunContextOf(nil)).Nil()
}

func TestKinds(t *testing.T) {
	kinds := nokk.Kinds()
	gt.Equal(t, len(kinds), 9)
	gt.True(t, slices.Contains(kinds, nokk.KindRunStart))
	gt.True(t, slices.Contains(kinds, nokk.KindRunComplete))
	gt.True(t, slices.Contains(kinds, nokk.KindLLMCallComplete))
}
