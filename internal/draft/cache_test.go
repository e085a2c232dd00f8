package draft_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"worksheet/internal/draft"
)

const (
	keyA = "element-p1-e1"
	keyB = "element-p1-e2"
)

func TestCache_SaveAndRestore(t *testing.T) {
	c := draft.New()

	c.OnSelectionChange("", keyA)
	c.SetText("make it red")
	c.OnSelectionChange(keyA, keyB)
	assert.Equal(t, "", c.Text(), "unvisited selection starts empty")

	c.SetText("add a border")
	c.OnSelectionChange(keyB, keyA)
	assert.Equal(t, "make it red", c.Text())

	c.OnSelectionChange(keyA, keyB)
	assert.Equal(t, "add a border", c.Text())
}

func TestCache_ClearSelectionKeepsSaved(t *testing.T) {
	c := draft.New()
	c.OnSelectionChange("", keyA)
	c.SetText("pending")

	c.OnSelectionChange(keyA, "")
	assert.Equal(t, "", c.Text())
	assert.Equal(t, "", c.ActiveKey())

	saved, ok := c.Saved(keyA)
	assert.True(t, ok)
	assert.Equal(t, "pending", saved)

	c.SetText("ignored")
	c.OnSelectionChange("", keyA)
	assert.Equal(t, "pending", c.Text())
}

func TestCache_SameKeyKeepsText(t *testing.T) {
	c := draft.New()
	c.OnSelectionChange("", keyA)
	c.SetText("typing")
	c.OnSelectionChange(keyA, keyA)
	assert.Equal(t, "typing", c.Text())
}

func TestCache_OnSubmit(t *testing.T) {
	c := draft.New()
	c.OnSelectionChange("", keyA)
	c.SetText("make it bigger")
	c.OnSubmit(keyA)

	assert.Equal(t, "", c.Text())
	saved, ok := c.Saved(keyA)
	assert.True(t, ok, "entry is kept")
	assert.Equal(t, "", saved)
}

func TestCache_OnSubmitForInactiveKey(t *testing.T) {
	c := draft.New()
	c.OnSelectionChange("", keyA)
	c.SetText("first")
	c.OnSelectionChange(keyA, keyB)
	c.SetText("second")

	c.OnSubmit(keyA)
	assert.Equal(t, "second", c.Text(), "visible draft belongs to another selection")

	c.OnSelectionChange(keyB, keyA)
	assert.Equal(t, "", c.Text())
}

// Property: text typed under one selection survives any detour through
// another selection.
func TestCache_DraftIsolationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("switching back restores exact text", prop.ForAll(
		func(textA, textB string, detours int) bool {
			c := draft.New()
			c.OnSelectionChange("", keyA)
			c.SetText(textA)
			c.OnSelectionChange(keyA, keyB)
			c.SetText(textB)
			for i := 0; i < detours; i++ {
				c.OnSelectionChange(keyB, "")
				c.OnSelectionChange("", keyB)
			}
			if c.Text() != textB {
				return false
			}
			c.OnSelectionChange(keyB, keyA)
			return c.Text() == textA && c.ActiveKey() == keyA
		},
		gen.AnyString(),
		gen.AnyString(),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
