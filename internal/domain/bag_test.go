package domain_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worksheet/internal/domain"
)

func TestMerge_OnlyPatchKeysChange(t *testing.T) {
	base := domain.PropertyBag{"a": 0, "b": 2}
	got := base.Merge(domain.PropertyBag{"a": 1})

	assert.Equal(t, domain.PropertyBag{"a": 1.0, "b": 2.0}, got)
	assert.Equal(t, 0, base["a"], "receiver must not change")
}

func TestMerge_ReplacesNestedValuesWholesale(t *testing.T) {
	base := domain.PropertyBag{"style": map[string]any{"bold": true, "size": 12}}
	got := base.Merge(domain.PropertyBag{"style": map[string]any{"bold": false}})

	assert.Equal(t, map[string]any{"bold": false}, got["style"])
}

func TestClone_IsDeep(t *testing.T) {
	orig := domain.PropertyBag{
		"items": []any{map[string]any{"x": "a"}},
		"tags":  []string{"one"},
	}
	c := orig.Clone()
	c["items"].([]any)[0].(map[string]any)["x"] = "changed"
	c["tags"].([]any)[0] = "two"

	assert.Equal(t, "a", orig["items"].([]any)[0].(map[string]any)["x"])
	assert.Equal(t, "one", orig["tags"].([]string)[0])
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	b, err := domain.DecodePropertyBag([]byte(`{"size":"large","count":3}`))
	require.NoError(t, err)
	assert.Equal(t, 3.0, b["count"])

	empty, err := domain.DecodePropertyBag(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	data, err := domain.EncodePropertyBag(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	_, err = domain.DecodePropertyBag([]byte(`[1,2]`))
	assert.Error(t, err)
}

// Property: for any base bag and patch, keys absent from the patch keep their
// base value and keys present take the patch value.
func TestMerge_PartialProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("merge touches only patch keys", prop.ForAll(
		func(baseKeys, baseVals, patchKeys, patchVals []string) bool {
			base := domain.PropertyBag{}
			for i := 0; i < len(baseKeys) && i < len(baseVals); i++ {
				base[baseKeys[i]] = baseVals[i]
			}
			patch := domain.PropertyBag{}
			for i := 0; i < len(patchKeys) && i < len(patchVals); i++ {
				patch[patchKeys[i]] = patchVals[i]
			}
			before := base.Clone()
			got := base.Merge(patch)

			for k, v := range patch {
				if got[k] != v {
					return false
				}
			}
			for k, v := range before {
				if _, patched := patch[k]; !patched && got[k] != v {
					return false
				}
			}
			return base.Equal(before) && len(got) <= len(before)+len(patch)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
