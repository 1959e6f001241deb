package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type detection struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence,omitempty"`
}

type detections struct {
	Objects []detection `json:"objects"`
}

func TestUnmarshalFlexible_ObjectVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "valid json", input: `{"objects":[{"name":"松树","confidence":0.9}]}`},
		{name: "unquoted keys and single quotes", input: `{objects: [{name: '松树', confidence: 0.9}]}`},
		{name: "trailing comma", input: `{"objects":[{"name":"松树","confidence":0.9},]}`},
		{name: "missing end brackets", input: `{"objects":[{"name":"松树","confidence":0.9}`},
		{name: "double encoded", input: `"{\"objects\":[{\"name\":\"松树\",\"confidence\":0.9}]}"`},
		{name: "code fence", input: "```json\n{\"objects\":[{\"name\":\"松树\",\"confidence\":0.9}]}\n```"},
		{name: "wrapped in prose", input: `识别结果如下：{"objects":[{"name":"松树","confidence":0.9}]} 以上。`},
		{name: "duplicate leading brace", input: "{\n{\"objects\":[{\"name\":\"松树\",\"confidence\":0.9}]}\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got detections
			require.NoError(t, UnmarshalFlexible(tc.input, &got))
			assert.Equal(t, []detection{{Name: "松树", Confidence: 0.9}}, got.Objects)
		})
	}
}

func TestUnmarshalFlexible_Array(t *testing.T) {
	var got []detection
	require.NoError(t, UnmarshalFlexible(`好的 [{name:'松墨天牛'},{name:'松针',}]`, &got))
	assert.Equal(t, []detection{{Name: "松墨天牛"}, {Name: "松针"}}, got)
}

func TestUnmarshalFlexible_NoJSON(t *testing.T) {
	for _, input := range []string{"", "   ", "无法识别图像内容", "```\n```"} {
		var got detections
		err := UnmarshalFlexible(input, &got)
		assert.True(t, errors.Is(err, ErrNoJSON), "input %q: got %v", input, err)
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, "松树|0.9|tree", StripCodeFence("```text\n松树|0.9|tree\n```"))
	assert.Equal(t, "松树", StripCodeFence("  松树 "))
	assert.Equal(t, "", StripCodeFence("```"))
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(&detections{})
	require.NotNil(t, schema)
}
