package models

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment_JSONMixedContent(t *testing.T) {
	content := []Segment{
		TextSegment("hello "),
		StampSegment("happycat", "https://example.com/cat.png"),
		TextSegment("bye"),
	}

	data, err := json.Marshal(content)
	require.NoError(t, err)
	assert.JSONEq(t, `["hello ",{"alt":"happycat","src":"https://example.com/cat.png"},"bye"]`, string(data))

	var restored []Segment
	require.NoError(t, json.Unmarshal(data, &restored))
	require.Len(t, restored, 3)
	assert.Equal(t, "hello ", restored[0].Text)
	require.True(t, restored[1].IsStamp())
	assert.Equal(t, "happycat", restored[1].Stamp.Name)
	assert.Equal(t, "https://example.com/cat.png", restored[1].Stamp.ImageURL)
	assert.False(t, restored[2].IsStamp())
}

func TestSegment_UnmarshalRejectsNamelessStamp(t *testing.T) {
	var seg Segment
	err := json.Unmarshal([]byte(`{"src":"https://example.com/x.png"}`), &seg)
	assert.Error(t, err)
}

func TestCaption_TextAndStamps(t *testing.T) {
	content := []Segment{
		TextSegment("hi "),
		StampSegment("wave", ""),
	}
	assert.Equal(t, "hi [wave]", Caption(content))
}

func TestCaption_Truncates(t *testing.T) {
	content := []Segment{TextSegment(strings.Repeat("x", 80))}
	caption := Caption(content)
	assert.Len(t, []rune(caption), 50)
}

func TestCaption_TruncatesMultibyte(t *testing.T) {
	content := []Segment{TextSegment(strings.Repeat("あ", 80))}
	caption := Caption(content)
	assert.Len(t, []rune(caption), 50)
}

func TestCloneSegments_Independent(t *testing.T) {
	original := []Segment{StampSegment("wave", "u1")}
	clone := CloneSegments(original)
	clone[0].Stamp.Name = "changed"
	assert.Equal(t, "wave", original[0].Stamp.Name)
}
