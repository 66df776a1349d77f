package util

import (
	"testing"

	"github.com/bmizerany/assert"
)

func TestJsonString(t *testing.T) {
	s, err := JsonString(map[string]int{"a": 1})
	assert.Equal(t, nil, err)
	assert.Equal(t, `{"a":1}`, s)

	s, err = JsonIndent(map[string]int{"a": 1})
	assert.Equal(t, nil, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", s)
}

func TestParseJson(t *testing.T) {
	m := map[string]int{"keep": 1}
	assert.Equal(t, nil, ParseJson("", &m))
	assert.Equal(t, 1, m["keep"])

	assert.Equal(t, nil, ParseJson(`{"b":2}`, &m))
	assert.Equal(t, 2, m["b"])
	assert.NotEqual(t, nil, ParseJson(`{`, &m))
}
