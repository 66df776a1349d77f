package bulkop

import (
	"testing"

	"github.com/bmizerany/assert"
	"github.com/chararch/bulkop/util"
)

func TestBatchParams_Get(t *testing.T) {
	params := NewBatchParams()
	assert.Equal(t, nil, params.Get("to"))
	assert.Equal(t, "approved", params.Get("to", "approved"))

	params.Put("to", "live")
	assert.Equal(t, true, params.Exists("to"))
	to, err := params.GetString("to")
	assert.Equal(t, nil, err)
	assert.Equal(t, "live", to)

	_, err = params.GetInt("to")
	assert.NotEqual(t, nil, err)
}

func TestBatchParams_MarshalJSON(t *testing.T) {
	params := NewBatchParams()
	params.Put("percent", 15)
	params.Put("manifest", "items.csv")
	str, err := util.JsonString(params)
	assert.Equal(t, nil, err)

	params2 := NewBatchParams()
	err = util.ParseJson(str, params2)
	assert.Equal(t, nil, err)
	percent, err := params2.GetInt("percent")
	assert.Equal(t, nil, err)
	assert.Equal(t, 15, percent)
	manifest, _ := params2.GetString("manifest")
	assert.Equal(t, "items.csv", manifest)
}

func TestBatchParams_DeepCopy(t *testing.T) {
	var nilParams *BatchParams
	assert.Equal(t, 0, len(nilParams.DeepCopy().ToMap()))

	params := NewBatchParams()
	params.Put("to", "live")
	cp := params.DeepCopy()
	cp.Put("to", "sold")
	assert.Equal(t, "live", params.Get("to"))
}
