package bulkop

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// BatchParams parameters of a batch run, e.g. the target status of a status change
type BatchParams struct {
	kvs map[string]interface{}
}

// NewBatchParams new instance
func NewBatchParams() *BatchParams {
	return &BatchParams{kvs: map[string]interface{}{}}
}

func (p *BatchParams) Put(key string, value interface{}) {
	p.kvs[key] = value
}

func (p *BatchParams) Exists(key string) bool {
	return p.kvs[key] != nil
}

func (p *BatchParams) Get(key string, def ...interface{}) interface{} {
	val := p.kvs[key]
	if val == nil && len(def) > 0 {
		val = def[0]
	}
	return val
}

func (p *BatchParams) GetString(key string, def ...string) (string, error) {
	v := p.kvs[key]
	if v == nil && len(def) > 0 {
		return def[0], nil
	}
	if r, ok := v.(string); ok {
		return r, nil
	}
	return "", errors.Errorf("value is nil or not string: %v", v)
}

func (p *BatchParams) GetInt(key string, def ...int) (int, error) {
	v := p.kvs[key]
	if v == nil && len(def) > 0 {
		return def[0], nil
	}
	switch r := v.(type) {
	case int:
		return r, nil
	case int32:
		return int(r), nil
	case int64:
		return int(r), nil
	case float64:
		//numbers decoded from json
		return int(r), nil
	}
	return 0, errors.Errorf("value is nil or not int: %v", v)
}

// ToMap copy of the parameters
func (p *BatchParams) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, len(p.kvs))
	for k, v := range p.kvs {
		m[k] = v
	}
	return m
}

func (p *BatchParams) DeepCopy() *BatchParams {
	if p == nil {
		return NewBatchParams()
	}
	return &BatchParams{kvs: p.ToMap()}
}

func (p *BatchParams) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.kvs)
}

func (p *BatchParams) UnmarshalJSON(b []byte) error {
	if p.kvs == nil {
		p.kvs = map[string]interface{}{}
	}
	return json.Unmarshal(b, &p.kvs)
}
