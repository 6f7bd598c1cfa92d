package report

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// omap is a minimal insertion-ordered mapping used only at the
// serialization boundary. Go maps randomize iteration order, which would
// scramble the column order the report contract guarantees.
type omap struct {
	pairs []pair
}

type pair struct {
	key string
	val any
}

func newOmap() *omap {
	return &omap{}
}

func (m *omap) set(key string, val any) *omap {
	m.pairs = append(m.pairs, pair{key: key, val: val})
	return m
}

func (m *omap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range m.pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(p.val)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *omap) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range m.pairs {
		keyNode := &yaml.Node{}
		if err := keyNode.Encode(p.key); err != nil {
			return nil, err
		}
		valNode := &yaml.Node{}
		if p.val == nil {
			valNode.Kind = yaml.ScalarNode
			valNode.Tag = "!!null"
			valNode.Value = "null"
		} else if err := valNode.Encode(p.val); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}
