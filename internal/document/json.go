package document

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNotBytes = errors.New("document: node does not hold a byte payload")

// MarshalJSON encodes the node as JSON. Object keys are written in insertion
// order so that encoding the same document twice yields identical bytes.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	switch n.kind {
	case KindObject:
		buf.WriteByte('{')
		for i, key := range n.order {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := n.children[key].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindString:
		s, err := json.Marshal(n.str)
		if err != nil {
			return err
		}
		buf.Write(s)
	case KindInt:
		fmt.Fprintf(buf, "%d", n.i64)
	case KindFloat:
		f, err := json.Marshal(n.f64)
		if err != nil {
			return err
		}
		buf.Write(f)
	case KindBool:
		fmt.Fprintf(buf, "%t", n.boolean)
	case KindIntVector:
		buf.WriteByte('[')
		for i, x := range n.vec {
			if i > 0 {
				buf.WriteByte(',')
			}
			fmt.Fprintf(buf, "%d", x)
		}
		buf.WriteByte(']')
	case KindBytes:
		buf.WriteByte('"')
		buf.WriteString(base64.StdEncoding.EncodeToString(n.raw))
		buf.WriteByte('"')
	default:
		return fmt.Errorf("document: unknown node kind %d", n.kind)
	}
	return nil
}

// Parse decodes a JSON document into a Node tree, preserving object key
// order. Numbers without a fraction or exponent become integer leaves.
func Parse(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	n, err := parseValue(dec)
	if err != nil {
		return nil, err
	}

	// Trailing garbage after the document is a format error.
	if _, err := dec.Token(); err == nil {
		return nil, errors.New("document: trailing data after document")
	}
	return n, nil
}

func parseValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	return parseToken(dec, tok)
}

func parseToken(dec *json.Decoder, tok json.Token) (*Node, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec)
		case '[':
			return parseVector(dec)
		default:
			return nil, fmt.Errorf("document: unexpected delimiter %q", t)
		}
	case string:
		return String(t), nil
	case json.Number:
		if !strings.ContainsAny(t.String(), ".eE") {
			x, err := t.Int64()
			if err == nil {
				return Int(x), nil
			}
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("document: bad number %q: %w", t, err)
		}
		return Float(f), nil
	case bool:
		return Bool(t), nil
	case nil:
		return nil, errors.New("document: null values are not supported")
	default:
		return nil, fmt.Errorf("document: unexpected token %v", tok)
	}
}

func parseObject(dec *json.Decoder) (*Node, error) {
	obj := NewObject()
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("document: %w", err)
		}
		if d, ok := tok.(json.Delim); ok && d == '}' {
			return obj, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("document: object key is not a string: %v", tok)
		}
		child, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		obj.Set(key, child)
	}
}

func parseVector(dec *json.Decoder) (*Node, error) {
	var vec []int64
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("document: %w", err)
		}
		if d, ok := tok.(json.Delim); ok && d == ']' {
			return IntVector(vec), nil
		}
		num, ok := tok.(json.Number)
		if !ok {
			return nil, fmt.Errorf("document: array element is not a number: %v", tok)
		}
		x, err := num.Int64()
		if err != nil {
			return nil, fmt.Errorf("document: array element %q is not an integer: %w", num, err)
		}
		vec = append(vec, x)
	}
}
