package diag

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotObject is returned when the body does not start with a JSON object,
// including empty and non-JSON bodies.
var ErrNotObject = errors.New("diagnostics body is not a JSON object")

// ErrTrailingData is returned when bytes other than whitespace follow the
// top-level object.
var ErrTrailingData = errors.New("diagnostics body has data after the object")

// Parse decodes a flat JSON object into a Snapshot, keeping the order keys
// appear in the body. A repeated key keeps its first position and takes the
// last value. Non-string values are kept as their JSON text.
func Parse(body []byte) (Snapshot, error) {
	iter := jsonAPI.BorrowIterator(body)
	defer jsonAPI.ReturnIterator(iter)

	if next := iter.WhatIsNext(); next != jsoniter.ObjectValue {
		if iter.Error != nil && iter.Error != io.EOF {
			return nil, fmt.Errorf("parse diagnostics: %w", iter.Error)
		}
		return nil, ErrNotObject
	}

	snap := Snapshot{}
	index := make(map[string]int)
	iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		value := readValue(it)
		if it.Error != nil {
			return false
		}
		if pos, ok := index[key]; ok {
			snap[pos].Value = value
			return true
		}
		index[key] = len(snap)
		snap = append(snap, Entry{Key: key, Value: value})
		return true
	})
	if iter.Error == io.EOF {
		return nil, fmt.Errorf("parse diagnostics: %w", io.ErrUnexpectedEOF)
	}
	if iter.Error != nil {
		return nil, fmt.Errorf("parse diagnostics: %w", iter.Error)
	}
	// The body must end here; only whitespace may follow the object.
	if iter.WhatIsNext() != jsoniter.InvalidValue || iter.Error != io.EOF {
		return nil, fmt.Errorf("parse diagnostics: %w", ErrTrailingData)
	}
	return snap, nil
}

func readValue(it *jsoniter.Iterator) string {
	switch it.WhatIsNext() {
	case jsoniter.StringValue:
		return it.ReadString()
	case jsoniter.NilValue:
		it.ReadNil()
		return "null"
	case jsoniter.BoolValue:
		return strconv.FormatBool(it.ReadBool())
	case jsoniter.NumberValue:
		return it.ReadNumber().String()
	default:
		return string(it.SkipAndReturnBytes())
	}
}
