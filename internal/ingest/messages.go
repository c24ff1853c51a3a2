package ingest

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/chris/wingman/internal/profile"
)

var ErrNoMessages = errors.New("no messages found")

// ParseMessages reads an exported message list. When key is set, an object
// holding the list under key is accepted too. Every entry must be an object
// with a text field; from and timestamp are optional.
func ParseMessages(raw []byte, key string) ([]profile.Message, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("invalid JSON")
	}
	doc := gjson.ParseBytes(raw)
	if key != "" && doc.IsObject() {
		doc = doc.Get(key)
	}
	if !doc.IsArray() {
		return nil, ErrNoMessages
	}

	items := doc.Array()
	if len(items) == 0 {
		return nil, ErrNoMessages
	}
	out := make([]profile.Message, 0, len(items))
	for i, item := range items {
		if !item.IsObject() || !item.Get("text").Exists() {
			return nil, fmt.Errorf("invalid message format at index %d", i)
		}
		out = append(out, profile.Message{
			From:      item.Get("from").String(),
			Text:      item.Get("text").String(),
			Timestamp: item.Get("timestamp").String(),
		})
	}
	return out, nil
}
