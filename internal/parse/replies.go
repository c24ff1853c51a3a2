package parse

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/chris/wingman/internal/llm"
)

var replyKeys = [3]string{"reply_1", "reply_2", "reply_3"}

// Replies returns exactly three suggestions; unrecoverable slots are "".
func Replies(resp *llm.Response) [3]string {
	return RepliesFromText(resp.Text())
}

// RepliesFromText is Replies for an already extracted payload. Missing or
// empty slots are backfilled, in slot order, from other keys that mention
// "reply" and carry a non-empty string, taken in document order.
func RepliesFromText(raw string) [3]string {
	var out [3]string
	text, ok := Object(raw)
	if !ok {
		return out
	}
	obj := gjson.Parse(text)

	for i, key := range replyKeys {
		if v := obj.Get(key); v.Type == gjson.String {
			out[i] = strings.TrimSpace(v.Str)
		}
	}

	var spare []string
	obj.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if isReplyKey(key) || !strings.Contains(strings.ToLower(key), "reply") || v.Type != gjson.String {
			return true
		}
		if s := strings.TrimSpace(v.Str); s != "" {
			spare = append(spare, s)
		}
		return true
	})
	for i := range out {
		if out[i] == "" && len(spare) > 0 {
			out[i], spare = spare[0], spare[1:]
		}
	}
	return out
}

func isReplyKey(key string) bool {
	for _, k := range replyKeys {
		if key == k {
			return true
		}
	}
	return false
}
