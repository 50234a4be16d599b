package panel

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gh-issues/internal/issues"
)

// List accepts either a JSON array of strings or one delimited string and
// normalizes it.
type List []string

func (l *List) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = List{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = issues.NormalizeList(s)
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err != nil {
		return fmt.Errorf("list must be a string or array of strings: %w", err)
	}
	*l = issues.NormalizeList(arr...)
	return nil
}

var intentDecoders = map[string]func([]byte) (Intent, error){
	"ready":             decodeAs[Ready],
	"refresh":           decodeAs[Refresh],
	"search":            decodeAs[Search],
	"clearSearch":       decodeAs[ClearSearch],
	"setFilter":         decodeAs[SetFilter],
	"createIssue":       decodeAs[CreateIssue],
	"updateIssue":       decodeAs[UpdateIssue],
	"setIssueState":     decodeAs[SetIssueState],
	"requestMeta":       decodeAs[RequestMeta],
	"loadIssueForEdit":  decodeAs[LoadIssueForEdit],
	"uploadImage":       decodeAs[UploadImage],
	"openIssue":         decodeAs[OpenIssue],
	"copyIssue":         decodeAs[CopyIssue],
	"summaryIssue":      decodeAs[SummaryIssue],
	"setRepo":           decodeAs[SetRepo],
	"setAuthMode":       decodeAs[SetAuthMode],
	"setToken":          decodeAs[SetToken],
	"createPullRequest": decodeAs[CreatePullRequest],
	"assignIssue":       decodeAs[AssignIssue],
}

func decodeAs[T Intent](body []byte) (Intent, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeIntent parses {type, ...fields}. Fields may also be nested under a
// "payload" object. Unknown tags and malformed bodies yield ok=false.
func DecodeIntent(raw []byte) (Intent, bool) {
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false
	}
	decode, ok := intentDecoders[env.Type]
	if !ok {
		return nil, false
	}
	body := raw
	if p := bytes.TrimSpace(env.Payload); len(p) > 0 && p[0] == '{' {
		body = p
	}
	intent, err := decode(body)
	if err != nil {
		return nil, false
	}
	return intent, true
}

// EncodeMessage flattens a message into {type, ...fields}.
func EncodeMessage(m Message) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	tag, err := json.Marshal(m.messageType())
	if err != nil {
		return nil, err
	}
	fields["type"] = tag
	return json.Marshal(fields)
}
