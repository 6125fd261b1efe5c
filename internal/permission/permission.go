// Package permission implements resolution of schema-free permission
// documents attached to roles. A document maps top-level keys (usually
// resource names) to one of three value shapes: a list of allowed actions,
// a map from action name to a boolean, or a map from action name to a
// condition object. The shapes mirror what administrators store in the
// roles.permissions JSON column, so the types here round-trip through JSON.
package permission

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Document is the schema-free permission structure of a role.
type Document map[string]Value

// Kind discriminates the value shapes a document key may hold.
type Kind int

const (
	KindBool Kind = iota
	KindList
	KindActions
)

// Value is a tagged union: a plain boolean, a list of action names, or a
// map of action name to Action.
type Value struct {
	kind    Kind
	boolean bool
	list    []string
	actions map[string]Action
}

func Bool(v bool) Value {
	return Value{kind: KindBool, boolean: v}
}

func List(items ...string) Value {
	return Value{kind: KindList, list: items}
}

func Actions(m map[string]Action) Value {
	return Value{kind: KindActions, actions: m}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Bool() bool { return v.boolean }

func (v Value) List() []string { return v.list }

func (v Value) Actions() map[string]Action { return v.actions }

// Action is the grant attached to a single action name inside an actions
// map: either a plain boolean or a condition object. A conditioned grant
// counts as allowed at this layer; evaluating the condition needs object
// context this engine does not have, so it is left to the caller.
type Action struct {
	allowed   bool
	condition map[string]any
}

func Allow(v bool) Action {
	return Action{allowed: v}
}

func Conditional(condition map[string]any) Action {
	return Action{allowed: true, condition: condition}
}

func (a Action) Allowed() bool { return a.allowed }

func (a Action) Condition() map[string]any { return a.condition }

func (a Action) IsConditional() bool { return a.condition != nil }

// ----------------- JSON ROUND-TRIP -----------------

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindList:
		return json.Marshal(v.list)
	case KindActions:
		return json.Marshal(v.actions)
	default:
		return json.Marshal(v.boolean)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = Bool(b)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*v = List(list...)
		return nil
	}

	var actions map[string]Action
	if err := json.Unmarshal(data, &actions); err == nil {
		*v = Actions(actions)
		return nil
	}

	return fmt.Errorf("permission: unsupported value shape: %s", data)
}

func (a Action) MarshalJSON() ([]byte, error) {
	if a.condition != nil {
		return json.Marshal(a.condition)
	}
	return json.Marshal(a.allowed)
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*a = Allow(b)
		return nil
	}

	var condition map[string]any
	if err := json.Unmarshal(data, &condition); err == nil {
		*a = Conditional(condition)
		return nil
	}

	return fmt.Errorf("permission: unsupported action shape: %s", data)
}

// ParseDocument decodes a raw JSON permission document, as stored in the
// roles table.
func ParseDocument(raw []byte) (Document, error) {
	if len(raw) == 0 {
		return Document{}, nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("permission: parse document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Keys returns the document's top-level keys in sorted order. Used by
// reporting and tests; resolution never depends on key order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
