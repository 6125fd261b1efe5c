package permission

import "strings"

// Resolve reports whether the document grants the named permission.
//
// The name may be a plain token ("create_post") or a dotted pair
// ("posts.create"). The dotted form splits on the first dot only, so
// "posts.comments.create" looks up resource "posts", action
// "comments.create". The plain form first consults a top-level
// "permissions" list, then falls back to a top-level key of the same name.
//
// Resolve is pure: it never mutates the document and is deterministic for
// a given document and name.
func Resolve(doc Document, name string) bool {
	if len(doc) == 0 {
		return false
	}

	if idx := strings.Index(name, "."); idx >= 0 {
		return resolveDotted(doc, name[:idx], name[idx+1:])
	}

	// A literal "permissions" list takes precedence for plain names.
	if v, ok := doc["permissions"]; ok && v.Kind() == KindList {
		return contains(v.List(), name)
	}

	if v, ok := doc[name]; ok {
		if v.Kind() == KindBool {
			return v.Bool()
		}
		// Any non-boolean value counts as granted: the key exists and was
		// not explicitly set to false.
		return true
	}

	return false
}

func resolveDotted(doc Document, resource, action string) bool {
	v, ok := doc[resource]
	if !ok {
		return false
	}

	switch v.Kind() {
	case KindList:
		return contains(v.List(), action)
	case KindActions:
		a, ok := v.Actions()[action]
		if !ok {
			return false
		}
		// Conditioned grants resolve as allowed here; Action.Allowed is
		// false only for an explicit boolean false.
		return a.Allowed()
	default:
		// A bare boolean resource value carries no per-action grants.
		return false
	}
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
