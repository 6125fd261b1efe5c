package permission

// Merge combines permission documents from several roles into a single
// reporting aggregate. The first document seeds the result; for each later
// document, new keys are copied in, two lists union (deduplicated, order
// not guaranteed), and two action maps shallow-merge with the later role
// winning on duplicate action names. Mismatched shapes keep the earlier
// value. The asymmetry between list union and map overwrite is the
// long-standing behavior consumers of this aggregate rely on; do not
// "fix" it here.
//
// Merge output is for debugging and display. Permission checks must go
// through Resolve against each role's own document.
func Merge(docs ...Document) Document {
	merged := Document{}

	for _, doc := range docs {
		for key, value := range doc {
			existing, ok := merged[key]
			if !ok {
				merged[key] = value
				continue
			}

			switch {
			case existing.Kind() == KindList && value.Kind() == KindList:
				merged[key] = List(unionStrings(existing.List(), value.List())...)
			case existing.Kind() == KindActions && value.Kind() == KindActions:
				merged[key] = Actions(overlayActions(existing.Actions(), value.Actions()))
			}
		}
	}

	return merged
}

// SuperuserDocument is the sentinel aggregate returned for superusers
// instead of merging role documents.
func SuperuserDocument() Document {
	return Document{"superuser": Bool(true)}
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, items := range [][]string{a, b} {
		for _, item := range items {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

func overlayActions(base, overlay map[string]Action) map[string]Action {
	out := make(map[string]Action, len(base)+len(overlay))
	for name, action := range base {
		out[name] = action
	}
	for name, action := range overlay {
		out[name] = action
	}
	return out
}
