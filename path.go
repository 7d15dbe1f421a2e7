package modelkit

import "strings"

// Field paths are dotted for nested fields and bracketed for dict keys:
//
//	outer.inner
//	tags['a']
//	owners['x'].name
//
// An unbound descriptor (an inner collection element) contributes no segment
// of its own, so its failures surface at the enclosing field.

// joinPath appends child below parent. Empty segments collapse.
func joinPath(parent, child string) string {
	switch {
	case parent == "":
		return child
	case child == "":
		return parent
	case strings.HasPrefix(child, "["):
		return parent + child
	}
	return parent + "." + child
}

// keyPath renders the path of a dict value: name['key'].
func keyPath(name string, key any) string {
	return name + "['" + keyString(key) + "']"
}
