package tree

// Well-known namespace URIs bound implicitly on every element.
const (
	XMLNamespace   = "http://www.w3.org/XML/1998/namespace"
	XMLNSNamespace = "http://www.w3.org/2000/xmlns/"
)

// DeclareNamespace records a prefix-to-URI declaration on the element,
// as an xmlns attribute would. The empty prefix declares the default
// namespace. Declaring a prefix with an empty URI undeclares it for the
// element's subtree.
func (e *Element) DeclareNamespace(prefix, uri string) {
	if e.decls == nil {
		e.decls = make(map[string]string)
	}
	e.decls[prefix] = uri
}

// Declarations returns a copy of the namespace declarations made
// directly on this element.
func (e *Element) Declarations() map[string]string {
	out := make(map[string]string, len(e.decls))
	for p, uri := range e.decls {
		out[p] = uri
	}
	return out
}

// Scope computes the set of prefix-to-URI bindings visible at this
// element: the union of all ancestor declarations, with closer
// declarations shadowing farther ones. Prefixes undeclared by an empty
// URI are omitted. The result is derived data; mutating the returned map
// has no effect on the tree.
func (e *Element) Scope() map[string]string {
	scope := make(map[string]string)
	e.fillScope(scope)
	return scope
}

func (e *Element) fillScope(scope map[string]string) {
	if e.parent != nil {
		e.parent.fillScope(scope)
	}
	for p, uri := range e.decls {
		if uri == "" {
			delete(scope, p)
		} else {
			scope[p] = uri
		}
	}
}

// LookupNamespace resolves a prefix to its in-scope namespace URI,
// walking from this element toward the root. The empty prefix resolves
// the default namespace. The "xml" prefix is always bound.
func (e *Element) LookupNamespace(prefix string) (string, bool) {
	if prefix == "xml" {
		return XMLNamespace, true
	}
	if prefix == "xmlns" {
		return XMLNSNamespace, true
	}
	for cur := e; cur != nil; cur = cur.parent {
		if uri, ok := cur.decls[prefix]; ok {
			if uri == "" {
				return "", false
			}
			return uri, true
		}
	}
	return "", false
}

// LookupPrefix returns a prefix bound to the given URI at this element,
// preferring the closest declaration. The second result reports whether
// any binding exists.
func (e *Element) LookupPrefix(uri string) (string, bool) {
	if uri == XMLNamespace {
		return "xml", true
	}
	best := ""
	found := false
	for cur := e; cur != nil; cur = cur.parent {
		for p, u := range cur.decls {
			if u != uri {
				continue
			}
			// The declaration only counts if it is not shadowed by a
			// closer redeclaration of the same prefix.
			if resolved, ok := e.LookupNamespace(p); !ok || resolved != uri {
				continue
			}
			// Deterministic choice: prefer the default declaration,
			// then the lexicographically smallest prefix.
			if !found || p == "" || (best != "" && p < best) {
				best = p
				found = true
			}
			if best == "" {
				return "", true
			}
		}
		if found {
			return best, true
		}
	}
	return "", false
}
