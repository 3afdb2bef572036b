// Package reducer provides the default edit-merge function injected
// into the hub. The protocol core treats document state and edit
// payloads as opaque; this package defines one concrete, deterministic
// interpretation of them.
package reducer

// LastWriterWins applies one edit to a document state sequentially.
// When both the state and the edit's "document" field are JSON
// objects, the edit's keys are merged over the state's; any other
// combination replaces the state outright. An edit without a
// "document" field leaves the state unchanged, so unknown edit shapes
// are total rather than failing.
func LastWriterWins(state, edit any) any {
	patch, ok := documentField(edit)
	if !ok {
		return state
	}
	base, baseIsMap := state.(map[string]any)
	next, nextIsMap := patch.(map[string]any)
	if !baseIsMap || !nextIsMap {
		return patch
	}
	merged := make(map[string]any, len(base)+len(next))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range next {
		merged[k] = v
	}
	return merged
}

func documentField(edit any) (any, bool) {
	m, ok := edit.(map[string]any)
	if !ok {
		return nil, false
	}
	doc, ok := m["document"]
	return doc, ok
}
