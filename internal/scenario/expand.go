package scenario

import "fmt"

// Expand replaces every template NodeEntry with its Count concrete
// expansions (identifiers "{id_prefix}{i}" for i in [0,count)), run
// before Validate so uniqueness and reference-resolution rules see the
// fully expanded node list.
func Expand(doc *Document) {
	expanded := make([]NodeEntry, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if !n.IsTemplate() {
			expanded = append(expanded, n)
			continue
		}
		for i := 0; i < n.Count; i++ {
			expanded = append(expanded, NodeEntry{
				ID:       fmt.Sprintf("%s%d", n.IDPrefix, i),
				Firmware: n.Firmware,
				Prefix:   n.Prefix,
				Password: n.Password,
				Port:     n.Port,
				Params:   n.Params,
			})
		}
	}
	doc.Nodes = expanded
}
