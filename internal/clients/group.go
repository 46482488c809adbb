package clients

// SectionKey identifies one collapsible environment section of a base client.
type SectionKey struct {
	Base        string
	Environment Environment
}

// Row is one line of the sidebar: either a section header or a client.
type Row struct {
	Section  SectionKey
	IsHeader bool
	Count    int
	Expanded bool
	Client   Client
}

// Rows flattens clients into sidebar rows grouped by base client and tier.
// Clients must already be normalized and sorted (see NormalizeAll).
// Sections missing from expanded default to expanded.
func Rows(list []Client, expanded map[SectionKey]bool) []Row {
	counts := make(map[SectionKey]int)
	for _, c := range list {
		counts[SectionKey{c.BaseName, c.Environment}]++
	}

	var rows []Row
	var current SectionKey
	started := false
	for _, c := range list {
		key := SectionKey{c.BaseName, c.Environment}
		open := isExpanded(expanded, key)
		if !started || key != current {
			rows = append(rows, Row{Section: key, IsHeader: true, Count: counts[key], Expanded: open})
			current = key
			started = true
		}
		if open {
			rows = append(rows, Row{Section: key, Client: c})
		}
	}
	return rows
}

func isExpanded(expanded map[SectionKey]bool, key SectionKey) bool {
	if v, ok := expanded[key]; ok {
		return v
	}
	return true
}
