package sitecrawl

// Heading represents an h1-h6 element of a page.
type Heading struct {
	ID       string `json:"id"`
	PageID   string `json:"pageId"`
	ParentID string `json:"parentId,omitempty"`
	Level    int    `json:"level"`
	Text     string `json:"text"`

	// HTML is the raw outer markup of the heading element.
	HTML string `json:"html"`

	// Checksum is computed over HTML.
	Checksum string `json:"checksum"`

	// Position is the heading's index in document order.
	Position int `json:"position"`

	Parent   *Heading   `json:"-"`
	Children []*Heading `json:"children,omitempty"`
}

// BuildHeadingTree links headings given in document order into a forest and
// returns its roots. A heading becomes the child of the nearest preceding
// heading with a lower level; headings with no such predecessor are roots.
// Existing Parent and Children links are reset.
func BuildHeadingTree(headings []*Heading) []*Heading {
	var roots []*Heading
	stack := make([]*Heading, 0, 6)

	for _, h := range headings {
		h.Parent = nil
		h.Children = nil

		for len(stack) > 0 && stack[len(stack)-1].Level >= h.Level {
			stack = stack[:len(stack)-1]
		}

		if len(stack) == 0 {
			roots = append(roots, h)
		} else {
			parent := stack[len(stack)-1]
			h.Parent = parent
			parent.Children = append(parent.Children, h)
		}

		stack = append(stack, h)
	}

	return roots
}
