package tlv

// Find returns the first top-level node carrying tag.
func Find(nodes []Node, tag Tag) (Node, bool) {
	for _, n := range nodes {
		if n.Tag == tag {
			return n, true
		}
	}
	return Node{}, false
}

// FindRecursive walks the tree depth first, parents before children, and
// returns the first node carrying tag. It is used to pull fields out of
// record templates ('70') and response templates ('77') whatever their nesting.
func FindRecursive(nodes []Node, tag Tag) (Node, bool) {
	for _, n := range nodes {
		if n.Tag == tag {
			return n, true
		}
		if len(n.Children) > 0 {
			if found, ok := FindRecursive(n.Children, tag); ok {
				return found, true
			}
		}
	}
	return Node{}, false
}
