package library

// Index is an ordered search tree of books keyed by ISBN. It is kept
// height-balanced (AVL) so sequential ISBNs do not degrade it into a list.
//
// Search hands out a pointer into the owning node. Delete may move a record
// into a different node, so such pointers must not be held across a Delete.
type Index struct {
	root *node
	size int
}

type node struct {
	book        Book
	left, right *node
	height      int
}

// NewIndex returns an empty index.
func NewIndex() *Index { return &Index{} }

// Len returns the number of records in the index.
func (ix *Index) Len() int { return ix.size }

// Insert adds b. A record whose ISBN equals an existing one goes to the right
// of it; nothing is ever overwritten. Uniqueness is the caller's concern.
func (ix *Index) Insert(b Book) {
	ix.root = insertNode(ix.root, b)
	ix.size++
}

// Search returns the record stored under isbn.
func (ix *Index) Search(isbn ISBN) (*Book, bool) {
	n := ix.root
	for n != nil {
		switch {
		case isbn < n.book.ISBN:
			n = n.left
		case isbn > n.book.ISBN:
			n = n.right
		default:
			return &n.book, true
		}
	}
	return nil, false
}

// Delete removes the record stored under isbn and reports whether one was found.
// A node with two children takes over its in-order successor's record and the
// successor node is then removed from the right subtree.
func (ix *Index) Delete(isbn ISBN) bool {
	var found bool
	ix.root, found = deleteNode(ix.root, isbn)
	if found {
		ix.size--
	}
	return found
}

// Walk visits records in ascending ISBN order until fn returns false.
// The index must not be mutated from inside fn.
func (ix *Index) Walk(fn func(*Book) bool) {
	var stack []*node
	n := ix.root
	for n != nil || len(stack) > 0 {
		for n != nil {
			stack = append(stack, n)
			n = n.left
		}
		n = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(&n.book) {
			return
		}
		n = n.right
	}
}

// InOrder returns a copy of every record in ascending ISBN order.
func (ix *Index) InOrder() []Book {
	out := make([]Book, 0, ix.size)
	ix.Walk(func(b *Book) bool {
		out = append(out, *b)
		return true
	})
	return out
}

// Height is the number of levels in the tree; zero when empty.
func (ix *Index) Height() int { return height(ix.root) }

func insertNode(n *node, b Book) *node {
	if n == nil {
		return &node{book: b, height: 1}
	}
	if b.ISBN < n.book.ISBN {
		n.left = insertNode(n.left, b)
	} else {
		n.right = insertNode(n.right, b)
	}
	return rebalance(n)
}

func deleteNode(n *node, isbn ISBN) (*node, bool) {
	if n == nil {
		return nil, false
	}
	var found bool
	switch {
	case isbn < n.book.ISBN:
		n.left, found = deleteNode(n.left, isbn)
	case isbn > n.book.ISBN:
		n.right, found = deleteNode(n.right, isbn)
	default:
		if n.left == nil {
			return n.right, true
		}
		if n.right == nil {
			return n.left, true
		}
		succ := n.right
		for succ.left != nil {
			succ = succ.left
		}
		n.book = succ.book
		n.right = deleteMin(n.right)
		found = true
	}
	if !found {
		return n, false
	}
	return rebalance(n), true
}

// deleteMin removes the leftmost node of the subtree rooted at n.
func deleteMin(n *node) *node {
	if n.left == nil {
		return n.right
	}
	n.left = deleteMin(n.left)
	return rebalance(n)
}

func height(n *node) int {
	if n == nil {
		return 0
	}
	return n.height
}

func fix(n *node) {
	n.height = 1 + max(height(n.left), height(n.right))
}

func rotateRight(n *node) *node {
	l := n.left
	n.left = l.right
	l.right = n
	fix(n)
	fix(l)
	return l
}

func rotateLeft(n *node) *node {
	r := n.right
	n.right = r.left
	r.left = n
	fix(n)
	fix(r)
	return r
}

func rebalance(n *node) *node {
	fix(n)
	switch bf := height(n.left) - height(n.right); {
	case bf > 1:
		if height(n.left.left) < height(n.left.right) {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	case bf < -1:
		if height(n.right.right) < height(n.right.left) {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	}
	return n
}
