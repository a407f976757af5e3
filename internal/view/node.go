// Package view turns extraction results into a presentation-neutral tree.
//
// A tree is made of four node kinds: Leaf (a single value), Table (label/value
// rows), List (repeated items) and Section (a titled group of children).
// Presenters such as the terminal renderer in this package or the HTML
// templates of the web package consume the tree without knowing which result
// shape it came from.
package view

// Kind tags the concrete type of a Node
type Kind string

const (
	KindLeaf    Kind = "leaf"
	KindTable   Kind = "table"
	KindList    Kind = "list"
	KindSection Kind = "section"
)

// Node is any element of the view tree
type Node interface {
	Kind() Kind
}

// Leaf is a single value. Preformatted leaves must be shown verbatim.
type Leaf struct {
	Text         string
	Preformatted bool
}

// Row is one label/value line of a Table
type Row struct {
	Label string
	Value string
}

// Table is an ordered set of label/value rows
type Table struct {
	Rows []Row
}

// List is a sequence of items, usually "Item N" sections
type List struct {
	Items []Node
}

// Section groups children under a title
type Section struct {
	Title       string
	Collapsible bool
	Children    []Node
}

func (Leaf) Kind() Kind    { return KindLeaf }
func (Table) Kind() Kind   { return KindTable }
func (List) Kind() Kind    { return KindList }
func (Section) Kind() Kind { return KindSection }
