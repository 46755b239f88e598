package ast

// ItemBase holds the attributes shared by every item provider.
type ItemBase struct {
	Condition Condition
	Optional  bool
}

// Base returns the shared attributes.
func (b *ItemBase) Base() *ItemBase { return b }

// ItemProvider is one child-producing element of a rule's Expand section.
// The set of implementations is closed.
type ItemProvider interface {
	Base() *ItemBase
	itemProvider()
}

// SizeNode is a conditional size expression.
type SizeNode struct {
	Condition Condition
	Optional  bool
	Expr      string
}

// ValueNode is a conditional value expression.
type ValueNode struct {
	Condition Condition
	Optional  bool
	Value     *FormattedExpression
}

// SingleItem yields one named child.
type SingleItem struct {
	ItemBase
	Name  string
	Value *FormattedExpression
}

// ExpandedItem splices the children of a value.
type ExpandedItem struct {
	ItemBase
	Value *FormattedExpression
}

// ArrayItems yields elements reached from a pointer or array.
type ArrayItems struct {
	ItemBase
	Sizes         []*SizeNode
	ValuePointers []*ValueNode
}

// IndexListItems yields elements from an expression parameterized by `$i`.
type IndexListItems struct {
	ItemBase
	Sizes  []*SizeNode
	Values []*ValueNode
}

// LinkedListItems walks a singly linked list.
type LinkedListItems struct {
	ItemBase
	Size  *SizeNode
	Head  string
	Next  string
	Value *FormattedExpression
	Name  *InterpolatedString
}

// TreeItems walks a binary tree in order.
type TreeItems struct {
	ItemBase
	Size           *SizeNode
	Head           string
	Left           string
	Right          string
	Value          *FormattedExpression
	ValueCondition string
	Name           *InterpolatedString
}

// CustomListItems runs a small program that emits children.
type CustomListItems struct {
	ItemBase
	Variables []Variable
	Sizes     []*SizeNode
	Code      []Statement
}

func (*SingleItem) itemProvider()      {}
func (*ExpandedItem) itemProvider()    {}
func (*ArrayItems) itemProvider()      {}
func (*IndexListItems) itemProvider()  {}
func (*LinkedListItems) itemProvider() {}
func (*TreeItems) itemProvider()       {}
func (*CustomListItems) itemProvider() {}
