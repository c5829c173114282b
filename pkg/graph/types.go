package graph

// Position is a 2D coordinate in layout space
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is an address in the graph. Address is the identity key.
type Node struct {
	Address     string
	DisplayName string
	Balance     float64
	Kind        string

	// Position is nil until the layout engine places the node.
	Position *Position
	// Pin overrides Position while set (drag in progress).
	Pin *Position
}

// Pinned reports whether the node has a fixed-position override
func (n *Node) Pinned() bool {
	return n.Pin != nil
}

// Placed reports whether the node has been assigned a position
func (n *Node) Placed() bool {
	return n.Position != nil
}

// XY returns the node position, or the origin when unplaced
func (n *Node) XY() (float64, float64) {
	if n.Position == nil {
		return 0, 0
	}
	return n.Position.X, n.Position.Y
}

// Link is a transfer between two addresses.
// Source and Target are non-owning references resolved by address lookup;
// both are nil while the link is unresolved.
type Link struct {
	SourceAddress string
	TargetAddress string
	BalanceDelta  float64

	Source   *Node
	Target   *Node
	Resolved bool
}

// PayloadNode is a node as it appears in a fetched subgraph
type PayloadNode struct {
	Address     string  `json:"address" yaml:"address" validate:"required"`
	AddressName string  `json:"address_name" yaml:"address_name"`
	Balance     float64 `json:"balance" yaml:"balance"`
	Type        string  `json:"type,omitempty" yaml:"type,omitempty"`
}

// PayloadLink is a link as it appears in a fetched subgraph
type PayloadLink struct {
	From         string  `json:"from" yaml:"from" validate:"required"`
	To           string  `json:"to" yaml:"to" validate:"required"`
	BalanceDelta float64 `json:"balance_delta" yaml:"balance_delta"`
}

// Payload is a subgraph handed to Store.Merge
type Payload struct {
	Nodes []PayloadNode `json:"nodes" yaml:"nodes" validate:"dive"`
	Links []PayloadLink `json:"links" yaml:"links" validate:"dive"`
}

// MergeResult summarises what a merge changed
type MergeResult struct {
	NodesAdded        int `json:"nodes_added"`
	DuplicatesIgnored int `json:"duplicates_ignored"`
	LinksAdded        int `json:"links_added"`
	Unresolved        int `json:"unresolved"`
}

// Changed reports whether the merge added anything to the store
func (r MergeResult) Changed() bool {
	return r.NodesAdded > 0 || r.LinksAdded > 0
}
