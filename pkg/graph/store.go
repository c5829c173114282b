package graph

import "errors"

// Store owns the canonical node and link sequences of a session.
//
// Store is not safe for concurrent use. It is owned by a single control
// loop; readers on other goroutines must work from derived snapshots.
type Store struct {
	nodes     []*Node
	links     []*Link
	byAddress map[string]int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		nodes:     make([]*Node, 0),
		links:     make([]*Link, 0),
		byAddress: make(map[string]int),
	}
}

// Merge fuses a fetched subgraph into the store.
//
// Nodes are inserted only when their address is new; a node whose address
// already exists is dropped without touching the stored node. Links are
// appended unconditionally and every link is then re-resolved against the
// current node set. The merge always completes; any endpoints that could not
// be resolved are returned as a joined error of *UnresolvedEndpointError.
func (s *Store) Merge(p *Payload) (MergeResult, error) {
	var result MergeResult
	if p == nil {
		return result, ErrNilPayload
	}

	for _, pn := range p.Nodes {
		if _, exists := s.byAddress[pn.Address]; exists {
			result.DuplicatesIgnored++
			continue
		}
		s.byAddress[pn.Address] = len(s.nodes)
		s.nodes = append(s.nodes, &Node{
			Address:     pn.Address,
			DisplayName: pn.AddressName,
			Balance:     pn.Balance,
			Kind:        pn.Type,
		})
		result.NodesAdded++
	}

	for _, pl := range p.Links {
		s.links = append(s.links, &Link{
			SourceAddress: pl.From,
			TargetAddress: pl.To,
			BalanceDelta:  pl.BalanceDelta,
		})
		result.LinksAdded++
	}

	err := s.ResolveLinks()
	result.Unresolved = len(UnresolvedEndpoints(err))
	return result, err
}

// ResolveLinks looks up the source and target node of every link.
// Links whose endpoints are missing are flagged unresolved and reported;
// they are never dropped.
func (s *Store) ResolveLinks() error {
	var errs []error
	for i, l := range s.links {
		src := s.Node(l.SourceAddress)
		dst := s.Node(l.TargetAddress)

		l.Source = src
		l.Target = dst
		l.Resolved = src != nil && dst != nil
		if l.Resolved {
			continue
		}

		// Only resolved links may hold references
		l.Source, l.Target = nil, nil

		missing := EndpointBoth
		switch {
		case src != nil:
			missing = EndpointTarget
		case dst != nil:
			missing = EndpointSource
		}
		errs = append(errs, &UnresolvedEndpointError{
			LinkIndex: i,
			Source:    l.SourceAddress,
			Target:    l.TargetAddress,
			Missing:   missing,
		})
	}
	return errors.Join(errs...)
}

// Node returns the node with the given address, or nil
func (s *Store) Node(address string) *Node {
	idx, ok := s.byAddress[address]
	if !ok {
		return nil
	}
	return s.nodes[idx]
}

// Index returns the insertion index of address, or -1
func (s *Store) Index(address string) int {
	idx, ok := s.byAddress[address]
	if !ok {
		return -1
	}
	return idx
}

// Nodes returns the nodes in insertion order. The slice must not be modified.
func (s *Store) Nodes() []*Node {
	return s.nodes
}

// Links returns the links in insertion order. The slice must not be modified.
func (s *Store) Links() []*Link {
	return s.links
}

// Len returns the number of nodes
func (s *Store) Len() int {
	return len(s.nodes)
}

// LinkCount returns the number of links, resolved or not
func (s *Store) LinkCount() int {
	return len(s.links)
}

// UnresolvedLinks returns the links currently flagged unresolved
func (s *Store) UnresolvedLinks() []*Link {
	var out []*Link
	for _, l := range s.links {
		if !l.Resolved {
			out = append(out, l)
		}
	}
	return out
}

// Degree counts the resolved links touching address
func (s *Store) Degree(address string) int {
	n := 0
	for _, l := range s.links {
		if !l.Resolved {
			continue
		}
		if l.SourceAddress == address {
			n++
		}
		if l.TargetAddress == address {
			n++
		}
	}
	return n
}

// Statistics is a point-in-time summary of the store
type Statistics struct {
	NodeCount       int `json:"node_count"`
	LinkCount       int `json:"link_count"`
	UnresolvedCount int `json:"unresolved_count"`
	PinnedCount     int `json:"pinned_count"`
}

// GetStatistics returns current store statistics
func (s *Store) GetStatistics() Statistics {
	stats := Statistics{
		NodeCount: len(s.nodes),
		LinkCount: len(s.links),
	}
	for _, l := range s.links {
		if !l.Resolved {
			stats.UnresolvedCount++
		}
	}
	for _, n := range s.nodes {
		if n.Pinned() {
			stats.PinnedCount++
		}
	}
	return stats
}
