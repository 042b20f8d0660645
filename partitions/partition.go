package partitions

import (
	"fmt"
)

// Region identifies the layer of the cell sandwich a control volume belongs to
type Region uint8

const (
	Anode     Region = iota // Negative electrode
	Separator               // Porous separator, electrolyte only
	Cathode                 // Positive electrode
)

func (r Region) String() string {
	switch r {
	case Anode:
		return "anode"
	case Separator:
		return "separator"
	case Cathode:
		return "cathode"
	}
	return fmt.Sprintf("Region(%d)", uint8(r))
}

// HasSolid reports whether the region carries a solid (active material) phase
func (r Region) HasSolid() bool {
	return r == Anode || r == Cathode
}

// Partition represents a contiguous block of control volumes that share
// material properties
type Partition struct {
	// Unique identifier for this partition, equal to its position in the layout
	ID     int
	Region Region

	// Node membership
	Start int // Global index of the first control volume
	Count int // Number of control volumes
}

// End returns one past the last global node index of the partition
func (p Partition) End() int {
	return p.Start + p.Count
}

// Nodes returns the global node indices of the partition
func (p Partition) Nodes() []int {
	nodes := make([]int, p.Count)
	for i := range nodes {
		nodes[i] = p.Start + i
	}
	return nodes
}

// Contains reports whether global node n lies in the partition
func (p Partition) Contains(n int) bool {
	return n >= p.Start && n < p.End()
}

// PartitionLayout manages the region decomposition of a 1-D mesh
type PartitionLayout struct {
	// All partitions, ordered along the through-thickness coordinate
	Partitions []Partition

	// Global sizing information
	TotalNodes    int
	NumPartitions int

	// Node to partition mapping
	NToP []int // Length TotalNodes: node n belongs to partition NToP[n]
}

// Methods for PartitionLayout

// GetPartition returns the partition containing node n, or -1
func (pl *PartitionLayout) GetPartition(n int) int {
	if n < 0 || n >= len(pl.NToP) {
		return -1
	}
	return pl.NToP[n]
}

// RegionOf returns the region of node n
func (pl *PartitionLayout) RegionOf(n int) (Region, error) {
	p := pl.GetPartition(n)
	if p < 0 {
		return 0, fmt.Errorf("node %d outside layout of %d nodes", n, pl.TotalNodes)
	}
	return pl.Partitions[p].Region, nil
}

// Region returns the first partition belonging to region r
func (pl *PartitionLayout) Region(r Region) (Partition, bool) {
	for _, p := range pl.Partitions {
		if p.Region == r {
			return p, true
		}
	}
	return Partition{}, false
}

// Count returns the number of control volumes in region r
func (pl *PartitionLayout) Count(r Region) int {
	n := 0
	for _, p := range pl.Partitions {
		if p.Region == r {
			n += p.Count
		}
	}
	return n
}

// ValidateLayout checks partition consistency
func (pl *PartitionLayout) ValidateLayout() error {
	if pl.NumPartitions != len(pl.Partitions) {
		return fmt.Errorf("NumPartitions %d != len(Partitions) %d",
			pl.NumPartitions, len(pl.Partitions))
	}
	if len(pl.NToP) != pl.TotalNodes {
		return fmt.Errorf("NToP length %d does not match TotalNodes %d",
			len(pl.NToP), pl.TotalNodes)
	}
	next := 0
	for i, p := range pl.Partitions {
		if p.ID != i {
			return fmt.Errorf("partition %d: ID %d out of order", i, p.ID)
		}
		if p.Count <= 0 {
			return fmt.Errorf("partition %d (%s): empty", p.ID, p.Region)
		}
		if p.Start != next {
			return fmt.Errorf("partition %d (%s): starts at %d, expected %d",
				p.ID, p.Region, p.Start, next)
		}
		for n := p.Start; n < p.End(); n++ {
			if pl.NToP[n] != p.ID {
				return fmt.Errorf("node %d maps to partition %d, expected %d",
					n, pl.NToP[n], p.ID)
			}
		}
		next = p.End()
	}
	if next != pl.TotalNodes {
		return fmt.Errorf("partitions cover %d nodes, TotalNodes is %d", next, pl.TotalNodes)
	}
	return nil
}
