package search

import (
	"github.com/MohanGuptaKoduru/ServiceLink/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterQueryEmbedding(fallback bool)
	AfterSnapshotLoad(technicians int, generation uint64)
	AfterRanking(writeBacks []WriteBack)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                    {}
func (n *noopMonitor) AfterQueryEmbedding(_ bool)        {}
func (n *noopMonitor) AfterSnapshotLoad(_ int, _ uint64) {}
func (n *noopMonitor) AfterRanking(_ []WriteBack)        {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)     {}
