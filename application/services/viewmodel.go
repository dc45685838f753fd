package services

import (
	"go.uber.org/zap"

	"bookgraph/domain/core/entities"
	"bookgraph/domain/core/valueobjects"
)

const (
	titleMaxRunes = 50
	defaultRadius = 14
	maxDepthTier  = 5
)

// GraphNode is one chunk prepared for rendering. Topic tags the node
// with its owning book so overview mode can color by book.
type GraphNode struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Topic  string `json:"topic"`
	Order  int    `json:"order"`
	Depth  int    `json:"depth,omitempty"`
	Radius int    `json:"radius"`
}

// GraphEdge is one connection with its resolved visual style.
type GraphEdge struct {
	ID          string  `json:"id"`
	Source      string  `json:"source"`
	Target      string  `json:"target"`
	Type        string  `json:"type"`
	MarkerID    int     `json:"markerId"`
	Color       string  `json:"color"`
	Directed    bool    `json:"directed"`
	Width       float64 `json:"width"`
	UserDefined bool    `json:"userDefined"`
}

// GraphView is a renderable snapshot of one book's graph.
type GraphView struct {
	DocID string      `json:"docId"`
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphBuilder turns workspace state into graph views.
type GraphBuilder struct {
	workspace *Workspace
	logger    *zap.Logger
}

// NewGraphBuilder creates a builder over the given workspace.
func NewGraphBuilder(workspace *Workspace, logger *zap.Logger) *GraphBuilder {
	return &GraphBuilder{workspace: workspace, logger: logger}
}

// nodeTitle shortens a chunk's input to at most 50 characters.
func nodeTitle(input string) string {
	runes := []rune(input)
	if len(runes) <= titleMaxRunes {
		return input
	}
	return string(runes[:titleMaxRunes]) + "..."
}

// nodeRadius maps a nesting depth to a node radius. Depth 1 is the
// largest; each level shrinks the node until a floor of 13. Chunks
// without a depth get a flat 14.
func nodeRadius(depth *int) int {
	if depth == nil || *depth < 1 {
		return defaultRadius
	}
	d := *depth
	if d > maxDepthTier {
		d = maxDepthTier
	}
	r := 45 - (d-1)*8
	if r < 13 {
		r = 13
	}
	return r
}

func buildNodes(topic string, chunks []entities.Chunk) []GraphNode {
	nodes := make([]GraphNode, 0, len(chunks))
	for _, c := range chunks {
		n := GraphNode{
			ID:     c.ID,
			Title:  nodeTitle(c.Input),
			Text:   c.Input,
			Topic:  topic,
			Order:  c.Order,
			Radius: nodeRadius(c.Depth),
		}
		if c.Depth != nil {
			n.Depth = *c.Depth
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func buildEdges(conns []entities.Connection) []GraphEdge {
	edges := make([]GraphEdge, 0, len(conns))
	for _, c := range conns {
		linkType, style := valueobjects.ResolveLinkType(c.Type)
		edges = append(edges, GraphEdge{
			ID:          c.ID,
			Source:      c.Source,
			Target:      c.Target,
			Type:        string(linkType),
			MarkerID:    style.MarkerID,
			Color:       style.Color,
			Directed:    style.Directed,
			Width:       style.Width,
			UserDefined: c.UserDefined,
		})
	}
	return edges
}

// bookName resolves a document id to its display name for node
// tagging, falling back to the id when no metadata exists.
func (b *GraphBuilder) bookName(docID string) string {
	if m, ok := b.workspace.Books()[docID]; ok && m.Name != "" {
		return m.Name
	}
	return docID
}

// BuildForBook produces the graph view of one book. Dangling
// connections are pruned and the pruned state persisted before the
// view is built.
func (b *GraphBuilder) BuildForBook(docID string) (*GraphView, error) {
	removed, err := b.workspace.ValidateConnections(docID)
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		b.logger.Info("graph build pruned connections",
			zap.String("doc_id", docID), zap.Int("removed", removed))
	}

	return &GraphView{
		DocID: docID,
		Nodes: buildNodes(b.bookName(docID), b.workspace.Entries(docID)),
		Edges: buildEdges(b.workspace.Connections(docID)),
	}, nil
}

// BuildOverview produces views for every book. Unlike BuildForBook it
// filters dangling connections out of the views without touching the
// stored state.
func (b *GraphBuilder) BuildOverview() ([]*GraphView, error) {
	var views []*GraphView
	books := b.workspace.Books()
	for docID, meta := range books {
		name := meta.Name
		if name == "" {
			name = docID
		}
		chunks := b.workspace.Entries(docID)
		live := make(map[string]bool, len(chunks))
		for _, c := range chunks {
			live[c.ID] = true
		}
		var kept []entities.Connection
		for _, c := range b.workspace.Connections(docID) {
			if live[c.Source] && live[c.Target] {
				kept = append(kept, c)
			}
		}
		views = append(views, &GraphView{
			DocID: docID,
			Nodes: buildNodes(name, chunks),
			Edges: buildEdges(kept),
		})
	}
	return views, nil
}
