package valueobjects

// LinkType names an entry in the fixed connection-type catalog.
type LinkType string

const (
	LinkTypeReference      LinkType = "reference"
	LinkTypeCausal         LinkType = "causal"
	LinkTypeContinuation   LinkType = "continuation"
	LinkTypeExample        LinkType = "example"
	LinkTypeFurtherReading LinkType = "further-reading"
	LinkTypeSubtopic       LinkType = "subtopic"
	LinkTypeDefault        LinkType = "default"
)

// LinkStyle carries the rendering attributes of a link type. MarkerID is a
// numeric identifier used for arrowhead markers; it is fixed per type so
// renderer-generated element ids stay stable across rebuilds and never
// depend on the type name itself.
type LinkStyle struct {
	MarkerID int
	Color    string
	Directed bool
	Width    float64
}

// catalog is the closed set of link types. Marker ids are assigned from
// 3141 upward and must not be reused.
var catalog = map[LinkType]LinkStyle{
	LinkTypeReference:      {MarkerID: 3141, Color: "#3b82f6", Directed: true, Width: 2},
	LinkTypeCausal:         {MarkerID: 3142, Color: "#8b5cf6", Directed: true, Width: 2.5},
	LinkTypeContinuation:   {MarkerID: 3143, Color: "#06b6d4", Directed: true, Width: 2},
	LinkTypeExample:        {MarkerID: 3144, Color: "#10b981", Directed: false, Width: 2},
	LinkTypeFurtherReading: {MarkerID: 3145, Color: "#f59e0b", Directed: false, Width: 2},
	LinkTypeSubtopic:       {MarkerID: 3146, Color: "#ec4899", Directed: true, Width: 2.5},
	LinkTypeDefault:        {MarkerID: 3147, Color: "#64748b", Directed: true, Width: 1.5},
}

// linkTypeOrder fixes presentation order for the selectable types.
var linkTypeOrder = []LinkType{
	LinkTypeReference,
	LinkTypeCausal,
	LinkTypeContinuation,
	LinkTypeExample,
	LinkTypeFurtherReading,
	LinkTypeSubtopic,
}

// ResolveLinkType maps an arbitrary stored type string onto the catalog.
// Unknown types resolve to the default entry, so callers always receive a
// present style and never need a nil check.
func ResolveLinkType(t string) (LinkType, LinkStyle) {
	if style, ok := catalog[LinkType(t)]; ok {
		return LinkType(t), style
	}
	return LinkTypeDefault, catalog[LinkTypeDefault]
}

// SelectableLinkTypes returns the user-choosable types in presentation
// order. The default entry is a fallback only and is excluded.
func SelectableLinkTypes() []LinkType {
	out := make([]LinkType, len(linkTypeOrder))
	copy(out, linkTypeOrder)
	return out
}
