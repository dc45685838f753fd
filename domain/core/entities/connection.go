package entities

// Connection is a typed edge between two chunks of one document.
//
// Source and target are chunk ids; whether the edge is rendered as directed
// comes from the type catalog, not from the instance. CreatedAt is epoch
// milliseconds. UserDefined is true for every connection created through
// this system.
type Connection struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Target      string `json:"target"`
	Type        string `json:"type"`
	CreatedAt   int64  `json:"createdAt"`
	UserDefined bool   `json:"userDefined"`
}

// CloneConnections returns a copy of a connection slice.
func CloneConnections(conns []Connection) []Connection {
	if conns == nil {
		return nil
	}
	out := make([]Connection, len(conns))
	copy(out, conns)
	return out
}

// CloneConnectionMap returns a deep copy of a per-document connection map.
func CloneConnectionMap(m map[string][]Connection) map[string][]Connection {
	if m == nil {
		return nil
	}
	out := make(map[string][]Connection, len(m))
	for k, v := range m {
		out[k] = CloneConnections(v)
	}
	return out
}
