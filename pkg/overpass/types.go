// Package overpass builds and executes Overpass API queries for
// point-of-interest extraction.
package overpass

// Member is a reference from a relation to another element.
type Member struct {
	Type string `json:"type"`
	Ref  int64  `json:"ref"`
	Role string `json:"role"`
}

// Element is a raw OpenStreetMap element as returned by the Overpass
// API: a node with direct coordinates, a way referencing node IDs, or a
// relation referencing other elements. Elements only live for the
// duration of one fetch cycle.
type Element struct {
	Type    string            `json:"type"`
	ID      int64             `json:"id"`
	Lat     float64           `json:"lat,omitempty"`
	Lon     float64           `json:"lon,omitempty"`
	Tags    map[string]string `json:"tags,omitempty"`
	Nodes   []int64           `json:"nodes,omitempty"`
	Members []Member          `json:"members,omitempty"`
}

// response is the envelope of an Overpass JSON response.
type response struct {
	Elements []Element `json:"elements"`
}
