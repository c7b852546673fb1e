package model

// SourceLocation is a Qonic spatial location node. Locations form a tree;
// ParentGUID is empty for roots.
type SourceLocation struct {
	GUID       string
	Name       string
	ParentGUID string
	Properties map[string]string
}

// IsRoot reports whether the location has no parent in the source tree.
func (l *SourceLocation) IsRoot() bool {
	return l.ParentGUID == ""
}

// SourceAsset is a Qonic product selected for synchronization.
type SourceAsset struct {
	GUID string
	Name string
	// Code is the classification code that selects the Maximo class
	// structure and attribute mappings.
	Code string
	// AssetID is the pre-assigned Maximo asset number, if the model
	// carries one. Empty lets Maximo generate it.
	AssetID      string
	LocationGUID string
	Properties   map[string]string
}

// AssetFilter narrows the candidate set for one sync pass.
type AssetFilter struct {
	// Properties are exact-match filters on product properties.
	Properties map[string]string
	// Codes restricts candidates to these classification codes.
	// Empty means every code present in the mapping table.
	Codes []string
}
