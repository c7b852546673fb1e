package model

// LocationPayload is a Maximo functional-location create payload, posted
// through the QONIC_MXAPILOCATIONS object structure so the parent reference
// is assigned at creation time.
type LocationPayload struct {
	Location    string `json:"location"`
	Description string `json:"description"`
	SiteID      string `json:"siteid"`
	OrgID       string `json:"orgid"`
	Type        string `json:"type"`
	SystemID    string `json:"systemid"`
	Parent      string `json:"parent"`
	HasChildren bool   `json:"children"`

	// SourceGUID is the Qonic location this payload was built from.
	// Kept for state bookkeeping, never sent to Maximo.
	SourceGUID string `json:"-"`
}

// AssetSpecRow is one classified attribute value on an asset. Exactly one
// of the value fields is set, matching the attribute's Maximo data type.
type AssetSpecRow struct {
	ClassStructureID  string   `json:"classstructureid"`
	OrgID             string   `json:"orgid"`
	AssetAttrID       string   `json:"assetattrid"`
	LinearAssetSpecID int      `json:"linearassetspecid"`
	AlnValue          *string  `json:"alnvalue,omitempty"`
	NumValue          *float64 `json:"numvalue,omitempty"`
	DateValue         *string  `json:"datevalue,omitempty"`
}

// AssetPayload is a Maximo asset create payload for MXAPIASSET.
type AssetPayload struct {
	AssetNum      string         `json:"assetnum,omitempty"`
	SiteID        string         `json:"siteid"`
	OrgID         string         `json:"orgid"`
	Description   string         `json:"description"`
	HierarchyPath string         `json:"hierarchypath,omitempty"`
	Location      string         `json:"location"`
	BimIfcGUID    string         `json:"bim_ifcguid"`
	QRCode        string         `json:"b_qrcode"`
	Manufacturer  string         `json:"manufacturer,omitempty"`
	AssetTag      string         `json:"assettag,omitempty"`
	AssetSpec     []AssetSpecRow `json:"assetspec,omitempty"`

	SourceGUID string `json:"-"`
}

// AssetLink carries the Maximo identifiers written back onto a Qonic
// product after a successful asset creation.
type AssetLink struct {
	SourceGUID       string
	TargetAssetID    string
	TargetLocationID string
}
