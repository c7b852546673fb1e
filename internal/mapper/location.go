package mapper

import (
	"fmt"

	"github.com/brucargo/qmsync/internal/model"
)

// LocationBuilder turns Qonic spatial locations into Maximo functional
// location payloads. Site, org and system identifiers are fixed per
// deployment.
type LocationBuilder struct {
	siteID   string
	orgID    string
	systemID string
}

// NewLocationBuilder creates a location payload builder.
func NewLocationBuilder(siteID, orgID, systemID string) *LocationBuilder {
	return &LocationBuilder{siteID: siteID, orgID: orgID, systemID: systemID}
}

// Build produces the create payload for loc under the given Maximo parent.
// The Maximo location identifier is the source location's name; the GUID is
// kept in the description for traceability.
func (b *LocationBuilder) Build(loc *model.SourceLocation, parentTargetID string, hasChildren bool) (*model.LocationPayload, error) {
	if loc.Name == "" {
		return nil, fmt.Errorf("source location %s has no name", loc.GUID)
	}

	description := loc.Name
	if loc.GUID != "" {
		description = fmt.Sprintf("%s (GUID: %s)", loc.Name, loc.GUID)
	}

	return &model.LocationPayload{
		Location:    loc.Name,
		Description: description,
		SiteID:      b.siteID,
		OrgID:       b.orgID,
		Type:        "OPERATING",
		SystemID:    b.systemID,
		Parent:      parentTargetID,
		HasChildren: hasChildren,
		SourceGUID:  loc.GUID,
	}, nil
}
