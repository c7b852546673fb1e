package mapper

import (
	"github.com/brucargo/qmsync/internal/model"
	"go.uber.org/zap"
)

// maxDescriptionLen is Maximo's ASSET.DESCRIPTION column width.
const maxDescriptionLen = 100

// AssetTranslator converts source assets plus their resolved Maximo
// location into asset create payloads.
type AssetTranslator struct {
	mapper *Mapper
	siteID string
	orgID  string
	logger *zap.Logger
}

// NewAssetTranslator creates an asset translator over the given
// classification mapper.
func NewAssetTranslator(m *Mapper, siteID, orgID string, logger *zap.Logger) *AssetTranslator {
	return &AssetTranslator{mapper: m, siteID: siteID, orgID: orgID, logger: logger}
}

// Translate builds the Maximo asset payload for asset, placed under
// targetLocationID. Propagates ErrUnmappedClassification from the mapper.
func (t *AssetTranslator) Translate(asset *model.SourceAsset, targetLocationID string) (*model.AssetPayload, error) {
	class, err := t.mapper.Map(asset.Code, asset.Properties)
	if err != nil {
		return nil, err
	}

	description := asset.Name
	if description == "" {
		description = asset.Properties["Description"]
	}
	if description == "" {
		description = asset.AssetID
	}
	if len(description) > maxDescriptionLen {
		t.logger.Warn("Asset description truncated",
			zap.String("asset", asset.GUID),
			zap.Int("length", len(description)))
		description = description[:maxDescriptionLen]
	}

	payload := &model.AssetPayload{
		AssetNum:      asset.AssetID,
		SiteID:        t.siteID,
		OrgID:         t.orgID,
		Description:   description,
		HierarchyPath: class.HierarchyPath,
		Location:      targetLocationID,
		BimIfcGUID:    asset.GUID,
		QRCode:        targetLocationID,
		Manufacturer:  asset.Properties["Manufacturer"],
		AssetTag:      asset.Properties["Tag"],
		AssetSpec:     class.Rows,
		SourceGUID:    asset.GUID,
	}

	return payload, nil
}
