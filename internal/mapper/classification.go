package mapper

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brucargo/qmsync/internal/model"
	"github.com/brucargo/qmsync/internal/syncerr"
	"go.uber.org/zap"
)

// Mapper translates a classification code plus a product property bag into
// Maximo classified attribute rows. It is a pure transform over the static
// table: same inputs, same outputs, no I/O.
type Mapper struct {
	table  *Table
	orgID  string
	logger *zap.Logger
}

// MappedClass is the result of mapping one classification.
type MappedClass struct {
	Code             string
	ClassStructureID string
	HierarchyPath    string
	Rows             []model.AssetSpecRow
}

// New creates a classification mapper over the given table.
func New(table *Table, orgID string, logger *zap.Logger) *Mapper {
	return &Mapper{table: table, orgID: orgID, logger: logger}
}

// Map resolves code against the table, falling back to the default mapping
// when the code is absent. Returns ErrUnmappedClassification when neither
// exists; this fails only the asset carrying the code, not the batch.
func (m *Mapper) Map(code string, properties map[string]string) (*MappedClass, error) {
	class, ok := m.table.Classes[code]
	if !ok {
		if m.table.Default == nil {
			return nil, fmt.Errorf("%w: %q", syncerr.ErrUnmappedClassification, code)
		}
		class = *m.table.Default
	}

	mapped := &MappedClass{
		Code:             code,
		ClassStructureID: class.ClassStructureID,
		HierarchyPath:    class.HierarchyPath,
	}

	for attrID, attr := range class.Attributes {
		raw, ok := properties[attr.Property]
		if !ok || raw == "" {
			m.logger.Debug("Property missing for classified attribute",
				zap.String("code", code),
				zap.String("attribute", attrID),
				zap.String("property", attr.Property))
			continue
		}

		row := model.AssetSpecRow{
			ClassStructureID: mapped.ClassStructureID,
			OrgID:            m.orgID,
			AssetAttrID:      attrID,
		}
		m.coerce(&row, raw, attr, code)
		mapped.Rows = append(mapped.Rows, row)
	}

	return mapped, nil
}

// coerce converts a raw property value into the Maximo value field matching
// the attribute's data type. Invalid or out-of-domain values become null;
// the attribute row is still sent so the spec slot exists on the asset.
func (m *Mapper) coerce(row *model.AssetSpecRow, raw string, attr AttributeMapping, code string) {
	raw = strings.TrimSpace(raw)

	if len(attr.Domain) > 0 && !contains(attr.Domain, raw) {
		m.logger.Warn("Value outside attribute domain",
			zap.String("code", code),
			zap.String("attribute", row.AssetAttrID),
			zap.String("value", raw))
		return
	}

	switch attr.Type {
	case "Boolean":
		v := "No"
		switch strings.ToLower(raw) {
		case "true", "yes", "y", "1":
			v = "Yes"
		}
		row.AlnValue = &v

	case "Integer":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			m.logger.Warn("Invalid integer value",
				zap.String("code", code),
				zap.String("attribute", row.AssetAttrID),
				zap.String("value", raw))
			return
		}
		n := float64(int64(f))
		row.NumValue = &n

	case "Real":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			m.logger.Warn("Invalid real value",
				zap.String("code", code),
				zap.String("attribute", row.AssetAttrID),
				zap.String("value", raw))
			return
		}
		row.NumValue = &f

	case "Time":
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			// Qonic sometimes emits date-only values.
			t, err = time.Parse("2006-01-02", raw)
		}
		if err != nil {
			m.logger.Warn("Invalid time value",
				zap.String("code", code),
				zap.String("attribute", row.AssetAttrID),
				zap.String("value", raw))
			return
		}
		v := t.Format(time.RFC3339)
		row.DateValue = &v

	default: // String and anything unrecognized
		v := raw
		row.AlnValue = &v
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
