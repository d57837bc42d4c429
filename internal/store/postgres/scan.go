package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/alfredjeanlab/panelkit/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanComponent scans a single row into a model.Component.
func scanComponent(row scannable) (*model.Component, error) {
	var c model.Component
	var baseConfig []byte
	err := row.Scan(&c.Name, &c.Version, &c.InstalledAt, &c.UpdatedAt, &baseConfig)
	if err != nil {
		return nil, err
	}
	if len(baseConfig) > 0 {
		c.BaseConfig = json.RawMessage(baseConfig)
	}
	return &c, nil
}

// scanComponents scans multiple rows into a slice of model.Component pointers.
func scanComponents(rows *sql.Rows) ([]*model.Component, error) {
	var components []*model.Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		components = append(components, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return components, nil
}

// scanParameter scans a single row into a model.Parameter.
// The row must contain columns in the order defined by parameterColumns.
func scanParameter(row scannable) (*model.Parameter, error) {
	var p model.Parameter
	var (
		description sql.NullString
		minRange    sql.NullFloat64
		maxRange    sql.NullFloat64
		valueType   sql.NullString
	)
	err := row.Scan(
		&p.Section,
		&p.Name,
		&p.Value,
		&description,
		&minRange,
		&maxRange,
		&valueType,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	p.ValueType = model.ValueType(valueType.String)
	if minRange.Valid {
		v := minRange.Float64
		p.MinRange = &v
	}
	if maxRange.Valid {
		v := maxRange.Float64
		p.MaxRange = &v
	}
	return &p, nil
}

// scanParameters scans multiple rows into a slice of model.Parameter pointers.
func scanParameters(rows *sql.Rows) ([]*model.Parameter, error) {
	var params []*model.Parameter
	for rows.Next() {
		p, err := scanParameter(rows)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return params, nil
}

// scanMenuLink scans a single row into a model.MenuLink.
// The row must contain columns in the order defined by menuColumns.
func scanMenuLink(row scannable) (*model.MenuLink, error) {
	var l model.MenuLink
	var (
		icon             sql.NullString
		iconSVGPath      sql.NullString
		parentID         sql.NullInt64
		sectionHeadingID sql.NullInt64
		menuType         sql.NullString
	)
	err := row.Scan(
		&l.ID,
		&l.Title,
		&l.URL,
		&icon,
		&iconSVGPath,
		&l.PageIdentifier,
		&parentID,
		&sectionHeadingID,
		&l.MenuOrder,
		&l.IsActive,
		&menuType,
		&l.IsSectionHeading,
	)
	if err != nil {
		return nil, err
	}
	l.Icon = icon.String
	l.IconSVGPath = iconSVGPath.String
	l.MenuType = menuType.String
	if parentID.Valid {
		v := parentID.Int64
		l.ParentID = &v
	}
	if sectionHeadingID.Valid {
		v := sectionHeadingID.Int64
		l.SectionHeadingID = &v
	}
	return &l, nil
}

// scanMenuLinks scans multiple rows into a slice of model.MenuLink pointers.
func scanMenuLinks(rows *sql.Rows) ([]*model.MenuLink, error) {
	var links []*model.MenuLink
	for rows.Next() {
		l, err := scanMenuLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return links, nil
}

// scanEvent scans a single row into a model.Event.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		actor   sql.NullString
		payload []byte
	)
	err := row.Scan(&e.ID, &e.Topic, &e.Component, &actor, &payload, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Actor = actor.String
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}
	return &e, nil
}

// scanEvents scans multiple rows into a slice of model.Event pointers.
func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// scanGenericRows scans rows of unknown shape into column-keyed maps.
// Byte slices become strings so the rows encode as readable JSON.
func scanGenericRows(rows *sql.Rows) ([]model.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []model.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(model.Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				r[col] = string(b)
				continue
			}
			r[col] = values[i]
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullFloatPtr converts a *float64 to sql.NullFloat64.
func nullFloatPtr(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// nullInt64Ptr converts a *int64 to sql.NullInt64.
func nullInt64Ptr(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

// jsonbBytes converts json.RawMessage to a []byte suitable for JSONB columns.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
