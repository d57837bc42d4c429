package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/panelkit/internal/model"
)

// parameterColumns is the column list used for SELECT statements on parameter tables.
const parameterColumns = `section, parameter_name, value, description,
	min_range, max_range, value_type, updated_at`

// menuColumns is the column list used for SELECT statements on the menu table.
const menuColumns = `id, title, url, icon, icon_svg_path, page_identifier,
	parent_id, section_heading_id, menu_order, is_active, menu_type, is_section_heading`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// likePrefix escapes LIKE metacharacters in prefix and appends a trailing
// wildcard, so "widgets_" only matches identifiers that literally start with
// "widgets_".
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

func queryTableExists(ctx context.Context, db executor, table string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("table exists %s: %w", table, err)
	}
	return exists, nil
}

func queryColumnExists(ctx context.Context, db executor, table, column string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
		)`, table, column).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("column exists %s.%s: %w", table, column, err)
	}
	return exists, nil
}

func queryExec(ctx context.Context, db executor, stmt string, args ...any) error {
	_, err := db.ExecContext(ctx, stmt, args...)
	return err
}

func queryDropTable(ctx context.Context, db executor, table string) error {
	_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS `+pq.QuoteIdentifier(table))
	return err
}

func queryDumpTable(ctx context.Context, db executor, table string) ([]model.Row, error) {
	rows, err := db.QueryContext(ctx, `SELECT * FROM `+pq.QuoteIdentifier(table))
	if err != nil {
		return nil, fmt.Errorf("dump %s: %w", table, err)
	}
	defer rows.Close()

	out, err := scanGenericRows(rows)
	if err != nil {
		return nil, fmt.Errorf("dump %s: %w", table, err)
	}
	return out, nil
}

func queryRegisterComponent(ctx context.Context, db executor, c *model.Component) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO components (name, version, base_config)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET base_config = EXCLUDED.base_config, updated_at = NOW()
		RETURNING version, installed_at, updated_at`,
		c.Name, c.Version, jsonbBytes(c.BaseConfig),
	).Scan(&c.Version, &c.InstalledAt, &c.UpdatedAt)
}

func queryGetComponent(ctx context.Context, db executor, name string) (*model.Component, error) {
	row := db.QueryRowContext(ctx, `
		SELECT name, version, installed_at, updated_at, base_config
		FROM components WHERE name = $1`, name)
	return scanComponent(row)
}

func queryListComponents(ctx context.Context, db executor) ([]*model.Component, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name, version, installed_at, updated_at, base_config
		FROM components ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComponents(rows)
}

func querySetComponentVersion(ctx context.Context, db executor, name, version string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE components SET version = $2, updated_at = NOW()
		WHERE name = $1`, name, version)
	if err != nil {
		return err
	}
	return requireRows(res)
}

func queryDeleteComponent(ctx context.Context, db executor, name string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM components WHERE name = $1`, name)
	if err != nil {
		return err
	}
	return requireRows(res)
}

func queryGetConfigValue(ctx context.Context, db executor, component, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM `+pq.QuoteIdentifier(model.ConfigTable(component))+` WHERE key = $1`,
		key,
	).Scan(&value)
	return value, err
}

func querySetConfigValue(ctx context.Context, db executor, component, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO `+pq.QuoteIdentifier(model.ConfigTable(component))+` (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value,
	)
	return err
}

func queryGetParameter(ctx context.Context, db executor, component, section, name string) (*model.Parameter, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+parameterColumns+`
		FROM `+pq.QuoteIdentifier(model.ParametersTable(component))+`
		WHERE section = $1 AND parameter_name = $2`,
		section, name,
	)
	return scanParameter(row)
}

// querySetParameter upserts on (section, parameter_name). Description,
// ranges and value_type keep their stored values when the new ones are absent.
func querySetParameter(ctx context.Context, db executor, component string, p *model.Parameter) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO `+pq.QuoteIdentifier(model.ParametersTable(component))+` AS p (
			section, parameter_name, value, description, min_range, max_range, value_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (section, parameter_name) DO UPDATE SET
			value = EXCLUDED.value,
			description = COALESCE(EXCLUDED.description, p.description),
			min_range = COALESCE(EXCLUDED.min_range, p.min_range),
			max_range = COALESCE(EXCLUDED.max_range, p.max_range),
			value_type = COALESCE(NULLIF(EXCLUDED.value_type, ''), p.value_type),
			updated_at = NOW()
		RETURNING updated_at`,
		p.Section,
		p.Name,
		p.Value,
		nullString(p.Description),
		nullFloatPtr(p.MinRange),
		nullFloatPtr(p.MaxRange),
		string(p.ValueType),
	).Scan(&p.UpdatedAt)
}

func queryListParameters(ctx context.Context, db executor, component string, filter model.ParameterFilter) ([]*model.Parameter, error) {
	var (
		whereClauses []string
		args         []any
	)
	if filter.Section != "" {
		args = append(args, filter.Section)
		whereClauses = append(whereClauses, fmt.Sprintf("section = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, filter.Search)
		whereClauses = append(whereClauses, fmt.Sprintf("parameter_name ILIKE '%%' || $%d || '%%'", len(args)))
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+parameterColumns+` FROM `+pq.QuoteIdentifier(model.ParametersTable(component))+
			whereSQL+` ORDER BY section, parameter_name`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list parameters: %w", err)
	}
	defer rows.Close()
	return scanParameters(rows)
}

func queryDeleteParameter(ctx context.Context, db executor, component, section, name string) error {
	res, err := db.ExecContext(ctx,
		`DELETE FROM `+pq.QuoteIdentifier(model.ParametersTable(component))+
			` WHERE section = $1 AND parameter_name = $2`,
		section, name,
	)
	if err != nil {
		return err
	}
	return requireRows(res)
}

func queryInsertMenuLink(ctx context.Context, db executor, l *model.MenuLink) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO menu_system_menus (
			title, url, icon, icon_svg_path, page_identifier,
			parent_id, section_heading_id, menu_order, is_active, menu_type, is_section_heading
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		l.Title,
		l.URL,
		nullString(l.Icon),
		nullString(l.IconSVGPath),
		l.PageIdentifier,
		nullInt64Ptr(l.ParentID),
		nullInt64Ptr(l.SectionHeadingID),
		l.MenuOrder,
		l.IsActive,
		l.MenuType,
		l.IsSectionHeading,
	).Scan(&l.ID)
}

func queryListMenuLinks(ctx context.Context, db executor, prefix string) ([]*model.MenuLink, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+menuColumns+`
		FROM menu_system_menus
		WHERE page_identifier LIKE $1
		ORDER BY menu_order, id`,
		likePrefix(prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("list menu links: %w", err)
	}
	defer rows.Close()
	return scanMenuLinks(rows)
}

func queryDeleteMenuLinks(ctx context.Context, db executor, prefix string) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM menu_system_menus WHERE page_identifier LIKE $1`,
		likePrefix(prefix),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO component_events (component, topic, actor, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.Component, e.Topic, nullString(e.Actor), jsonbBytes(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

func queryListEvents(ctx context.Context, db executor, component string, limit int) ([]*model.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, topic, component, actor, payload, created_at
		FROM component_events
		WHERE component = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`,
		component, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// queryLockComponent takes a transaction-scoped advisory lock keyed by the
// component name. It blocks until any other holder's transaction ends.
func queryLockComponent(ctx context.Context, db executor, name string) error {
	_, err := db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "panelkit:"+name)
	if err != nil {
		return fmt.Errorf("lock component %s: %w", name, err)
	}
	return nil
}

// requireRows maps a zero-row update or delete to sql.ErrNoRows.
func requireRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
