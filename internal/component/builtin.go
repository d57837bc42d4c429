package component

import (
	"github.com/alfredjeanlab/panelkit/internal/menu"
	"github.com/alfredjeanlab/panelkit/internal/migrate"
	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/schema"
)

func col(name, def string) schema.Column {
	return schema.Column{Name: name, Definition: def}
}

func fk(column, ref string, onDelete string) schema.ForeignKey {
	return schema.ForeignKey{Columns: []string{column}, RefTable: ref, RefColumns: []string{"id"}, OnDelete: onDelete}
}

func param(section, name, value, description string, vt model.ValueType) model.Parameter {
	return model.Parameter{Section: section, Name: name, Value: value, Description: description, ValueType: vt}
}

func rangedParam(section, name, value, description string, lo, hi float64) model.Parameter {
	p := param(section, name, value, description, model.ValueNumber)
	p.MinRange, p.MaxRange = &lo, &hi
	return p
}

// Widgets is a minimal demo component: two tables and a five-page menu.
func Widgets() *Definition {
	return &Definition{
		Name:        "widgets",
		Title:       "Widgets",
		Description: "Demo component with a small item catalog.",
		Tables: []schema.Table{
			{
				Name: "widgets_items",
				Columns: []schema.Column{
					col("id", "BIGSERIAL PRIMARY KEY"),
					col("name", "VARCHAR(255) NOT NULL"),
					col("color", "VARCHAR(32)"),
					col("created_at", "TIMESTAMPTZ NOT NULL DEFAULT NOW()"),
				},
			},
			{
				Name: "widgets_item_tags",
				Columns: []schema.Column{
					col("id", "BIGSERIAL PRIMARY KEY"),
					col("item_id", "BIGINT NOT NULL"),
					col("tag", "VARCHAR(64) NOT NULL"),
				},
				Unique:      [][]string{{"item_id", "tag"}},
				ForeignKeys: []schema.ForeignKey{fk("item_id", "widgets_items", "cascade")},
			},
		},
		Menu: menu.Menu{
			Heading: "Widgets",
			Icon:    "fa-cubes",
			Pages: []menu.Page{
				{Slug: "dashboard", Title: "Dashboard", Icon: "fa-gauge"},
				{Slug: "items", Title: "Items", Icon: "fa-list"},
				{Slug: "item_create", Title: "New Item", Parent: "items"},
				{Slug: "reports", Title: "Reports", Icon: "fa-chart-bar"},
				{Slug: "settings", Title: "Settings", Icon: "fa-gear"},
			},
		},
	}
}

// Commerce covers customers, orders, order lines and coupons.
func Commerce() *Definition {
	return &Definition{
		Name:        "commerce",
		Title:       "Commerce",
		Description: "Orders, customers and coupons.",
		Tables: []schema.Table{
			{
				Name: "commerce_order_items",
				Columns: []schema.Column{
					col("id", "BIGSERIAL PRIMARY KEY"),
					col("order_id", "BIGINT NOT NULL"),
					col("sku", "VARCHAR(64) NOT NULL"),
					col("quantity", "INTEGER NOT NULL DEFAULT 1"),
					col("unit_price", "NUMERIC(12,2) NOT NULL"),
				},
				ForeignKeys: []schema.ForeignKey{fk("order_id", "commerce_orders", "cascade")},
			},
			{
				Name: "commerce_orders",
				Columns: []schema.Column{
					col("id", "BIGSERIAL PRIMARY KEY"),
					col("customer_id", "BIGINT"),
					col("status", "VARCHAR(32) NOT NULL DEFAULT 'pending'"),
					col("total", "NUMERIC(12,2) NOT NULL DEFAULT 0"),
					col("currency", "CHAR(3) NOT NULL DEFAULT 'USD'"),
					col("coupon_id", "BIGINT"),
					col("created_at", "TIMESTAMPTZ NOT NULL DEFAULT NOW()"),
				},
				ForeignKeys: []schema.ForeignKey{
					fk("customer_id", "commerce_customers", "set null"),
					fk("coupon_id", "commerce_coupons", "set null"),
				},
			},
			{
				Name: "commerce_customers",
				Columns: []schema.Column{
					col("id", "BIGSERIAL PRIMARY KEY"),
					col("email", "VARCHAR(255) NOT NULL UNIQUE"),
					col("name", "VARCHAR(255)"),
				},
			},
			{
				Name: "commerce_coupons",
				Columns: []schema.Column{
					col("id", "BIGSERIAL PRIMARY KEY"),
					col("code", "VARCHAR(64) NOT NULL UNIQUE"),
					col("percent_off", "NUMERIC(5,2)"),
					col("expires_at", "TIMESTAMPTZ"),
				},
			},
		},
		Menu: menu.Menu{
			Heading: "Commerce",
			Icon:    "fa-cart-shopping",
			Pages: []menu.Page{
				{Slug: "dashboard", Title: "Dashboard"},
				{Slug: "orders", Title: "Orders"},
				{Slug: "order_view", Title: "Order Detail", Parent: "orders"},
				{Slug: "customers", Title: "Customers"},
				{Slug: "coupons", Title: "Coupons"},
				{Slug: "settings", Title: "Settings"},
			},
		},
		Parameters: []model.Parameter{
			param("Checkout", "guest_checkout", "yes", "Allow orders without an account", model.ValueBoolean),
			param("Checkout", "currency", "USD", "ISO 4217 store currency", model.ValueText),
			rangedParam("Tax", "tax_rate", "0", "Default tax rate in percent", 0, 100),
		},
		Migrations: []migrate.Migration{
			{
				Version:     "1.1.0",
				Description: "multi-currency orders",
				Up:          migrate.AddColumn("commerce_orders", "currency", "CHAR(3) NOT NULL DEFAULT 'USD'"),
			},
			{
				Version:     "1.2.0",
				Description: "coupons",
				Up: migrate.Steps(
					migrate.Exec(`CREATE TABLE IF NOT EXISTS "commerce_coupons" (
	"id" BIGSERIAL PRIMARY KEY,
	"code" VARCHAR(64) NOT NULL UNIQUE,
	"percent_off" NUMERIC(5,2),
	"expires_at" TIMESTAMPTZ
)`),
					migrate.AddColumn("commerce_orders", "coupon_id", "BIGINT REFERENCES commerce_coupons (id) ON DELETE SET NULL"),
				),
			},
		},
	}
}

// Inventory tracks stock per location.
func Inventory() *Definition {
	return &Definition{
		Name:        "inventory",
		Title:       "Inventory",
		Description: "Stock levels and movements.",
		Tables: []schema.Table{
			{
				Name: "inventory_locations",
				Columns: []schema.Column{
					col("id", "BIGSERIAL PRIMARY KEY"),
					col("name", "VARCHAR(128) NOT NULL UNIQUE"),
				},
			},
			{
				Name: "inventory_items",
				Columns: []schema.Column{
					col("id", "BIGSERIAL PRIMARY KEY"),
					col("sku", "VARCHAR(64) NOT NULL UNIQUE"),
					col("name", "VARCHAR(255) NOT NULL"),
					col("quantity", "INTEGER NOT NULL DEFAULT 0"),
					col("reorder_level", "INTEGER NOT NULL DEFAULT 0"),
				},
			},
			{
				Name: "inventory_movements",
				Columns: []schema.Column{
					col("id", "BIGSERIAL PRIMARY KEY"),
					col("item_id", "BIGINT NOT NULL"),
					col("location_id", "BIGINT NOT NULL"),
					col("delta", "INTEGER NOT NULL"),
					col("reason", "VARCHAR(64)"),
					col("created_at", "TIMESTAMPTZ NOT NULL DEFAULT NOW()"),
				},
				ForeignKeys: []schema.ForeignKey{
					fk("item_id", "inventory_items", "cascade"),
					fk("location_id", "inventory_locations", "restrict"),
				},
			},
		},
		Menu: menu.Menu{
			Heading: "Inventory",
			Icon:    "fa-boxes-stacked",
			Pages: []menu.Page{
				{Slug: "items", Title: "Items"},
				{Slug: "movements", Title: "Movements"},
				{Slug: "locations", Title: "Locations"},
			},
		},
		Parameters: []model.Parameter{
			param("Stock", "low_stock_alerts_enabled", "yes", "Email when an item falls below its reorder level", model.ValueBoolean),
			rangedParam("Stock", "default_reorder_level", "5", "Reorder level for new items", 0, 10000),
		},
		Migrations: []migrate.Migration{
			{
				Version:     "1.1.0",
				Description: "reorder levels",
				Up:          migrate.AddColumn("inventory_items", "reorder_level", "INTEGER NOT NULL DEFAULT 0"),
			},
		},
	}
}

// SMS is the SMS gateway with its outbound queue.
func SMS() *Definition {
	return &Definition{
		Name:        "sms",
		Title:       "SMS Gateway",
		Description: "Templates and an outbound message queue.",
		Tables: []schema.Table{
			{
				Name: "sms_templates",
				Columns: []schema.Column{
					col("id", "BIGSERIAL PRIMARY KEY"),
					col("name", "VARCHAR(128) NOT NULL UNIQUE"),
					col("body", "TEXT NOT NULL"),
				},
			},
			{
				Name: "sms_queue",
				Columns: []schema.Column{
					col("id", "BIGSERIAL PRIMARY KEY"),
					col("template_id", "BIGINT"),
					col("recipient", "VARCHAR(32) NOT NULL"),
					col("body", "TEXT NOT NULL"),
					col("status", "VARCHAR(16) NOT NULL DEFAULT 'pending'"),
					col("attempts", "INTEGER NOT NULL DEFAULT 0"),
					col("created_at", "TIMESTAMPTZ NOT NULL DEFAULT NOW()"),
				},
				ForeignKeys: []schema.ForeignKey{fk("template_id", "sms_templates", "set null")},
			},
		},
		Menu: menu.Menu{
			Heading: "SMS",
			Icon:    "fa-comment-sms",
			Pages: []menu.Page{
				{Slug: "queue", Title: "Queue"},
				{Slug: "templates", Title: "Templates"},
				{Slug: "settings", Title: "Settings"},
			},
		},
		Parameters: []model.Parameter{
			param("Gateway", "sms_enabled", "no", "Send queued messages", model.ValueBoolean),
			param("Gateway", "provider", "twilio", "Gateway provider", model.ValueText),
			rangedParam("Queue", "retry_limit", "3", "Attempts before a message is failed", 0, 10),
		},
	}
}
