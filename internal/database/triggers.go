package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Database triggers keep orders.total_amount and
// order_details.line_total in sync with the order_details rows.
// Application code never writes either column; after changing detail
// rows inside a transaction it reloads the order to observe the
// recomputed values. Without these triggers the totals silently read
// stale, so installing them is part of Migrate.

var sqliteOrderTotalTriggers = []string{
	`CREATE TRIGGER IF NOT EXISTS order_details_totals_after_insert
	AFTER INSERT ON order_details
	BEGIN
		UPDATE order_details
		SET line_total = quantity * unit_price
		WHERE id = NEW.id;
		UPDATE orders
		SET total_amount = (
			SELECT COALESCE(SUM(quantity * unit_price), 0)
			FROM order_details
			WHERE order_id = NEW.order_id
		)
		WHERE id = NEW.order_id;
	END;`,
	`CREATE TRIGGER IF NOT EXISTS order_details_totals_after_update
	AFTER UPDATE OF quantity, unit_price ON order_details
	BEGIN
		UPDATE order_details
		SET line_total = quantity * unit_price
		WHERE id = NEW.id;
		UPDATE orders
		SET total_amount = (
			SELECT COALESCE(SUM(quantity * unit_price), 0)
			FROM order_details
			WHERE order_id = NEW.order_id
		)
		WHERE id = NEW.order_id;
	END;`,
	`CREATE TRIGGER IF NOT EXISTS order_details_totals_after_delete
	AFTER DELETE ON order_details
	BEGIN
		UPDATE orders
		SET total_amount = (
			SELECT COALESCE(SUM(quantity * unit_price), 0)
			FROM order_details
			WHERE order_id = OLD.order_id
		)
		WHERE id = OLD.order_id;
	END;`,
}

var postgresOrderTotalTriggers = []string{
	`CREATE OR REPLACE FUNCTION order_details_apply_line_total() RETURNS trigger AS $$
	BEGIN
		NEW.line_total := NEW.quantity * NEW.unit_price;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`CREATE OR REPLACE FUNCTION orders_recompute_total() RETURNS trigger AS $$
	DECLARE
		target_order_id varchar;
	BEGIN
		IF TG_OP = 'DELETE' THEN
			target_order_id := OLD.order_id;
		ELSE
			target_order_id := NEW.order_id;
		END IF;
		UPDATE orders
		SET total_amount = (
			SELECT COALESCE(SUM(quantity * unit_price), 0)
			FROM order_details
			WHERE order_id = target_order_id
		)
		WHERE id = target_order_id;
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql;`,
	`DROP TRIGGER IF EXISTS order_details_line_total ON order_details;`,
	`CREATE TRIGGER order_details_line_total
	BEFORE INSERT OR UPDATE ON order_details
	FOR EACH ROW EXECUTE FUNCTION order_details_apply_line_total();`,
	`DROP TRIGGER IF EXISTS order_details_order_total ON order_details;`,
	`CREATE TRIGGER order_details_order_total
	AFTER INSERT OR UPDATE OR DELETE ON order_details
	FOR EACH ROW EXECUTE FUNCTION orders_recompute_total();`,
}

// InstallOrderTotalTriggers installs the derived-total triggers for the
// connected database's dialect.
func InstallOrderTotalTriggers(db *gorm.DB) error {
	var stmts []string
	switch name := db.Dialector.Name(); name {
	case "sqlite":
		stmts = sqliteOrderTotalTriggers
	case "postgres":
		stmts = postgresOrderTotalTriggers
	default:
		return fmt.Errorf("no order total triggers defined for driver %q", name)
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to install order total trigger: %w", err)
		}
	}
	return nil
}
