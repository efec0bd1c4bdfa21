package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/crmchat/internal/core"
)

type OrdersRepo struct {
	db *sql.DB
}

func NewOrdersRepo(db *sql.DB) *OrdersRepo {
	return &OrdersRepo{db: db}
}

const orderColumns = `order_id, contact_id, status, order_date, order_total, tax, tips,
	shipping_cost, invoice_link, invoice_description, shipping_address_raw,
	shipping_street1, shipping_street2, shipping_city, shipping_state, shipping_zip,
	tracking_number, tracking_link, created_at`

// UpsertOrder is idempotent: the order_id is the natural key, so
// concurrent duplicate ingestion of the same order converges.
func (r *OrdersRepo) UpsertOrder(ctx context.Context, o core.Order) error {
	if o.OrderID == "" {
		return errors.New("missing order id")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (order_id, contact_id, status, order_date, order_total, tax, tips,
			shipping_cost, invoice_link, invoice_description, shipping_address_raw,
			shipping_street1, shipping_street2, shipping_city, shipping_state, shipping_zip,
			tracking_number, tracking_link)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_id) DO UPDATE SET
			contact_id           = excluded.contact_id,
			status               = excluded.status,
			order_date           = excluded.order_date,
			order_total          = excluded.order_total,
			tax                  = excluded.tax,
			tips                 = excluded.tips,
			shipping_cost        = excluded.shipping_cost,
			invoice_link         = excluded.invoice_link,
			invoice_description  = excluded.invoice_description,
			shipping_address_raw = excluded.shipping_address_raw,
			shipping_street1     = excluded.shipping_street1,
			shipping_street2     = excluded.shipping_street2,
			shipping_city        = excluded.shipping_city,
			shipping_state       = excluded.shipping_state,
			shipping_zip         = excluded.shipping_zip,
			tracking_number      = excluded.tracking_number,
			tracking_link        = excluded.tracking_link`,
		o.OrderID, o.ContactID, o.Status, o.OrderDate, o.OrderTotal, o.Tax, o.Tips,
		o.ShippingCost, o.InvoiceLink, o.InvoiceDescription, o.ShippingAddressRaw,
		o.ShippingStreet1, o.ShippingStreet2, o.ShippingCity, o.ShippingState, o.ShippingZip,
		o.TrackingNumber, o.TrackingLink)
	if err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}
	return nil
}

func (r *OrdersRepo) LatestOrder(ctx context.Context, contactID string) (core.Order, error) {
	orders, err := r.RecentOrders(ctx, contactID, 1)
	if err != nil {
		return core.Order{}, err
	}
	if len(orders) == 0 {
		return core.Order{}, core.ErrNotFound
	}
	return orders[0], nil
}

func (r *OrdersRepo) RecentOrders(ctx context.Context, contactID string, limit int) ([]core.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE contact_id = ?
		ORDER BY order_date DESC, created_at DESC
		LIMIT ?`, contactID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *OrdersRepo) RecentOrdersSince(ctx context.Context, contactID string, cutoff time.Time, limit int) ([]core.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE contact_id = ? AND order_date >= ?
		ORDER BY order_date DESC, created_at DESC
		LIMIT ?`, contactID, cutoff.UTC().Format("2006-01-02"), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]core.Order, error) {
	var orders []core.Order
	for rows.Next() {
		var o core.Order
		var status, orderDate, invoiceLink, invoiceDesc, addrRaw sql.NullString
		var st1, st2, city, state, zip, trackNum, trackLink, createdAt sql.NullString
		var total, tax, tips, shipping sql.NullFloat64

		if err := rows.Scan(&o.OrderID, &o.ContactID, &status, &orderDate, &total, &tax, &tips,
			&shipping, &invoiceLink, &invoiceDesc, &addrRaw,
			&st1, &st2, &city, &state, &zip,
			&trackNum, &trackLink, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		o.Status = status.String
		o.OrderDate = orderDate.String
		o.OrderTotal = total.Float64
		o.Tax = tax.Float64
		o.Tips = tips.Float64
		o.ShippingCost = shipping.Float64
		o.InvoiceLink = invoiceLink.String
		o.InvoiceDescription = invoiceDesc.String
		o.ShippingAddressRaw = addrRaw.String
		o.ShippingStreet1 = st1.String
		o.ShippingStreet2 = st2.String
		o.ShippingCity = city.String
		o.ShippingState = state.String
		o.ShippingZip = zip.String
		o.TrackingNumber = trackNum.String
		o.TrackingLink = trackLink.String
		o.CreatedAt = parseTimeOr(createdAt, time.Time{})

		orders = append(orders, o)
	}
	return orders, rows.Err()
}
