package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mulchBack/internal/models"
)

type OrderRepository struct {
	DB *sql.DB
}

const orderColumns = `
        o.id, o.customer_id, o.quantity, o.price_per_unit, o.color, o.order_type,
        o.street_address, o.neighborhood, o.note, o.referral_source, o.referral_source_details,
        o.status, o.paypal_order_id, o.paypal_payer_id, o.paypal_payment_source,
        o.stripe_session_id, o.stripe_payment_intent_id, o.stripe_customer_id,
        o.created_at, o.updated_at,
        c.id, c.name, c.email, c.phone`

// CreateOrder inserts a PENDING order, reusing an existing customer only
// when name, email and phone all match exactly. Duplicate submissions
// create distinct orders on purpose.
func (r *OrderRepository) CreateOrder(ctx context.Context, order models.MulchOrder, identity models.CustomerIdentity) (models.MulchOrder, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.MulchOrder{}, err
	}
	defer tx.Rollback()

	var customerID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM customers WHERE name = ? AND email = ? AND phone = ?`,
		identity.Name, identity.Email, identity.Phone,
	).Scan(&customerID)
	if err == sql.ErrNoRows {
		customerID = uuid.NewString()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO customers (id, name, email, phone) VALUES (?, ?, ?, ?)`,
			customerID, identity.Name, identity.Email, identity.Phone,
		)
	}
	if err != nil {
		return models.MulchOrder{}, fmt.Errorf("resolve customer: %w", err)
	}

	order.ID = uuid.NewString()
	order.CustomerID = customerID
	order.Status = models.StatusPending
	order.CreatedAt = time.Now()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO mulch_orders
            (id, customer_id, quantity, price_per_unit, color, order_type,
             street_address, neighborhood, note, referral_source, referral_source_details,
             status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.CustomerID, order.Quantity, order.PricePerUnit, order.Color, order.OrderType,
		order.StreetAddress, order.Neighborhood, order.Note, order.ReferralSource, order.ReferralSourceDetails,
		order.Status, order.CreatedAt,
	)
	if err != nil {
		return models.MulchOrder{}, fmt.Errorf("insert order: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return models.MulchOrder{}, err
	}

	order.Customer = &models.Customer{
		ID:    customerID,
		Name:  identity.Name,
		Email: identity.Email,
		Phone: identity.Phone,
	}
	return order, nil
}

func (r *OrderRepository) GetOrderByID(ctx context.Context, id string) (models.MulchOrder, error) {
	query := `
        SELECT` + orderColumns + `
        FROM mulch_orders o
        JOIN customers c ON c.id = o.customer_id
        WHERE o.id = ?`
	return r.scanOrder(r.DB.QueryRowContext(ctx, query, id))
}

// GetOrderBySessionID looks an order up by the Stripe checkout session
// written at payment time. Used when a confirmation carries no internal id.
func (r *OrderRepository) GetOrderBySessionID(ctx context.Context, sessionID string) (models.MulchOrder, error) {
	query := `
        SELECT` + orderColumns + `
        FROM mulch_orders o
        JOIN customers c ON c.id = o.customer_id
        WHERE o.stripe_session_id = ?`
	return r.scanOrder(r.DB.QueryRowContext(ctx, query, sessionID))
}

// MarkOrderPaid applies the PENDING -> PAID transition and writes the
// provider reference in the same statement. The WHERE status = 'PENDING'
// clause makes the transition a compare-and-swap: when the webhook and the
// browser-return path race, exactly one update lands and the other sees
// zero rows affected. Payment fields are therefore written once and never
// rewritten by a late duplicate confirmation.
func (r *OrderRepository) MarkOrderPaid(ctx context.Context, id string, ref models.PaymentRef) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE mulch_orders
        SET status = ?, stripe_session_id = ?, stripe_payment_intent_id = ?, stripe_customer_id = ?, updated_at = ?
        WHERE id = ? AND status = ?`,
		models.StatusPaid, ref.StripeSessionID, ref.StripePaymentIntentID, ref.StripeCustomerID, time.Now(),
		id, models.StatusPending,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CancelOrder moves a PENDING order to CANCELLED. Same compare-and-swap
// shape as MarkOrderPaid so a cancel can never overwrite a paid record.
func (r *OrderRepository) CancelOrder(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE mulch_orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		models.StatusCancelled, time.Now(), id, models.StatusPending,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateOrderStatus is the admin-driven status write (FULFILLED, REFUNDED).
// Edge legality is checked by the caller; the WHERE clause still pins the
// row to the status the caller saw so concurrent admin edits cannot cross.
func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE mulch_orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, time.Now(), id, from,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *OrderRepository) ListOrdersForYear(ctx context.Context, year int) ([]models.MulchOrder, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	query := `
        SELECT` + orderColumns + `
        FROM mulch_orders o
        JOIN customers c ON c.id = o.customer_id
        WHERE o.created_at >= ? AND o.created_at < ?
        ORDER BY o.created_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.MulchOrder
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *OrderRepository) scanOrder(row rowScanner) (models.MulchOrder, error) {
	var (
		order                                        models.MulchOrder
		customer                                     models.Customer
		note, refSource, refDetails                  sql.NullString
		ppOrderID, ppPayerID, ppSource               sql.NullString
		stSessionID, stPaymentIntentID, stCustomerID sql.NullString
		updatedAt                                    sql.NullTime
	)
	err := row.Scan(
		&order.ID, &order.CustomerID, &order.Quantity, &order.PricePerUnit, &order.Color, &order.OrderType,
		&order.StreetAddress, &order.Neighborhood, &note, &refSource, &refDetails,
		&order.Status, &ppOrderID, &ppPayerID, &ppSource,
		&stSessionID, &stPaymentIntentID, &stCustomerID,
		&order.CreatedAt, &updatedAt,
		&customer.ID, &customer.Name, &customer.Email, &customer.Phone,
	)
	if err == sql.ErrNoRows {
		return models.MulchOrder{}, models.ErrOrderNotFound
	}
	if err != nil {
		return models.MulchOrder{}, err
	}

	order.Note = note.String
	order.ReferralSource = refSource.String
	order.ReferralSourceDetails = refDetails.String
	if updatedAt.Valid {
		order.UpdatedAt = &updatedAt.Time
	}
	order.Payment = paymentRefFromColumns(
		ppOrderID, ppPayerID, ppSource,
		stSessionID, stPaymentIntentID, stCustomerID,
	)
	order.Customer = &customer
	return order, nil
}

// paymentRefFromColumns rebuilds the tagged provider reference from the
// two nullable column sets. At most one set is populated per row.
func paymentRefFromColumns(ppOrderID, ppPayerID, ppSource, stSessionID, stPaymentIntentID, stCustomerID sql.NullString) models.PaymentRef {
	switch {
	case stSessionID.Valid && stSessionID.String != "":
		return models.NewStripeRef(stSessionID.String, stPaymentIntentID.String, stCustomerID.String)
	case ppOrderID.Valid && ppOrderID.String != "":
		return models.NewPayPalRef(ppOrderID.String, ppPayerID.String, ppSource.String)
	}
	return models.PaymentRef{}
}
