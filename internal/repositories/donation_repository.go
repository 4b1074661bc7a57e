package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"mulchBack/internal/models"
)

type DonationRepository struct {
	DB *sql.DB
}

// CreateDonation inserts a donation record. The Stripe session id carries
// a unique index, so redelivered webhook events collapse onto the first
// insert: a duplicate-key failure is resolved by returning the existing
// row instead of an error.
func (r *DonationRepository) CreateDonation(ctx context.Context, d models.Donation) (models.Donation, error) {
	if d.Payment.StripeSessionID != "" {
		existing, err := r.GetDonationBySessionID(ctx, d.Payment.StripeSessionID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, models.ErrDonationNotFound) {
			return models.Donation{}, err
		}
	}

	d.ID = uuid.NewString()
	d.CreatedAt = time.Now()

	_, err := r.DB.ExecContext(ctx, `
        INSERT INTO donations
            (id, amount, donor_given_name, donor_surname, donor_email,
             paypal_order_id, paypal_payer_id, paypal_payment_source,
             stripe_session_id, stripe_payment_intent_id, stripe_customer_id,
             created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Amount, d.DonorGivenName, d.DonorSurname, d.DonorEmail,
		nullable(d.Payment.PayPalOrderID), nullable(d.Payment.PayPalPayerID), nullable(d.Payment.PayPalPaymentSource),
		nullable(d.Payment.StripeSessionID), nullable(d.Payment.StripePaymentIntentID), nullable(d.Payment.StripeCustomerID),
		d.CreatedAt,
	)
	if isDuplicateKeyError(err) && d.Payment.StripeSessionID != "" {
		// Lost the race with a concurrent delivery of the same event.
		return r.GetDonationBySessionID(ctx, d.Payment.StripeSessionID)
	}
	if err != nil {
		return models.Donation{}, fmt.Errorf("insert donation: %w", err)
	}
	return d, nil
}

func (r *DonationRepository) GetDonationBySessionID(ctx context.Context, sessionID string) (models.Donation, error) {
	return r.scanDonation(r.DB.QueryRowContext(ctx, `
        SELECT id, amount, donor_given_name, donor_surname, donor_email,
               paypal_order_id, paypal_payer_id, paypal_payment_source,
               stripe_session_id, stripe_payment_intent_id, stripe_customer_id,
               created_at
        FROM donations
        WHERE stripe_session_id = ?`, sessionID))
}

func (r *DonationRepository) ListDonations(ctx context.Context) ([]models.Donation, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT id, amount, donor_given_name, donor_surname, donor_email,
               paypal_order_id, paypal_payer_id, paypal_payment_source,
               stripe_session_id, stripe_payment_intent_id, stripe_customer_id,
               created_at
        FROM donations
        ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donations []models.Donation
	for rows.Next() {
		d, err := r.scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

func (r *DonationRepository) scanDonation(row rowScanner) (models.Donation, error) {
	var (
		d                                            models.Donation
		givenName, surname, email                    sql.NullString
		ppOrderID, ppPayerID, ppSource               sql.NullString
		stSessionID, stPaymentIntentID, stCustomerID sql.NullString
	)
	err := row.Scan(
		&d.ID, &d.Amount, &givenName, &surname, &email,
		&ppOrderID, &ppPayerID, &ppSource,
		&stSessionID, &stPaymentIntentID, &stCustomerID,
		&d.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return models.Donation{}, models.ErrDonationNotFound
	}
	if err != nil {
		return models.Donation{}, err
	}
	d.DonorGivenName = givenName.String
	d.DonorSurname = surname.String
	d.DonorEmail = email.String
	d.Payment = paymentRefFromColumns(
		ppOrderID, ppPayerID, ppSource,
		stSessionID, stPaymentIntentID, stCustomerID,
	)
	return d, nil
}

// isDuplicateKeyError reports a MySQL/MariaDB unique-constraint failure.
func isDuplicateKeyError(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
