package repositories

import (
	"context"
	"database/sql"
	"time"

	"mulchBack/internal/models"
)

// ReportRepository is read-only aggregation over orders and donations for
// the admin screens. Revenue counts settled records only.
type ReportRepository struct {
	DB *sql.DB
}

func yearRange(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}

func (r *ReportRepository) OrderSummary(ctx context.Context, year int) (orderCount, settledCount, bags int, revenue int64, err error) {
	from, to := yearRange(year)
	err = r.DB.QueryRowContext(ctx, `
        SELECT COUNT(*),
               COALESCE(SUM(CASE WHEN status IN (?, ?) THEN 1 ELSE 0 END), 0),
               COALESCE(SUM(CASE WHEN status IN (?, ?) THEN quantity ELSE 0 END), 0),
               COALESCE(SUM(CASE WHEN status IN (?, ?) THEN quantity * price_per_unit ELSE 0 END), 0)
        FROM mulch_orders
        WHERE created_at >= ? AND created_at < ?`,
		models.StatusPaid, models.StatusFulfilled,
		models.StatusPaid, models.StatusFulfilled,
		models.StatusPaid, models.StatusFulfilled,
		from, to,
	).Scan(&orderCount, &settledCount, &bags, &revenue)
	return orderCount, settledCount, bags, revenue, err
}

func (r *ReportRepository) NeighborhoodStats(ctx context.Context, year int) ([]models.NeighborhoodStat, error) {
	from, to := yearRange(year)
	rows, err := r.DB.QueryContext(ctx, `
        SELECT neighborhood,
               COUNT(*),
               COALESCE(SUM(quantity), 0),
               COALESCE(SUM(quantity * price_per_unit), 0)
        FROM mulch_orders
        WHERE created_at >= ? AND created_at < ? AND status IN (?, ?)
        GROUP BY neighborhood
        ORDER BY neighborhood`,
		from, to, models.StatusPaid, models.StatusFulfilled,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.NeighborhoodStat
	for rows.Next() {
		var s models.NeighborhoodStat
		if err := rows.Scan(&s.Neighborhood, &s.Orders, &s.Bags, &s.Revenue); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *ReportRepository) DonationSummary(ctx context.Context, year int) (count int, total int64, err error) {
	from, to := yearRange(year)
	err = r.DB.QueryRowContext(ctx, `
        SELECT COUNT(*), COALESCE(SUM(amount), 0)
        FROM donations
        WHERE created_at >= ? AND created_at < ?`,
		from, to,
	).Scan(&count, &total)
	return count, total, err
}
