package services

import (
	"context"

	"mulchBack/internal/models"
	"mulchBack/internal/repositories"
)

type ReportService struct {
	ReportRepo *repositories.ReportRepository
}

func (s *ReportService) YearReport(ctx context.Context, year int) (models.YearReport, error) {
	report := models.YearReport{Year: year}

	orderCount, settledCount, bags, revenue, err := s.ReportRepo.OrderSummary(ctx, year)
	if err != nil {
		return models.YearReport{}, err
	}
	report.OrderCount = orderCount
	report.SettledCount = settledCount
	report.BagsSold = bags
	report.OrderRevenue = revenue

	report.Neighborhoods, err = s.ReportRepo.NeighborhoodStats(ctx, year)
	if err != nil {
		return models.YearReport{}, err
	}

	report.DonationCount, report.DonationTotal, err = s.ReportRepo.DonationSummary(ctx, year)
	if err != nil {
		return models.YearReport{}, err
	}
	return report, nil
}
