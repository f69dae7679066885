package services

import (
	"context"
	"errors"
	"log"
	"sort"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/repository"
)

const uncategorized = "Uncategorized"

type AdminService struct {
	store *repository.Store
}

func NewAdminService(store *repository.Store) *AdminService {
	return &AdminService{store: store}
}

// DashboardStats scans every order. Each distinct product is looked up once
// per call; lines whose product is gone count as uncategorized.
func (s *AdminService) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	var err error

	if stats.TotalUsers, err = s.store.Users.Count(ctx); err != nil {
		return stats, persistence("count users", err)
	}
	if stats.TotalOrders, err = s.store.Orders.Count(ctx); err != nil {
		return stats, persistence("count orders", err)
	}
	if stats.TotalProducts, err = s.store.Products.Count(ctx); err != nil {
		return stats, persistence("count products", err)
	}

	orders, err := s.store.Orders.All(ctx)
	if err != nil {
		return stats, persistence("scan orders", err)
	}

	ids := make(map[primitive.ObjectID]struct{})
	for _, o := range orders {
		for _, item := range o.Items {
			ids[item.ProductID] = struct{}{}
		}
	}
	products, err := s.store.Products.GetMany(ctx, objectIDs(ids))
	if err != nil {
		return stats, persistence("load products", err)
	}

	revenue := decimal.Zero
	monthly := make(map[string]decimal.Decimal)
	stats.SalesByCategory = make(map[string]int)
	for _, o := range orders {
		total := decimal.NewFromFloat(o.Total)
		revenue = revenue.Add(total)
		month := o.CreatedAt.UTC().Format("2006-01")
		monthly[month] = monthly[month].Add(total)

		for _, item := range o.Items {
			category := uncategorized
			if p, ok := products[item.ProductID]; ok && p.Category != "" {
				category = p.Category
			}
			stats.SalesByCategory[category] += item.Quantity
		}
	}

	stats.TotalRevenue = revenue.Round(2).InexactFloat64()
	stats.MonthlyRevenue = make(map[string]float64, len(monthly))
	for k, v := range monthly {
		stats.MonthlyRevenue[k] = v.Round(2).InexactFloat64()
	}
	return stats, nil
}

// DailyRevenue sums order totals per UTC calendar day, oldest first.
func (s *AdminService) DailyRevenue(ctx context.Context) ([]models.DailyRevenue, error) {
	orders, err := s.store.Orders.All(ctx)
	if err != nil {
		return nil, persistence("scan orders", err)
	}

	byDay := make(map[string]decimal.Decimal)
	for _, o := range orders {
		day := o.CreatedAt.UTC().Format("2006-01-02")
		byDay[day] = byDay[day].Add(decimal.NewFromFloat(o.Total))
	}

	out := make([]models.DailyRevenue, 0, len(byDay))
	for day, total := range byDay {
		out = append(out, models.DailyRevenue{Date: day, Total: total.Round(2).InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.Users.List(ctx)
	if err != nil {
		return nil, persistence("list users", err)
	}
	return users, nil
}

func (s *AdminService) DeleteUser(ctx context.Context, requester models.User, id string) error {
	oid, err := parseID("userId", id)
	if err != nil {
		return err
	}
	if oid == requester.ID {
		return invalid("userId", "admins cannot delete their own account")
	}
	if err := s.store.Users.Delete(ctx, oid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("user", id)
		}
		return persistence("delete user", err)
	}
	log.Println("[ADMIN] [INFO] user deleted:", id)
	return nil
}
