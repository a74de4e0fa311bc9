package summary

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"storefront/apperr"
	"storefront/models"
)

const cacheKey = "summary:report"

type MonthlySales struct {
	Month      string  `json:"_id" bson:"_id"`
	TotalSales float64 `json:"totalSales" bson:"totalSales"`
}

type Report struct {
	ProductCount int64          `json:"productCount"`
	OrderCount   int64          `json:"orderCount"`
	UserCount    int64          `json:"userCount"`
	OrdersPrice  float64        `json:"ordersPrice"`
	SalesData    []MonthlySales `json:"salesData"`
}

// Source runs the individual queries a Report is built from.
type Source interface {
	CountProducts(ctx context.Context) (int64, error)
	CountOrders(ctx context.Context) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
	OrdersTotal(ctx context.Context) (float64, error)
	MonthlySales(ctx context.Context) ([]MonthlySales, error)
}

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Aggregator struct {
	src      Source
	cache    Cache
	timeout  time.Duration
	cacheTTL time.Duration
}

func NewAggregator(src Source, cache Cache, timeout, cacheTTL time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Aggregator{src: src, cache: cache, timeout: timeout, cacheTTL: cacheTTL}
}

// Report returns the cached report when fresh, otherwise recomputes it.
func (a *Aggregator) Report(ctx context.Context) (*Report, error) {
	if a.cache != nil && a.cacheTTL > 0 {
		var cached Report
		found, err := a.cache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			slog.Warn("summary cache read failed", "err", err)
		} else if found {
			return &cached, nil
		}
	}

	rep, err := a.compute(ctx)
	if err != nil {
		slog.Error("summary aggregation failed", "err", err)
		return nil, apperr.Wrap(apperr.Aggregation, "Unable to get summary", err)
	}

	if a.cache != nil && a.cacheTTL > 0 {
		if err := a.cache.SetJSON(ctx, cacheKey, rep, a.cacheTTL); err != nil {
			slog.Warn("summary cache write failed", "err", err)
		}
	}
	return rep, nil
}

func (a *Aggregator) compute(ctx context.Context) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		rep Report
		err error
	)
	if rep.ProductCount, err = a.src.CountProducts(ctx); err != nil {
		return nil, err
	}
	if rep.OrderCount, err = a.src.CountOrders(ctx); err != nil {
		return nil, err
	}
	if rep.UserCount, err = a.src.CountUsers(ctx); err != nil {
		return nil, err
	}
	if rep.OrdersPrice, err = a.src.OrdersTotal(ctx); err != nil {
		return nil, err
	}
	if rep.SalesData, err = a.src.MonthlySales(ctx); err != nil {
		return nil, err
	}
	if rep.SalesData == nil {
		rep.SalesData = []MonthlySales{}
	}
	sort.Slice(rep.SalesData, func(i, j int) bool {
		return rep.SalesData[i].Month < rep.SalesData[j].Month
	})
	return &rep, nil
}

// Emit drops the cached report whenever an order changes, so totals are
// never staler than the next request.
func (a *Aggregator) Emit(ctx context.Context, event models.OrderEvent) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Delete(context.WithoutCancel(ctx), cacheKey); err != nil {
		slog.Warn("summary cache invalidation failed", "event", event.Type, "err", err)
	}
}
