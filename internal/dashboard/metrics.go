// Package dashboard folds order/booking collections into the role-specific
// summary metrics the dashboards render. Aggregation is a pure fold: no
// state, no I/O, identical output for any permutation of the input.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/artisanhubapp/artisanhub/internal/models"
)

// CountStat is a current-window count plus its trend delta against the
// prior window.
type CountStat struct {
	Value int `json:"value"`
	Delta int `json:"delta"`
}

// MoneyStat is the decimal counterpart of CountStat.
type MoneyStat struct {
	Value decimal.Decimal `json:"value"`
	Delta decimal.Decimal `json:"delta"`
}

// RoleMetrics is the flat value object handed to the dashboard consumer.
// The seller fields are nil for roles that don't receive them; no further
// derivation happens outside this package.
type RoleMetrics struct {
	Role            models.Role `json:"role"`
	TotalOrders     CountStat   `json:"total_orders"`
	CompletedOrders CountStat   `json:"completed_orders"`
	PendingOrders   CountStat   `json:"pending_orders"`
	CancelledOrders CountStat   `json:"cancelled_orders"`

	TotalCustomers    *CountStat `json:"total_customers,omitempty"`
	TotalEarnings     *MoneyStat `json:"total_earnings,omitempty"`
	AverageOrderValue *MoneyStat `json:"average_order_value,omitempty"`

	CustomOrdersReceived  *CountStat `json:"custom_orders_received,omitempty"`
	CustomOrdersCompleted *CountStat `json:"custom_orders_completed,omitempty"`
}

// Window selects the aggregation period by record creation time. The prior
// window for trend deltas is the equal-length period immediately before
// Start. A zero Window aggregates everything with zero deltas.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) zero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

func (w Window) contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func (w Window) prior() Window {
	length := w.End.Sub(w.Start)
	return Window{Start: w.Start.Add(-length), End: w.Start}
}

type fold struct {
	total     int
	completed int
	pending   int
	cancelled int
	customers map[string]struct{}
	earnings  decimal.Decimal
	customRcv int
	customCmp int
}

func newFold() *fold {
	return &fold{customers: make(map[string]struct{}), earnings: decimal.Zero}
}

func (f *fold) addOrder(o *models.Order) {
	f.total++
	switch o.Status {
	case models.OrderStatusDelivered:
		f.completed++
	case models.OrderStatusPending:
		f.pending++
	case models.OrderStatusCancelled:
		f.cancelled++
	}
	f.customers[o.BuyerID.String()] = struct{}{}
	if o.Status != models.OrderStatusCancelled {
		f.earnings = f.earnings.Add(o.Total)
	}
	if o.IsCustom() {
		f.customRcv++
		if o.Status == models.OrderStatusDelivered {
			f.customCmp++
		}
	}
}

func (f *fold) addBooking(b *models.Booking) {
	f.total++
	switch b.Status {
	case models.BookingStatusCompleted:
		f.completed++
	case models.BookingStatusPending:
		f.pending++
	case models.BookingStatusCancelled:
		f.cancelled++
	}
	f.customers[b.CustomerID.String()] = struct{}{}
	if b.Status != models.BookingStatusCancelled {
		f.earnings = f.earnings.Add(b.Price)
	}
}

// average divides earnings by the full record count. Division by zero
// yields zero, never an error or NaN.
func average(earnings decimal.Decimal, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return earnings.Div(decimal.NewFromInt(int64(total)))
}

func sellerRole(role models.Role) bool {
	return role == models.RoleVendor || role == models.RoleArtisan
}

func buildMetrics(role models.Role, current, prior *fold) RoleMetrics {
	// No prior-window data means no trend to report. Every delta stays
	// zero rather than mirroring the current value.
	trend := prior.total > 0
	count := func(cur, pri int) CountStat {
		if !trend {
			return CountStat{Value: cur}
		}
		return CountStat{Value: cur, Delta: cur - pri}
	}

	m := RoleMetrics{
		Role:            role,
		TotalOrders:     count(current.total, prior.total),
		CompletedOrders: count(current.completed, prior.completed),
		PendingOrders:   count(current.pending, prior.pending),
		CancelledOrders: count(current.cancelled, prior.cancelled),
	}
	if !sellerRole(role) {
		return m
	}

	customers := count(len(current.customers), len(prior.customers))
	earnings := MoneyStat{Value: current.earnings, Delta: decimal.Zero}
	avg := average(current.earnings, current.total)
	avgStat := MoneyStat{Value: avg, Delta: decimal.Zero}
	if trend {
		earnings.Delta = current.earnings.Sub(prior.earnings)
		avgStat.Delta = avg.Sub(average(prior.earnings, prior.total))
	}
	m.TotalCustomers = &customers
	m.TotalEarnings = &earnings
	m.AverageOrderValue = &avgStat

	if role == models.RoleArtisan {
		rcv := count(current.customRcv, prior.customRcv)
		cmp := count(current.customCmp, prior.customCmp)
		m.CustomOrdersReceived = &rcv
		m.CustomOrdersCompleted = &cmp
	}
	return m
}

// AggregateAll folds orders and bookings into RoleMetrics for one role in a
// single pass, so a customer who appears in both collections is still
// counted once. Idempotent and order-independent.
func AggregateAll(orders []*models.Order, bookings []*models.Booking, role models.Role, window Window) RoleMetrics {
	current, prior := newFold(), newFold()
	priorWindow := window.prior()
	for _, o := range orders {
		switch {
		case window.zero() || window.contains(o.CreatedAt):
			current.addOrder(o)
		case !window.zero() && priorWindow.contains(o.CreatedAt):
			prior.addOrder(o)
		}
	}
	for _, b := range bookings {
		switch {
		case window.zero() || window.contains(b.CreatedAt):
			current.addBooking(b)
		case !window.zero() && priorWindow.contains(b.CreatedAt):
			prior.addBooking(b)
		}
	}
	return buildMetrics(role, current, prior)
}

// AggregateOrders folds a collection of orders into RoleMetrics for one
// role.
func AggregateOrders(orders []*models.Order, role models.Role, window Window) RoleMetrics {
	return AggregateAll(orders, nil, role, window)
}

// AggregateBookings is AggregateOrders over the booking collection; the
// base counters map completed bookings onto the completed slot.
func AggregateBookings(bookings []*models.Booking, role models.Role, window Window) RoleMetrics {
	return AggregateAll(nil, bookings, role, window)
}

// Merge combines metrics computed over independent shards of the same
// role's records by summation, recomputing the average from the merged
// sums. Distinct-customer counts merge additively, so shards must already
// be partitioned by customer-disjoint key (e.g. per seller) for the count
// to stay exact.
func Merge(a, b RoleMetrics) RoleMetrics {
	out := RoleMetrics{
		Role:            a.Role,
		TotalOrders:     addCount(a.TotalOrders, b.TotalOrders),
		CompletedOrders: addCount(a.CompletedOrders, b.CompletedOrders),
		PendingOrders:   addCount(a.PendingOrders, b.PendingOrders),
		CancelledOrders: addCount(a.CancelledOrders, b.CancelledOrders),
	}
	if a.TotalCustomers != nil && b.TotalCustomers != nil {
		merged := addCount(*a.TotalCustomers, *b.TotalCustomers)
		out.TotalCustomers = &merged
	}
	if a.TotalEarnings != nil && b.TotalEarnings != nil {
		earnings := MoneyStat{
			Value: a.TotalEarnings.Value.Add(b.TotalEarnings.Value),
			Delta: a.TotalEarnings.Delta.Add(b.TotalEarnings.Delta),
		}
		out.TotalEarnings = &earnings

		avg := average(earnings.Value, out.TotalOrders.Value)
		priorEarnings := earnings.Value.Sub(earnings.Delta)
		priorTotal := out.TotalOrders.Value - out.TotalOrders.Delta
		out.AverageOrderValue = &MoneyStat{Value: avg, Delta: avg.Sub(average(priorEarnings, priorTotal))}
	}
	if a.CustomOrdersReceived != nil && b.CustomOrdersReceived != nil {
		rcv := addCount(*a.CustomOrdersReceived, *b.CustomOrdersReceived)
		cmp := addCount(*a.CustomOrdersCompleted, *b.CustomOrdersCompleted)
		out.CustomOrdersReceived = &rcv
		out.CustomOrdersCompleted = &cmp
	}
	return out
}

func addCount(a, b CountStat) CountStat {
	return CountStat{Value: a.Value + b.Value, Delta: a.Delta + b.Delta}
}
