// internal/chaos/experiments.go
package chaos

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bookcourier/internal/apperr"
)

// Experiments returns the predefined order-lifecycle experiments against lab.
func Experiments(lab *Lab, duration time.Duration) []Experiment {
	return []Experiment{
		ConcurrentCancelAndShipExperiment(lab, 50, duration),
		StoreOutageExperiment(lab, duration),
	}
}

// ConcurrentCancelAndShipExperiment races a buyer cancellation against a
// librarian shipment on each of n fresh orders.
func ConcurrentCancelAndShipExperiment(lab *Lab, n int, duration time.Duration) Experiment {
	return Experiment{
		Name:       "concurrent-cancel-and-ship",
		Hypothesis: "Exactly one of a racing cancel and ship succeeds, and no order is both cancelled and fulfilled",
		SteadyState: []Metric{
			{
				Name:      "illegal_orders",
				Query:     lab.IllegalOrders,
				Threshold: Threshold{Operator: "==", Value: 0},
			},
		},
		Method: []Action{
			{
				Type:   "concurrent-requests",
				Target: "orders-service",
				Execute: func(ctx context.Context) error {
					var (
						wg      sync.WaitGroup
						mu      sync.Mutex
						doubles int
					)
					for i := 0; i < n; i++ {
						o, err := lab.place(ctx, lab.buyer(i))
						if err != nil {
							return fmt.Errorf("place order: %w", err)
						}
						wg.Add(1)
						go func() {
							defer wg.Done()
							var inner sync.WaitGroup
							var cancelErr, shipErr error
							inner.Add(2)
							go func() {
								defer inner.Done()
								_, cancelErr = lab.Orders.CancelByUser(ctx, o.ID, "")
							}()
							go func() {
								defer inner.Done()
								_, shipErr = lab.Orders.UpdateFulfillment(ctx, o.ID, "shipped", "")
							}()
							inner.Wait()
							if cancelErr == nil && shipErr == nil {
								mu.Lock()
								doubles++
								mu.Unlock()
							}
						}()
					}
					wg.Wait()
					if doubles > 0 {
						return fmt.Errorf("%d orders accepted both cancel and ship", doubles)
					}
					return nil
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "illegal_orders",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "No order may be both cancelled and fulfilled",
			},
		},
		Duration: duration,
	}
}

// StoreOutageExperiment fails every order write for the first half of the
// observation window.
func StoreOutageExperiment(lab *Lab, duration time.Duration) Experiment {
	var (
		mu       sync.Mutex
		recovery *time.Timer
	)
	return Experiment{
		Name:       "order-store-outage",
		Hypothesis: "Order writes fail with store errors during an outage, recover afterwards, and never leave partial state",
		SteadyState: []Metric{
			{
				Name:      "write_success_rate",
				Query:     func(ctx context.Context) (float64, error) { return lab.WriteSuccessRate(ctx, 5) },
				Threshold: Threshold{Operator: ">=", Value: 99},
			},
			{
				Name:      "illegal_orders",
				Query:     lab.IllegalOrders,
				Threshold: Threshold{Operator: "==", Value: 0},
			},
		},
		Method: []Action{
			{
				Type:   "fail-writes",
				Target: "orders-store",
				Execute: func(ctx context.Context) error {
					lab.store.failWrites.Store(true)
					mu.Lock()
					recovery = time.AfterFunc(duration/2, func() { lab.store.failWrites.Store(false) })
					mu.Unlock()

					_, err := lab.place(ctx, lab.buyer(0))
					if !errors.Is(err, apperr.ErrStore) {
						return fmt.Errorf("write during outage returned %v, want a store error", err)
					}
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:   "restore-writes",
				Target: "orders-store",
				Execute: func(context.Context) error {
					mu.Lock()
					if recovery != nil {
						recovery.Stop()
					}
					mu.Unlock()
					lab.store.failWrites.Store(false)
					return nil
				},
			},
		},
		Validation: []Assertion{
			{
				Metric:    "write_success_rate",
				Condition: func(v float64) bool { return v >= 99 },
				Message:   "Order writes should recover once the store is back",
			},
			{
				Metric:    "illegal_orders",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "Failed writes must not leave orders in an impossible state",
			},
		},
		Duration: duration,
	}
}
