package domain

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusServed    OrderStatus = "served"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// StockEffect is the inventory side effect of entering a status.
type StockEffect int

const (
	StockEffectNone StockEffect = iota
	StockEffectConsume
	StockEffectRestore
)

func (e StockEffect) String() string {
	switch e {
	case StockEffectConsume:
		return "consume"
	case StockEffectRestore:
		return "restore"
	}
	return "none"
}

// transitions is the single source of truth for legal status changes.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusServed, OrderStatusCancelled},
	OrderStatusServed:    {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted: {},
	OrderStatusCancelled: {},
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	status := OrderStatus(s)
	_, ok := transitions[status]
	return status, ok
}

func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsPreServed reports whether food for the order can still be un-made,
// i.e. whatever was consumed may be restored on cancellation.
func (s OrderStatus) IsPreServed() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing, OrderStatusReady:
		return true
	}
	return false
}

// HasConsumed reports whether confirmation already drew ingredients for an
// order sitting in this status.
func (s OrderStatus) HasConsumed() bool {
	return s != OrderStatusPending && s != OrderStatusCancelled
}

type TransitionPlan struct {
	From   OrderStatus
	To     OrderStatus
	NoOp   bool
	Effect StockEffect
}

// forwardPath orders the statuses an uncancelled order moves through.
var forwardPath = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusConfirmed: 1,
	OrderStatusPreparing: 2,
	OrderStatusReady:     3,
	OrderStatusServed:    4,
	OrderStatusCompleted: 5,
}

// HasPassed reports whether an order in s already went through target on
// its way forward. Cancelled orders have passed nothing.
func (s OrderStatus) HasPassed(target OrderStatus) bool {
	from, ok := forwardPath[s]
	if !ok {
		return false
	}
	to, ok := forwardPath[target]
	return ok && to < from
}

// PlanTransition validates from -> to against the transition table. Asking
// for the current status, or for a status the order already went through,
// is a no-op so late client retries are harmless. Pending is never a target.
func PlanTransition(from, to OrderStatus) (TransitionPlan, bool) {
	plan := TransitionPlan{From: from, To: to}

	if _, ok := transitions[to]; !ok {
		return plan, false
	}
	if from == to {
		plan.NoOp = true
		return plan, true
	}
	if to != OrderStatusPending && from.HasPassed(to) {
		plan.NoOp = true
		return plan, true
	}
	if !from.CanTransitionTo(to) {
		return plan, false
	}

	switch {
	case from == OrderStatusPending && to == OrderStatusConfirmed:
		plan.Effect = StockEffectConsume
	case to == OrderStatusCancelled && from.IsPreServed() && from.HasConsumed():
		plan.Effect = StockEffectRestore
	}

	return plan, true
}
