package domain

import (
	"errors"
	"fmt"
)

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	StatusOrderPlaced           OrderStatus = "Order Placed"
	StatusProcessing            OrderStatus = "Processing"
	StatusPacking               OrderStatus = "Packing"
	StatusShipped               OrderStatus = "Shipped"
	StatusOutForDelivery        OrderStatus = "Out for delivery"
	StatusDelivered             OrderStatus = "Delivered"
	StatusCancellationRequested OrderStatus = "Cancellation Requested"
	StatusCancelled             OrderStatus = "Cancelled"
	StatusReturnRequested       OrderStatus = "Return Requested"
	StatusReturnApproved        OrderStatus = "Return Approved"
)

var knownStatuses = map[OrderStatus]struct{}{
	StatusOrderPlaced:           {},
	StatusProcessing:            {},
	StatusPacking:               {},
	StatusShipped:               {},
	StatusOutForDelivery:        {},
	StatusDelivered:             {},
	StatusCancellationRequested: {},
	StatusCancelled:             {},
	StatusReturnRequested:       {},
	StatusReturnApproved:        {},
}

// Valid сообщает, входит ли статус в закрытый набор значений
func (s OrderStatus) Valid() bool {
	_, ok := knownStatuses[s]
	return ok
}

// Terminal статусы, после которых склад уже сверен и заказ не меняется
func (s OrderStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusReturnApproved
}

// Payable статусы, в которых неоплаченный заказ шлюза ещё ждёт оплаты
func (s OrderStatus) Payable() bool {
	switch s {
	case StatusCancellationRequested, StatusCancelled, StatusReturnRequested, StatusReturnApproved:
		return false
	}
	return s.Valid()
}

// Action действие над заказом
type Action string

const (
	ActionRequestCancellation Action = "request_cancellation"
	// ActionCancel is the older customer cancel endpoint, which only accepts Processing orders.
	ActionCancel              Action = "cancel"
	ActionRequestReturn       Action = "request_return"
	ActionApproveCancellation Action = "approve_cancellation"
	ActionApproveReturn       Action = "approve_return"
	ActionSetStatus           Action = "set_status"
)

var (
	ErrInvalidTransition = errors.New("invalid action for current order status")
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrUnknownAction     = errors.New("unknown order action")
)

// Transition результат перехода: новый статус и нужно ли вернуть товар на склад
type Transition struct {
	Next         OrderStatus
	RestoreStock bool
}

type transitionKey struct {
	from   OrderStatus
	action Action
}

// transitions is the whole lifecycle table except set_status, whose target comes from the caller.
var transitions = map[transitionKey]Transition{
	{StatusOrderPlaced, ActionRequestCancellation}: {Next: StatusCancellationRequested},
	{StatusProcessing, ActionRequestCancellation}:  {Next: StatusCancellationRequested},
	{StatusProcessing, ActionCancel}:               {Next: StatusCancellationRequested},
	{StatusDelivered, ActionRequestReturn}:         {Next: StatusReturnRequested},

	{StatusCancellationRequested, ActionApproveCancellation}: {Next: StatusCancelled, RestoreStock: true},
	{StatusReturnRequested, ActionApproveReturn}:             {Next: StatusReturnApproved, RestoreStock: true},
}

// Next вычисляет переход для текущего статуса и действия.
// target используется только для ActionSetStatus.
func Next(from OrderStatus, action Action, target OrderStatus) (Transition, error) {
	if !from.Valid() {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	if action == ActionSetStatus {
		if !target.Valid() {
			return Transition{}, fmt.Errorf("%w: %q", ErrUnknownStatus, target)
		}
		// stock-affecting results are only reachable through the approve actions
		if from.Terminal() || target.Terminal() {
			return Transition{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
		}
		return Transition{Next: target}, nil
	}
	if !action.known() {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	t, ok := transitions[transitionKey{from, action}]
	if !ok {
		return Transition{}, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, action, from)
	}
	return t, nil
}

func (a Action) known() bool {
	switch a {
	case ActionRequestCancellation, ActionCancel, ActionRequestReturn,
		ActionApproveCancellation, ActionApproveReturn, ActionSetStatus:
		return true
	}
	return false
}
