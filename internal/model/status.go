package model

import (
	"errors"
	"fmt"
)

type OrderStatus string

const (
	StatusPendingStockCheck OrderStatus = "PENDING_STOCK_CHECK"
	StatusConfirmed         OrderStatus = "CONFIRMED"
	StatusFailed            OrderStatus = "FAILED"
	StatusCancelled         OrderStatus = "CANCELLED"
)

var ErrInvalidTransition = errors.New("invalid order status transition")

// transitions is the exhaustive table of allowed status changes.
// A terminal order never moves back to PENDING_STOCK_CHECK.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPendingStockCheck: {StatusConfirmed, StatusFailed, StatusCancelled},
	StatusConfirmed:         {StatusCancelled},
	StatusFailed:            {StatusCancelled},
	StatusCancelled:         {},
}

// Terminal reports whether the status is a final stock-check outcome.
func (s OrderStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether the change from s to target is allowed.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Transition applies the status change or rejects it with ErrInvalidTransition.
func (o *Order) Transition(target OrderStatus) error {
	if !o.Status.CanTransition(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
	}
	o.Status = target
	return nil
}
