// Package order implements the Order Manager component (C7): it validates
// and sends place_order/cancel_order requests, merges upstream OrderStatus
// updates into each Order's lifecycle record, and periodically garbage
// collects terminal orders past their retention window.
package order
