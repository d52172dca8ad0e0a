package models

import "errors"

var (
	ErrInvalidParams   = errors.New("invalid params")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrInvalidItemType = errors.New("invalid order item type")
)
