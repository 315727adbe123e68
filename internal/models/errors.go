package models

import "errors"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrItemNotFound   = errors.New("item not found")
	ErrOrderNotFound  = errors.New("order not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrInvalidEmail   = errors.New("email must be a campus address")
	ErrInvalidOTP     = errors.New("invalid otp")
	ErrOrderCompleted = errors.New("order already completed")
	ErrNotOrderSeller = errors.New("caller is not the order's seller")
	ErrOwnItemInCart  = errors.New("cannot order your own item")
)
