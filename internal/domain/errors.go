package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidAppURL = errors.New("invalid App Store URL")
	ErrNoReviews     = errors.New("no reviews found for this app")
	ErrInvalidCursor = errors.New("invalid cursor")
)
