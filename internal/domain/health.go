package domain

import "time"

type StoreState string

const (
	StoreUp   StoreState = "up"
	StoreDown StoreState = "down"
)

type HealthSnapshot struct {
	OK        bool
	Store     StoreState
	CheckedAt time.Time
}
