package domain

import "time"

// ImageSize enumerates the dimensions accepted by the generation API.
type ImageSize string

const (
	SizeSquare   ImageSize = "1024x1024"
	SizePortrait ImageSize = "1024x1792"
	SizeWide     ImageSize = "1792x1024"
)

// ValidSize reports whether s is one of the accepted dimensions.
func ValidSize(s string) bool {
	switch ImageSize(s) {
	case SizeSquare, SizePortrait, SizeWide:
		return true
	}
	return false
}

// Image describes one produced image. Records are immutable once created
// and are never deleted by this service.
type Image struct {
	ID        int64     `json:"id"`
	Prompt    string    `json:"prompt"`
	URL       string    `json:"url"`
	Size      ImageSize `json:"size"`
	UserID    *int64    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
