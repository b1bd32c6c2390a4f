package lists

import "time"

// PublicCache holds the viewer-independent public collection pages.
type PublicCache interface {
	GetPage(limit, offset int) ([]ListView, bool)
	SetPage(limit, offset int, views []ListView, ttl time.Duration)
	Clear()
}

type noopCache struct{}

func (noopCache) GetPage(int, int) ([]ListView, bool) {
	return nil, false
}

func (noopCache) SetPage(int, int, []ListView, time.Duration) {}

func (noopCache) Clear() {}
