package handler

import (
	commonhandler "family-lists-go/internal/transport/httpserver/handler/common"
	listshandler "family-lists-go/internal/transport/httpserver/handler/lists"
	realtimehandler "family-lists-go/internal/transport/httpserver/handler/realtime"
	uploadshandler "family-lists-go/internal/transport/httpserver/handler/uploads"
)

type Handlers struct {
	Common   *commonhandler.Handlers
	Lists    *listshandler.Handlers
	Uploads  *uploadshandler.Handlers
	Realtime *realtimehandler.Handlers
}

func New(common *commonhandler.Handlers, lists *listshandler.Handlers, uploads *uploadshandler.Handlers, realtime *realtimehandler.Handlers) *Handlers {
	return &Handlers{
		Common:   common,
		Lists:    lists,
		Uploads:  uploads,
		Realtime: realtime,
	}
}
