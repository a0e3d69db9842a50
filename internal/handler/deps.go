package handler

import (
	"wavechat/internal/app/realtime"
	"wavechat/internal/app/storage"
	"wavechat/internal/app/store"
	"wavechat/internal/configs"
)

// AppDeps bundles the shared components handed to every handler constructor.
type AppDeps struct {
	Config    *configs.AppConfig
	Store     *store.Store
	Gateway   *realtime.Gateway
	Publisher *realtime.Publisher
	Storage   storage.Service
}
