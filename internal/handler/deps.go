package handler

import (
	"agrolink/internal/app/chat"
	"agrolink/internal/app/identity"
	"agrolink/internal/app/message"
	"agrolink/internal/app/presence"
	"agrolink/internal/app/social"
	"agrolink/internal/app/storage"
	"agrolink/internal/configs"
)

// AppDeps bundles the collaborators handlers need.
type AppDeps struct {
	Config *configs.AppConfig

	Hub *chat.Hub

	Identities *identity.Store
	Friends    *social.Service
	Groups     *social.PGGroupStore
	Messages   *message.Store
	Presence   *presence.Store

	StorageService storage.StorageService
}
