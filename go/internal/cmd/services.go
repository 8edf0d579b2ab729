package main

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ysatyam-3107/studentsync/go/internal/gateway"
	"github.com/ysatyam-3107/studentsync/go/internal/identity"
	"github.com/ysatyam-3107/studentsync/go/internal/rooms"
	"github.com/ysatyam-3107/studentsync/go/internal/store"
)

type Services struct {
	Rooms   *rooms.Service
	Gateway *gateway.Service
}

func setupServices(config *Config, s store.Store) (*Services, error) {
	// Store → Repository → App → Service
	clock := clockwork.NewRealClock()

	tokens, err := identity.NewTokens(config.Auth.TokenSecret, time.Duration(config.Auth.TokenTTLHours)*time.Hour, clock)
	if err != nil {
		return nil, err
	}

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.ConnectionConfig.ExpiryPolicy = config.expiryPolicy()
	gatewayConfig.ConnectionConfig.ResubscribeWait = config.Timer.ResubscribeWait
	gatewayService := gateway.NewService(gatewayConfig, s, tokens, clock)

	roomsRepo := rooms.NewRepository(s)
	roomsApp := rooms.NewApp(roomsRepo, clock, gatewayService)
	roomsService := rooms.NewService(roomsApp, tokens)

	return &Services{
		Rooms:   roomsService,
		Gateway: gatewayService,
	}, nil
}
