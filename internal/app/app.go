package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/brigade/internal/cache"
	"github.com/Additional-Code/brigade/internal/config"
	"github.com/Additional-Code/brigade/internal/database"
	"github.com/Additional-Code/brigade/internal/logger"
	"github.com/Additional-Code/brigade/internal/messaging"
	"github.com/Additional-Code/brigade/internal/observability"
	"github.com/Additional-Code/brigade/internal/realtime"
	repositorymenu "github.com/Additional-Code/brigade/internal/repository/menu"
	repositoryorder "github.com/Additional-Code/brigade/internal/repository/order"
	httpserver "github.com/Additional-Code/brigade/internal/server/http"
	serviceorder "github.com/Additional-Code/brigade/internal/service/order"
	transporthttp "github.com/Additional-Code/brigade/internal/transport/http"
	"github.com/Additional-Code/brigade/internal/worker"
	workerorder "github.com/Additional-Code/brigade/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	realtime.Module,
	repositorymenu.Module,
	repositoryorder.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
