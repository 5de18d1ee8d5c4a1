package http

import (
	"go.uber.org/fx"

	menutransport "github.com/Additional-Code/brigade/internal/transport/http/menu"
	ordertransport "github.com/Additional-Code/brigade/internal/transport/http/order"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	ordertransport.Module,
	menutransport.Module,
)
