package app

import (
	"context"
	"sync"

	"github.com/timeflowlabs/timeflow/internal/factory"
	"github.com/timeflowlabs/timeflow/internal/ledger"
	"github.com/timeflowlabs/timeflow/internal/registry"
	"github.com/timeflowlabs/timeflow/internal/storage"
	"github.com/timeflowlabs/timeflow/internal/vault"
	"github.com/timeflowlabs/timeflow/pkg/cache"
	"github.com/timeflowlabs/timeflow/pkg/config"
	"github.com/timeflowlabs/timeflow/pkg/healthprobe"
	"github.com/timeflowlabs/timeflow/pkg/httpserver"
	"github.com/timeflowlabs/timeflow/pkg/websocket"
	"go.uber.org/zap"
)

// App wires the exchange core together: shared ledger, collateral vault,
// governance registry, market factory, audit storage, fill feed and the
// HTTP read surface.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	Ledger   *ledger.Ledger
	Vault    *vault.Vault
	Registry *registry.Registry
	Factory  *factory.Factory

	storage   storage.Storage
	fillHub   *websocket.Hub
	readCache cache.Cache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}
