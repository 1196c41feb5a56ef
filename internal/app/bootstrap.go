package app

import (
	"fmt"
	"log/slog"
	"math/big"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/MantisClone/df-py/internal/collab"
	"github.com/MantisClone/df-py/internal/domain"
	"github.com/MantisClone/df-py/internal/infra"
	"github.com/MantisClone/df-py/internal/storage"
	"github.com/MantisClone/df-py/internal/token"
)

// Bootstrap orchestrates the startup sequence: env, config, logger,
// audit store, and the wired settlement core. The collaborators are
// the in-memory mocks; a real deployment swaps in its own adapters
// before Initialize.
type Bootstrap struct {
	Config *infra.Config
	Store  *storage.AuditStore
	Core   *token.Token
	Oracle *collab.MockOracle
	Router *collab.MockRouter
}

func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization.
func (b *Bootstrap) Initialize(configPath string) error {
	// Optional .env overlay; absence is fine.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	slog.SetDefault(infra.NewLogger(cfg))

	dbPath := cfg.Storage.AuditDBPath
	if dbPath == "" {
		dbPath = filepath.Join("_workspace", "data", "audit.db")
	}
	store, err := storage.NewAuditStore(dbPath)
	if err != nil {
		return fmt.Errorf("audit store: %w", err)
	}
	b.Store = store
	slog.Info("audit store opened", slog.String("path", dbPath))

	rate, err := cfg.ProtocolFeeRate()
	if err != nil {
		return err
	}
	b.Oracle = collab.NewMockOracle(
		common.HexToAddress(cfg.Registry.Address),
		common.HexToAddress(cfg.Registry.Owner))
	b.Router = collab.NewMockRouter(rate, common.HexToAddress(cfg.Router.CommunityCollector))

	cap, err := cfg.Cap()
	if err != nil {
		return err
	}
	feeAmount, err := cfg.PublishFeeAmount()
	if err != nil {
		return err
	}

	core := token.New(b.Oracle, b.Router, store)
	err = core.Initialize(token.InitParams{
		Address: common.HexToAddress(cfg.Token.Address),
		ChainID: big.NewInt(cfg.Token.ChainID),
		Name:    cfg.Token.Name,
		Symbol:  cfg.Token.Symbol,
		Cap:     cap,
		Minter:  common.HexToAddress(cfg.Token.Minter),
		Fee: domain.PublishMarketFee{
			Address: common.HexToAddress(cfg.PublishFee.Address),
			Token:   common.HexToAddress(cfg.PublishFee.Token),
			Amount:  feeAmount,
		},
	})
	if err != nil {
		return fmt.Errorf("initialize core: %w", err)
	}
	b.Core = core

	slog.Info("settlement core ready",
		slog.String("token", cfg.Token.Symbol),
		slog.String("address", cfg.Token.Address),
		slog.Int64("chain_id", cfg.Token.ChainID))
	return nil
}

// Close releases held resources.
func (b *Bootstrap) Close() {
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			slog.Error("failed to close audit store", slog.Any("error", err))
		}
	}
}
