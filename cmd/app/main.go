package main

import (
	"crypto/ecdsa"
	"flag"
	"log/slog"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/MantisClone/df-py/internal/app"
	"github.com/MantisClone/df-py/internal/collab"
	"github.com/MantisClone/df-py/internal/domain"
	"github.com/MantisClone/df-py/internal/ledger"
	"github.com/MantisClone/df-py/pkg/sig"
	"github.com/MantisClone/df-py/pkg/units"
)

// Demo harness: boots the settlement core against the in-memory
// collaborators and walks one full lifecycle (fixed-rate binding,
// composite purchase, reuse, permission sweep), leaving a readable
// audit trail behind.

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config")
	flag.Parse()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	if err := runScenario(bootstrap); err != nil {
		slog.Error("scenario failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("scenario complete")
}

func runScenario(b *app.Bootstrap) error {
	core := b.Core
	cfg := b.Config

	owner := common.HexToAddress(cfg.Registry.Owner)
	deployer := common.HexToAddress(cfg.Token.Minter)
	b.Oracle.Deployers[deployer] = true

	consumer := common.HexToAddress("0x00000000000000000000000000000000000000c1")
	baseAddr := common.HexToAddress(cfg.PublishFee.Token)
	exchangeAddr := common.HexToAddress("0x00000000000000000000000000000000000000e1")

	// Payment asset the fees and the fixed-rate sale settle in.
	base := ledger.New(baseAddr, "Demo Stable", "USDX", units.MustToBase18("1000000000"))
	core.RegisterAsset(base)

	providerKey, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	providerAddr := crypto.PubkeyToAddress(providerKey.PublicKey)

	// Fund the consumer and pre-authorize the core to pull fees.
	funding := units.MustToBase18("1000")
	if err := base.Mint(consumer, funding); err != nil {
		return err
	}
	if err := base.Approve(consumer, core.Address(), funding); err != nil {
		return err
	}

	// Bind a mint-enabled fixed-rate sale at 2 base per unit.
	rateCfg := domain.FixedRateConfig{
		BaseToken: baseAddr,
		Owner:     deployer,
		FixedRate: units.MustToBase18("2"),
		WithMint:  true,
	}
	ex := collab.NewMockExchange(exchangeAddr, base, core.Ledger(), core.MinterGate(), owner)
	id, err := core.CreateFixedRateBinding(deployer, ex, rateCfg)
	if err != nil {
		return err
	}
	ex.Register(id, core.Address(), rateCfg)
	slog.Info("fixed-rate binding created", slog.String("exchange_id", id.Hex()))

	// Composite purchase: acquire one unit and consume it in one call.
	fee, err := signProviderFee(providerKey, providerAddr, baseAddr, units.MustToBase18("10"))
	if err != nil {
		return err
	}
	order := domain.OrderParams{Consumer: consumer, ServiceIndex: 1, ProviderFee: fee}
	purchase := domain.FixedRatePurchase{
		Exchange:      exchangeAddr,
		ExchangeID:    id,
		MaxBaseAmount: units.MustToBase18("3"),
		SwapMarketFee: big.NewInt(0),
	}
	if err := core.BuyFromFixedRate(consumer, order, purchase); err != nil {
		return err
	}
	slog.Info("composite purchase settled",
		slog.String("consumer_base", units.FromBase18(base.BalanceOf(consumer))),
		slog.String("provider_base", units.FromBase18(base.BalanceOf(providerAddr))))

	// Renewed access against the prior order.
	reuseFee, err := signProviderFee(providerKey, providerAddr, baseAddr, units.MustToBase18("5"))
	if err != nil {
		return err
	}
	orderRef := crypto.Keccak256Hash([]byte("demo-order"))
	if err := core.ReuseOrder(consumer, orderRef, reuseFee); err != nil {
		return err
	}

	// Ownership reset: sweep the mechanism and wipe human roles.
	if err := core.CleanPermissions(owner); err != nil {
		return err
	}
	slog.Info("permissions cleaned",
		slog.Bool("exchange_still_minter", core.IsMinter(exchangeAddr)),
		slog.Bool("deployer_still_minter", core.IsMinter(deployer)))
	return nil
}

// signProviderFee builds a provider fee authorization the way the
// provider's off-chain service would.
func signProviderFee(key *ecdsa.PrivateKey, addr, tok common.Address, amount *big.Int) (domain.ProviderFee, error) {
	data := []byte("demo-service")
	validUntil := big.NewInt(0)
	digest := sig.EthSignedMessageHash(sig.ProviderFeeDigest(data, addr, tok, amount, validUntil))
	raw, err := crypto.Sign(digest[:], key)
	if err != nil {
		return domain.ProviderFee{}, err
	}
	var r, s [32]byte
	copy(r[:], raw[:32])
	copy(s[:], raw[32:64])
	return domain.ProviderFee{
		Address:      addr,
		Token:        tok,
		Amount:       amount,
		V:            raw[64],
		R:            r,
		S:            s,
		ValidUntil:   validUntil,
		ProviderData: data,
	}, nil
}
