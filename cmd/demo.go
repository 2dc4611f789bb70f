package cmd

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/timeflowlabs/timeflow/internal/app"
	"github.com/timeflowlabs/timeflow/pkg/config"
	"github.com/timeflowlabs/timeflow/pkg/types"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a full deployment and trading sequence in-process",
	Long: `Replays the complete lifecycle against an in-process stack:
- Whitelist a collateral token at mint ratio 95%, fee 10%
- Initialize and configure market 0 with a ten day duration
- Create the market through the factory
- Mint Dust for a seller and fund a buyer with quote balance
- Rest a sell order, then match it with a buy order
- Print the resulting order states, fills and balances`,
	RunE: runDemo,
}

var (
	demoCollateral string
	demoSeller     string
	demoBuyer      string
)

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().StringVarP(&demoCollateral, "collateral", "c", "0x000000000000000000000000000000000000005d", "Collateral token address to whitelist")
	demoCmd.Flags().StringVar(&demoSeller, "seller", "0x000000000000000000000000000000000000aaaa", "Seller address")
	demoCmd.Flags().StringVar(&demoBuyer, "buyer", "0x000000000000000000000000000000000000bbbb", "Buyer address")
}

func runDemo(cmd *cobra.Command, args []string) error {
	// Load .env
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.StorageMode = "console"

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer func() {
		_ = application.Shutdown()
	}()

	collateral := common.HexToAddress(demoCollateral)
	seller := common.HexToAddress(demoSeller)
	buyer := common.HexToAddress(demoBuyer)
	admin := cfg.AdminAddress

	fmt.Printf("=== TimeFlow Demo ===\n\n")

	// Governance setup.
	err = application.Vault.Whitelist(admin, []common.Address{collateral}, []uint64{95}, []uint64{10})
	if err != nil {
		return fmt.Errorf("whitelist collateral: %w", err)
	}
	fmt.Printf("Whitelisted %s (ratio 95%%, fee 10%%)\n", collateral.Hex())

	err = application.Registry.InitMarketConfig(admin, 0, collateral, common.Address{}, common.Address{})
	if err != nil {
		return fmt.Errorf("init market config: %w", err)
	}
	err = application.Registry.SetMarketConfig(admin, 0, 864000*time.Second, collateral)
	if err != nil {
		return fmt.Errorf("set market config: %w", err)
	}

	marketID, engine, err := application.Factory.CreateMarket()
	if err != nil {
		return fmt.Errorf("create market: %w", err)
	}
	_, info, _ := application.Factory.GetMarketInfo(marketID)
	fmt.Printf("Created market %d, expires %s\n\n", marketID, info.ExpiresAt.Format(time.RFC3339))

	// Fund the traders. The seller deposits collateral and mints Dust,
	// the buyer just needs quote balance.
	err = application.Ledger.Mint(collateral, seller, big.NewInt(100_000))
	if err != nil {
		return fmt.Errorf("fund seller: %w", err)
	}
	err = application.Ledger.Mint(collateral, buyer, big.NewInt(100_000_000))
	if err != nil {
		return fmt.Errorf("fund buyer: %w", err)
	}

	minted, err := application.Vault.MintDust(seller, collateral, big.NewInt(100), types.PriceScale)
	if err != nil {
		return fmt.Errorf("mint dust: %w", err)
	}
	fmt.Printf("Seller deposited 100 collateral, minted %s Dust\n", minted)

	// Trading.
	sellID, err := engine.PutTrade(seller, types.Sell, big.NewInt(50), big.NewInt(200000))
	if err != nil {
		return fmt.Errorf("put sell order: %w", err)
	}
	fmt.Printf("Seller rested order %d: SELL 50 @ 200000\n", sellID)

	takerOrder, fills, err := engine.MatchTrade(buyer, types.Buy, big.NewInt(50), big.NewInt(200000), []uint64{sellID})
	if err != nil {
		return fmt.Errorf("match buy order: %w", err)
	}

	fmt.Printf("\n=== Results ===\n\n")
	fmt.Printf("Taker order %d: %s (filled %s)\n", takerOrder.ID, takerOrder.State, takerOrder.FilledQuantity())
	makerState, _ := engine.GetOrderState(sellID)
	fmt.Printf("Maker order %d: %s\n", sellID, makerState)
	for _, fill := range fills {
		fmt.Printf("Fill %s: %s @ %s\n", fill.ID, fill.Quantity, fill.Price)
	}

	dust := application.Vault.DustToken()
	fmt.Printf("\nSeller: %s collateral, %s Dust\n",
		application.Ledger.Balance(collateral, seller),
		application.Ledger.Balance(dust, seller))
	fmt.Printf("Buyer:  %s collateral, %s Dust\n",
		application.Ledger.Balance(collateral, buyer),
		application.Ledger.Balance(dust, buyer))

	return nil
}
