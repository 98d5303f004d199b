package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/openyield/svm/internal/config"
	"github.com/openyield/svm/internal/ledger"
	"github.com/openyield/svm/internal/logger"
	"github.com/openyield/svm/internal/state"
	"github.com/openyield/svm/internal/strategy"
	"github.com/openyield/svm/internal/types"
	"github.com/openyield/svm/internal/vault"
	"github.com/openyield/svm/internal/web"
)

const (
	// HARVEST_POLL_INTERVAL is how often the loop offers a harvest. The
	// vault's own interval gate decides whether one actually runs.
	HARVEST_POLL_INTERVAL = 10 * time.Minute
)

// main is the entry point for the SVM system.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"), config.LogFile)
	log.Info().Msg("SVM Core Logic Starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: config.DBHost, Port: config.DBPort,
		User: config.DBUser, Password: config.DBPassword,
		DBName: config.DBName, SSLMode: config.DBSSLMode,
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load persisted vault parameters, falling back to defaults on first boot.
	params, paused, lastHarvest, err := state.LoadVaultParameters()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load vault parameters")
	}
	if params == nil {
		log.Warn().Msg("No persisted vault parameters found, using defaults and saving.")
		defaults := config.DefaultVaultParameters
		if err := state.SaveVaultParameters(defaults, false, time.Time{}); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default vault parameters.")
		}
		params = &defaults
	}
	log.Info().Msg("Vault parameters loaded successfully.")

	// --- 2. Vault Initialization (with Safety Switch) ---
	assetBook := ledger.New("asset:" + config.AssetID)

	controller, err := vault.New(vault.Config{
		Address:     types.Address(config.VaultAddress),
		Owner:       types.Address(config.OwnerAddress),
		AssetID:     types.AssetID(config.AssetID),
		AssetLedger: assetBook,
		Params:      *params,
		Store:       state.VaultStore{},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize vault controller")
	}

	if config.Mode == "sim" {
		log.Warn().Msg("Initializing SVM in SIM mode. Strategies are simulated in-process.")
		if err := attachSimStrategies(controller, assetBook); err != nil {
			log.Fatal().Err(err).Msg("Failed to attach simulated strategies")
		}
		if err := seedSimFunds(controller, assetBook); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed sim funds")
		}
	} else {
		log.Fatal().Msg("SVM_MODE is not set to 'sim'. Halting to prevent accidental execution. Set SVM_MODE=sim to run.")
	}

	// --- 3. Restore Persisted State ---
	if err := restorePersistedState(controller, paused, lastHarvest); err != nil {
		log.Fatal().Err(err).Msg("Failed to restore persisted vault state")
	}

	// --- Start Web Server ---
	webServer := web.NewWebServer(controller, config.WebPort)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting SVM web API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 4. Harvest Loop ---
	log.Info().Str("interval", HARVEST_POLL_INTERVAL.String()).Msg("Starting SVM harvest loop")
	runHarvestLoop(controller)
}

// attachSimStrategies registers the configured number of simulated
// strategies, reusing persisted weights for addresses seen before.
func attachSimStrategies(controller *vault.Controller, assetBook *ledger.Ledger) error {
	persisted, err := state.LoadStrategyWeights()
	if err != nil {
		return err
	}
	weights := make(map[types.Address]uint32, len(persisted))
	for _, rec := range persisted {
		weights[rec.Address] = rec.Weight
	}

	count := config.SimStrategyCount
	if count < 1 {
		count = 1
	}

	owner := types.Address(config.OwnerAddress)
	for i := 1; i <= count; i++ {
		addr := types.Address(fmt.Sprintf("strategy-sim-%d", i))
		apyBps := uint32(300 + i*100) // Staggered so WeightedAPY is visible in sim runs.
		sim := strategy.NewSim(addr, types.AssetID(config.AssetID), controller.Address(), assetBook, apyBps)

		weight, ok := weights[addr]
		if !ok {
			weight = uint32(types.BpsDenominator / count)
		}
		if err := controller.AddStrategy(owner, sim, weight); err != nil {
			return err
		}
	}
	log.Info().Int("strategies", count).Msg("Simulated strategies attached")
	return nil
}

// seedSimFunds mints a working balance to the owner and pre-approves the
// vault so deposits can be exercised through the API without an external
// asset book.
func seedSimFunds(controller *vault.Controller, assetBook *ledger.Ledger) error {
	owner := types.Address(config.OwnerAddress)
	seed := sdkmath.NewInt(1_000_000_000_000) // 1M whole tokens at 6 decimals.
	if err := assetBook.Mint(owner, seed); err != nil {
		return err
	}
	if err := assetBook.Approve(owner, controller.Address(), types.MaxAllowance); err != nil {
		return err
	}
	log.Info().Str("owner", config.OwnerAddress).Str("seed", seed.String()).Msg("Sim funds seeded")
	return nil
}

// restorePersistedState replays share balances, allowances and the
// pause/harvest gate state from the database into the controller.
func restorePersistedState(controller *vault.Controller, paused bool, lastHarvest time.Time) error {
	balances, err := state.LoadShareBalances()
	if err != nil {
		return err
	}
	for holder, balance := range balances {
		if err := controller.RestoreShareBalance(holder, balance); err != nil {
			return err
		}
	}

	allowances, err := state.LoadAllowances()
	if err != nil {
		return err
	}
	for owner, spenders := range allowances {
		for spender, remaining := range spenders {
			if err := controller.RestoreShareAllowance(owner, spender, remaining); err != nil {
				return err
			}
		}
	}

	if err := controller.RestoreState(paused, lastHarvest); err != nil {
		return err
	}

	log.Info().
		Int("holders", len(balances)).
		Bool("paused", paused).
		Msg("Persisted vault state restored")
	return nil
}

// runHarvestLoop periodically offers a harvest pass. The vault rejects
// early offers with its interval gate, which is expected and not an error
// worth more than a debug line.
func runHarvestLoop(controller *vault.Controller) {
	owner := types.Address(config.OwnerAddress)
	ticker := time.NewTicker(HARVEST_POLL_INTERVAL)
	defer ticker.Stop()

	for range ticker.C {
		report, err := controller.HarvestAll(owner)
		if err != nil {
			if errors.Is(err, types.ErrHarvestTooSoon) {
				log.Debug().Msg("Harvest offered before interval elapsed, skipping")
				continue
			}
			log.Error().Err(err).Msg("Harvest pass failed")
			continue
		}
		log.Info().
			Str("total_rewards", report.TotalRewards.String()).
			Msg("Scheduled harvest completed")
	}
}
