package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config stores application settings. Endpoints and provider identity come
// from the environment, server behavior from flags.
type Config struct {
	// RPC endpoints per network
	MainnetRPCURL string `env:"MAINNET_RPC_URL"`
	SepoliaRPCURL string `env:"SEPOLIA_RPC_URL"`

	// Vendor behind the endpoints, used to pre-empt unsupported calls
	Provider string `env:"RPC_PROVIDER"`

	// Server ports
	WSAddr  string
	APIAddr string

	// Feature flags
	EnableWS     bool
	EnableAPI    bool
	EnableSaving bool

	// Behavior
	OutputDir      string
	PollInterval   time.Duration
	FallbackBlocks int
}

// Initialize logger
var logger = logrus.New()

func initLogger() {
	logger.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)
}

func parseConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		logger.Fatalf("Failed to parse environment: %v", err)
	}

	flag.StringVar(&cfg.WSAddr, "ws-port", ":8080", "WebSocket server address")
	flag.StringVar(&cfg.APIAddr, "api-port", ":8081", "Internal API server address")

	flag.BoolVar(&cfg.EnableWS, "enable-ws", false, "Enable WebSocket server")
	flag.BoolVar(&cfg.EnableAPI, "enable-api", true, "Enable internal API server")
	flag.BoolVar(&cfg.EnableSaving, "enable-saving", false, "Enable snapshot saving")

	flag.StringVar(&cfg.OutputDir, "output", "data", "Directory for saved snapshots")
	flag.DurationVar(&cfg.PollInterval, "poll-interval", 15*time.Second, "Snapshot polling interval")
	flag.IntVar(&cfg.FallbackBlocks, "fallback-blocks", defaultFallbackBlocks, "Recent blocks scanned when txpool_content is unavailable")

	flag.Parse()

	if cfg.MainnetRPCURL == "" && cfg.SepoliaRPCURL == "" {
		logger.Fatal("At least one of MAINNET_RPC_URL or SEPOLIA_RPC_URL is required")
	}

	return cfg
}

func printBanner(cfg *Config) {
	logger.Info("🚀 Starting PYUSD Pool Intelligence Engine")
	logger.WithFields(logrus.Fields{
		"Mainnet":       cfg.MainnetRPCURL != "",
		"Sepolia":       cfg.SepoliaRPCURL != "",
		"Provider":      cfg.Provider,
		"WebSocket":     cfg.EnableWS,
		"API Server":    cfg.EnableAPI,
		"Saving":        cfg.EnableSaving,
		"Poll Interval": cfg.PollInterval,
	}).Info("Configuration Loaded")
}

// dialNetwork connects one network's endpoint and logs its chain ID as a
// sanity check that the endpoint matches the configured network.
func dialNetwork(network, endpoint string) (*PoolClient, error) {
	rpcClient, err := rpc.Dial(endpoint)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if chainID, err := ethclient.NewClient(rpcClient).ChainID(ctx); err == nil {
		logger.WithFields(logrus.Fields{
			"network":  network,
			"chain_id": chainID,
		}).Info("Connected to Ethereum network")
	} else {
		logger.WithField("network", network).Warnf("Could not verify chain ID: %v", err)
	}

	return NewPoolClient(network, rpcClient), nil
}

func main() {
	initLogger()
	cfg := parseConfig()
	printBanner(cfg)

	clients := make(map[string]*PoolClient)
	endpoints := map[string]string{
		"mainnet": cfg.MainnetRPCURL,
		"sepolia": cfg.SepoliaRPCURL,
	}
	for network, endpoint := range endpoints {
		if endpoint == "" {
			continue
		}
		client, err := dialNetwork(network, endpoint)
		if err != nil {
			logger.Fatalf("Failed to connect to %s: %v", network, err)
		}
		clients[network] = client
	}

	analyzer := NewPoolAnalyzer(clients, AnalyzerConfig{
		FallbackBlocks: cfg.FallbackBlocks,
		Provider:       cfg.Provider,
		MaxRetries:     defaultMaxRetries,
	})

	var storage *Storage
	if cfg.EnableSaving {
		var err error
		storage, err = NewStorage(cfg.OutputDir)
		if err != nil {
			logger.Fatalf("Failed to create storage: %v", err)
		}
	}

	manager := NewDataManager(analyzer, storage, cfg.PollInterval)

	var wsServer *WSServer
	if cfg.EnableWS {
		wsServer = NewWSServer(cfg.WSAddr)
		manager.SetUpdateCallback(wsServer.BroadcastUpdate)

		if err := wsServer.Start(); err != nil {
			logger.Fatalf("Failed to start WebSocket server: %v", err)
		}
	}

	if cfg.EnableAPI {
		apiServer := NewAPIServer(cfg.APIAddr, analyzer, manager)
		if err := apiServer.Start(); err != nil {
			logger.Fatalf("Failed to start API server: %v", err)
		}
	}

	manager.Start()
	logger.Info("Polling started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Warnf("Received signal %v, shutting down...", sig)

	if wsServer != nil {
		wsServer.Stop()
		logger.Info("WebSocket server stopped")
	}

	manager.Stop()
	logger.Info("Shutdown complete")
}
