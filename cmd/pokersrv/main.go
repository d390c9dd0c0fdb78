package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/decred/dcrd/dcrutil/v4"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vctt94/bisonbotkit/logging"
	"github.com/vctt94/holdemtable/pkg/server"
	"github.com/vctt94/holdemtable/pkg/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	def := server.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "pokersrv",
		Short:         "Single table Texas Hold'em server",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, v.GetString("portfile"))
		},
	}

	f := cmd.Flags()
	f.String("datadir", dcrutil.AppDataDir("pokersrv", false), "Directory for the records database, logs and pokersrv.yaml")
	f.String("listen", def.Listen, "HTTP/websocket listen address")
	f.String("grpclisten", "", "Listen address for the gRPC health service (empty disables it)")
	f.String("db", "", "Records database path (default <datadir>/records.sqlite)")
	f.String("debuglevel", def.DebugLevel, "Logging level: trace, debug, info, warn, error, critical")
	f.String("adminsecret", "", "Shared secret for admin commands")
	f.String("deckapi", "", "Base URL of a deck-of-cards service (empty uses a local deck)")
	f.Int64("seed", 0, "Deterministic seed for the local deck (0 = random)")
	f.Int("maxseats", def.MaxSeats, "Number of seats at the table")
	f.Int64("startingchips", def.StartingChips, "Chips each player sits down with")
	f.Int64("smallblind", def.SmallBlind, "Base small blind")
	f.Int64("bigblind", def.BigBlind, "Base big blind")
	f.Int64("minbet", def.MinBet, "Minimum opening bet")
	f.Bool("autoincreaseblinds", false, "Raise the blind level after every hand")
	f.Duration("turntimeout", def.TurnTimeout, "Time a player has to act before being folded (0 disables)")
	f.Duration("autostartdelay", def.AutoStartDelay, "Delay before the next hand starts on its own (0 disables)")
	f.Duration("dealretrydelay", def.DealRetryDelay, "Delay before retrying a failed deal")
	f.Int("sendqueue", def.SendQueue, "Per-client outbound message queue length")
	f.String("portfile", "", "If set, write the bound HTTP port to this file")

	if err := v.BindPFlags(f); err != nil {
		panic(err)
	}
	v.SetEnvPrefix("POKER")
	v.AutomaticEnv()
	return cmd
}

// loadConfig merges flags, POKER_* environment variables and
// <datadir>/pokersrv.yaml, in decreasing priority.
func loadConfig(v *viper.Viper) (server.Config, error) {
	dataDir := v.GetString("datadir")
	v.SetConfigName("pokersrv")
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return server.Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg server.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return server.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	cfg = cfg.WithDefaults()
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg server.Config, portFile string) error {
	if err := utils.EnsureDataDirExists(cfg.DataDir); err != nil {
		return err
	}

	logBackend, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:     filepath.Join(cfg.DataDir, "logs", "pokersrv.log"),
		DebugLevel:  cfg.DebugLevel,
		MaxLogFiles: 5,
	})
	if err != nil {
		return err
	}
	log := logBackend.Logger("SRVR")

	records, err := server.NewRecordsStore(cfg.DBPath, logBackend.Logger("RCDS"))
	if err != nil {
		return err
	}
	defer records.Close()

	srv, err := server.NewServer(cfg, logBackend, records)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	if portFile != "" {
		_, p, _ := net.SplitHostPort(lis.Addr().String())
		if err := os.WriteFile(portFile, []byte(p), 0o600); err != nil {
			log.Warnf("unable to write port file: %v", err)
		}
	}

	var grpcLis net.Listener
	if cfg.GRPCListen != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPCListen)
		if err != nil {
			lis.Close()
			return fmt.Errorf("failed to listen for gRPC: %w", err)
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("data directory %s, records %s", cfg.DataDir, cfg.DBPath)
	if err := srv.Run(ctx, lis, grpcLis); err != nil {
		log.Errorf("server stopped: %v", err)
		return err
	}
	log.Infof("server stopped")
	return nil
}
