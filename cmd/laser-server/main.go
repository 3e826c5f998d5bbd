package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/algo-data-platform/laser/pkg/config"
	"github.com/algo-data-platform/laser/pkg/dispatcher"
	"github.com/algo-data-platform/laser/pkg/engine"
	"github.com/algo-data-platform/laser/pkg/log"
	"github.com/algo-data-platform/laser/pkg/metrics"
	"github.com/algo-data-platform/laser/pkg/replication"
	"github.com/algo-data-platform/laser/pkg/replicator"
	"github.com/algo-data-platform/laser/pkg/router"
	"github.com/algo-data-platform/laser/pkg/rpcx"
	"github.com/algo-data-platform/laser/pkg/types"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "laser-server",
	Short: "Laser - a sharded, replicated key/value store",
	Long: `laser-server hosts one node's set of partitions: local Partition
Engines, their Replication DBs, the Replicator Manager's RPC endpoint, the
Partition Router, and the Service Dispatcher.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOutput})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a Laser node",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("node-id", "node-1", "Unique node ID")
	serveCmd.Flags().String("data-dir", "./laser-data", "Directory holding per-partition engine state")
	serveCmd.Flags().String("grpc-addr", "127.0.0.1:7090", "Address the Replicator Manager's gRPC server listens on")
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:7091", "Address the Prometheus metrics/health HTTP server listens on")
	serveCmd.Flags().String("database", "app_db", "Database name served by this process")
	serveCmd.Flags().StringSlice("tables", []string{"default:4"}, "table:partition_number pairs served by this process")
	serveCmd.Flags().String("role", "leader", "Role for every local partition: leader or follower")
	serveCmd.Flags().String("leader-addr", "", "Leader's gRPC address; required when --role=follower")
	serveCmd.Flags().String("node-config", "", "Optional NodeConfig YAML fixture")
	serveCmd.Flags().String("table-config", "", "Optional TableConfigList YAML fixture")
	serveCmd.Flags().String("traffic-config", "", "Optional TrafficRestrictionDoc YAML fixture")
}

func runServe(cmd *cobra.Command, args []string) error {
	nodeID, _ := cmd.Flags().GetString("node-id")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	grpcAddr, _ := cmd.Flags().GetString("grpc-addr")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	database, _ := cmd.Flags().GetString("database")
	tableSpecs, _ := cmd.Flags().GetStringSlice("tables")
	roleFlag, _ := cmd.Flags().GetString("role")
	leaderAddr, _ := cmd.Flags().GetString("leader-addr")
	nodeConfigPath, _ := cmd.Flags().GetString("node-config")
	tableConfigPath, _ := cmd.Flags().GetString("table-config")
	trafficConfigPath, _ := cmd.Flags().GetString("traffic-config")

	role := types.RoleLeader
	if roleFlag == "follower" {
		role = types.RoleFollower
		if leaderAddr == "" {
			return fmt.Errorf("--leader-addr is required when --role=follower")
		}
	}

	var replicateClient replication.ReplicateCaller
	if role == types.RoleFollower {
		conn, err := grpc.NewClient(leaderAddr, grpc.WithDefaultCallOptions(grpc.CallContentSubtype(rpcx.CodecName)))
		if err != nil {
			return fmt.Errorf("dial leader %s: %w", leaderAddr, err)
		}
		defer conn.Close()
		replicateClient = rpcx.NewReplicatorClient(conn)
	}

	manager := replicator.NewManager(nodeID)
	r := router.New(manager)
	trafficRegistry := dispatcher.NewTrafficRegistry()
	watcher := config.New(trafficRegistry)

	if nodeConfigPath != "" {
		nc, err := config.LoadNodeConfigFile(nodeConfigPath)
		if err != nil {
			return fmt.Errorf("load node config: %w", err)
		}
		watcher.PushNodeConfig(nc)
	}
	if tableConfigPath != "" {
		tc, err := config.LoadTableConfigListFile(tableConfigPath)
		if err != nil {
			return fmt.Errorf("load table config list: %w", err)
		}
		watcher.PushTableConfigList(tc)
	}
	if trafficConfigPath != "" {
		doc, err := config.LoadTrafficRestrictionFile(trafficConfigPath)
		if err != nil {
			return fmt.Errorf("load traffic restriction config: %w", err)
		}
		watcher.PushTrafficRestriction(doc)
	}

	for _, spec := range tableSpecs {
		table, partitionNumber, err := parseTableSpec(spec)
		if err != nil {
			return err
		}
		r.RegisterTable(types.TableSpec{Database: database, Table: table, PartitionNumber: partitionNumber})

		for p := uint32(0); p < partitionNumber; p++ {
			partDir := filepath.Join(dataDir, database, table, fmt.Sprintf("%d", p))
			if err := os.MkdirAll(partDir, 0o755); err != nil {
				return fmt.Errorf("create partition dir %s: %w", partDir, err)
			}
			eng, err := engine.Open(partDir, engine.Options{})
			if err != nil {
				return fmt.Errorf("open engine for %s/%s/%d: %w", database, table, p, err)
			}
			identity := types.PartitionIdentity{Database: database, Table: table, PartitionID: p, Role: role}
			db := replication.New(identity, eng, replicateClient, replication.Config{})
			manager.Register(types.PartitionDBHash(database, table, p), db)
		}
	}

	dispatch := dispatcher.New(r, trafficRegistry)
	_ = dispatch // wired for the RPC/HTTP front end this process would otherwise serve

	collector := metrics.NewCollector(manager, 0)
	collector.Start()
	defer collector.Stop()

	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", grpcAddr, err)
	}
	srv := replicator.NewServer(manager)
	go func() {
		log.Logger.Info().Str("addr", grpcAddr).Msg("replicator gRPC server listening")
		if err := srv.Serve(lis); err != nil {
			log.Logger.Error().Err(err).Msg("replicator gRPC server stopped")
		}
	}()

	metrics.RegisterComponent("engine", true, "")
	metrics.RegisterComponent("replicator", true, "")
	metrics.RegisterComponent("rpcx", true, "")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", metrics.HealthHandler())
	mux.HandleFunc("/readyz", metrics.ReadyHandler())
	mux.HandleFunc("/livez", metrics.LivenessHandler())
	httpSrv := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		log.Logger.Info().Str("addr", metricsAddr).Msg("metrics server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Logger.Info().Msg("shutting down")
	srv.Stop()
	_ = httpSrv.Close()
	return nil
}

func parseTableSpec(spec string) (table string, partitionNumber uint32, err error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("invalid --tables entry %q, want table:partition_number", spec)
	}
	var n int
	if _, err := fmt.Sscanf(parts[1], "%d", &n); err != nil || n <= 0 {
		return "", 0, fmt.Errorf("invalid partition_number in --tables entry %q", spec)
	}
	return parts[0], uint32(n), nil
}
