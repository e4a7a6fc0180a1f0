// Command apkesd demonstrates an APKES node bootstrapping over UDP: it
// wires an apkes.Engine to a transport.UDPGateway and a plain (one
// network-wide secret) Secret Provider, then runs the standard six-round bootstrap and prints
// the resulting neighbor table. Grounded on the coordinator cmd's cobra
// Cmd-struct-plus-init() flag wiring, generalized from a single required
// --config flag to this node's several required bootstrap parameters.
package main

import (
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/pion/logging"
	"github.com/spf13/cobra"

	"github.com/kahnreaz/contiki/apkes"
	"github.com/kahnreaz/contiki/flash"
	"github.com/kahnreaz/contiki/neighbor"
	"github.com/kahnreaz/contiki/proto"
	"github.com/kahnreaz/contiki/scheme"
	"github.com/kahnreaz/contiki/transport"
)

var cmd Cmd

// Cmd is the command line arguments.
type Cmd struct {
	ListenAddr string
	Self       string
	Secret     string
	Peers      []string
	TableSize  int
	LogLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "apkesd",
	Short: "APKES pairwise-key bootstrap demo node",
	Run: func(_ *cobra.Command, _ []string) {
		if err := run(cmd); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cmd.ListenAddr, "listen", "l", ":7878", "UDP address to listen on")
	rootCmd.Flags().StringVarP(&cmd.Self, "self", "s", "", "this node's 8-byte extended address, hex-encoded (required)")
	rootCmd.Flags().StringVar(&cmd.Secret, "secret", "", "network-wide pre-shared secret, 16-byte hex (required)")
	rootCmd.Flags().StringSliceVarP(&cmd.Peers, "peer", "p", nil, "known peer as extended_addr_hex@udp_addr, repeatable")
	rootCmd.Flags().IntVar(&cmd.TableSize, "table-size", 16, "neighbor table capacity")
	rootCmd.Flags().StringVar(&cmd.LogLevel, "log-level", "info", "log level: trace|debug|info|warn|error")
	rootCmd.MarkFlagRequired("self")
	rootCmd.MarkFlagRequired("secret")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd Cmd) error {
	self, err := parseExtendedAddr(cmd.Self)
	if err != nil {
		return fmt.Errorf("parsing --self: %w", err)
	}

	secret, err := parseSecret(cmd.Secret)
	if err != nil {
		return fmt.Errorf("parsing --secret: %w", err)
	}

	// instanceID distinguishes this process's log lines from another
	// apkesd run against the same --self address (e.g. two test runs on
	// one machine), since the extended address alone is not unique across
	// restarts during development.
	instanceID := uuid.New()

	loggerFactory := logging.NewDefaultLoggerFactory()
	loggerFactory.DefaultLogLevel = parseLogLevel(cmd.LogLevel)
	log := loggerFactory.NewLogger(fmt.Sprintf("apkesd[%s]", instanceID.String()[:8]))

	table := neighbor.NewTable(cmd.TableSize)
	provider := scheme.NewPlainScheme(scheme.Secret(secret))
	store := flash.New(flash.NewMemoryDevice(64*1024, 4096), 0)

	peers := transport.NewPeerBook()
	for _, spec := range cmd.Peers {
		addr, udpAddr, err := parsePeerSpec(spec)
		if err != nil {
			return fmt.Errorf("parsing --peer %q: %w", spec, err)
		}
		peers.Add(addr, udpAddr)
	}

	identity := proto.Identity{Extended: self}

	var engine *apkes.Engine
	gateway, err := transport.NewUDPGateway(transport.UDPConfig{
		ListenAddr: cmd.ListenAddr,
		Self:       self,
		Peers:      peers,
		Handler: func(from proto.ExtendedAddr, id proto.CommandID, payload []byte) {
			engine.HandleFrame(from, id, payload)
		},
		LoggerFactory: loggerFactory,
	})
	if err != nil {
		return fmt.Errorf("creating UDP gateway: %w", err)
	}
	engine = apkes.New(identity, table, provider, store, gateway, loggerFactory)

	if err := gateway.Start(); err != nil {
		return fmt.Errorf("starting UDP gateway: %w", err)
	}
	defer gateway.Stop()

	log.Infof("apkesd: node %x listening on %s, %d known peer(s)", self, gateway.LocalAddr(), peers.Len())

	done := make(chan struct{})
	engine.Bootstrap(func() {
		log.Info("apkesd: bootstrap complete")
		printTable(table)
		close(done)
	})

	select {
	case <-done:
	case <-waitInterrupted():
		log.Info("apkesd: interrupted before bootstrap completed")
		return nil
	}

	<-waitInterrupted()
	return nil
}

func printTable(table *neighbor.Table) {
	table.Each(func(e *neighbor.Entry) {
		fmt.Printf("peer=%x short=%d status=%s local_index=%d\n",
			e.Ids.Extended, e.Ids.Short, e.Status, e.LocalIndex)
	})
}

func waitInterrupted() <-chan struct{} {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		<-ch
		close(done)
	}()
	return done
}

func parseExtendedAddr(s string) (proto.ExtendedAddr, error) {
	var addr proto.ExtendedAddr
	b, err := hex.DecodeString(s)
	if err != nil {
		return addr, err
	}
	if len(b) != proto.ExtendedAddrLen {
		return addr, fmt.Errorf("expected %d bytes, got %d", proto.ExtendedAddrLen, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

func parseSecret(s string) ([proto.PairwiseKeyLen]byte, error) {
	var secret [proto.PairwiseKeyLen]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return secret, err
	}
	if len(b) != proto.PairwiseKeyLen {
		return secret, fmt.Errorf("expected %d bytes, got %d", proto.PairwiseKeyLen, len(b))
	}
	copy(secret[:], b)
	return secret, nil
}

func parsePeerSpec(spec string) (proto.ExtendedAddr, *net.UDPAddr, error) {
	hexPart, udpPart, ok := strings.Cut(spec, "@")
	if !ok {
		return proto.ExtendedAddr{}, nil, fmt.Errorf("expected extended_addr_hex@udp_addr")
	}
	addr, err := parseExtendedAddr(hexPart)
	if err != nil {
		return proto.ExtendedAddr{}, nil, err
	}
	udpAddr, err := net.ResolveUDPAddr("udp", udpPart)
	if err != nil {
		return proto.ExtendedAddr{}, nil, err
	}
	return addr, udpAddr, nil
}

func parseLogLevel(s string) logging.LogLevel {
	switch s {
	case "trace":
		return logging.LogLevelTrace
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}
