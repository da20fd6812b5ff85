package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/SimplyPrint/pcsc"
	"github.com/SimplyPrint/pcsc/internal/api"
	"github.com/SimplyPrint/pcsc/internal/certs"
	"github.com/SimplyPrint/pcsc/internal/config"
	"github.com/SimplyPrint/pcsc/internal/logging"
	"github.com/SimplyPrint/pcsc/internal/monitor"
	"github.com/SimplyPrint/pcsc/internal/service"
	"github.com/SimplyPrint/pcsc/internal/version"
	"github.com/SimplyPrint/pcsc/internal/web"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information and exit")
	noTLSFlag := flag.Bool("no-tls", false, "Serve plain HTTP only (no self-signed certificate)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "PC/SC Agent - Local smart card reader service\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  pcsc-agent [flags]\n")
		fmt.Fprintf(os.Stderr, "  pcsc-agent <command>\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  install     Install auto-start service\n")
		fmt.Fprintf(os.Stderr, "  uninstall   Remove auto-start service\n")
		fmt.Fprintf(os.Stderr, "  status      Show auto-start service status\n")
		fmt.Fprintf(os.Stderr, "  version     Print version information\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  PCSC_AGENT_PORT             Port to listen on (default: %d)\n", config.DefaultPort)
		fmt.Fprintf(os.Stderr, "  PCSC_AGENT_HOST             Host to bind to (default: %s)\n", config.DefaultHost)
		fmt.Fprintf(os.Stderr, "  PCSC_AGENT_LOG_LEVEL        Log level: debug, info, warn, error\n")
		fmt.Fprintf(os.Stderr, "  PCSC_AGENT_RECONNECT_DELAY  Seconds between reconnect attempts\n")
	}

	flag.Parse()

	if *versionFlag {
		printVersion()
		return
	}

	args := flag.Args()
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			return
		case "install":
			if err := service.New().Install(); err != nil {
				log.Fatalf("Failed to install service: %v", err)
			}
			fmt.Println("Auto-start service installed successfully")
			return
		case "uninstall":
			if err := service.New().Uninstall(); err != nil {
				log.Fatalf("Failed to uninstall service: %v", err)
			}
			fmt.Println("Auto-start service removed successfully")
			return
		case "status":
			status, err := service.New().Status()
			if err != nil {
				log.Fatalf("Failed to query service status: %v", err)
			}
			fmt.Println(status)
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			flag.Usage()
			os.Exit(1)
		}
	}

	run(config.Load(), *noTLSFlag)
}

func printVersion() {
	info := version.Build()
	fmt.Printf("pcsc-agent %s\n", info.Version)
	fmt.Printf("Build time: %s\n", info.BuildTime)
	fmt.Printf("Git commit: %s\n", info.GitCommit)
}

// swappableSession delegates to the session of the currently established
// context, so the HTTP handlers survive a resource manager restart.
type swappableSession struct {
	mu      sync.RWMutex
	current api.Session
}

func (s *swappableSession) set(session api.Session) {
	s.mu.Lock()
	s.current = session
	s.mu.Unlock()
}

func (s *swappableSession) get() (api.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, fmt.Errorf("smart card service is not available")
	}
	return s.current, nil
}

func (s *swappableSession) ListReaders() ([]string, error) {
	session, err := s.get()
	if err != nil {
		return nil, err
	}
	return session.ListReaders()
}

func (s *swappableSession) ReaderStatus(reader string) (*api.ReaderStatus, error) {
	session, err := s.get()
	if err != nil {
		return nil, err
	}
	return session.ReaderStatus(reader)
}

func (s *swappableSession) Transmit(reader string, apdu []byte) ([]byte, error) {
	session, err := s.get()
	if err != nil {
		return nil, err
	}
	return session.Transmit(reader, apdu)
}

func (s *swappableSession) Control(reader string, code uint32, payload []byte) ([]byte, error) {
	session, err := s.get()
	if err != nil {
		return nil, err
	}
	return session.Control(reader, code, payload)
}

func (s *swappableSession) ReaderAttribute(reader string, attr pcsc.Attribute) ([]byte, error) {
	session, err := s.get()
	if err != nil {
		return nil, err
	}
	return session.ReaderAttribute(reader, attr)
}

func run(cfg *config.Config, noTLS bool) {
	logging.Init(logging.DefaultMaxEntries, logging.ParseLevel(cfg.LogLevel))
	logging.Get().SetEcho(os.Stderr)
	logging.Info(logging.CatSystem, "PC/SC Agent starting", map[string]any{
		"version": version.Current,
	})

	hub := api.NewWSHub()
	go hub.Run()

	session := &swappableSession{}
	go monitorLoop(cfg, hub, session)

	mux := http.NewServeMux()
	mux.Handle("/", web.Handler())
	mux.HandleFunc("/v1/ws", hub.Handler(session))

	addr := cfg.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", addr, err)
	}

	scheme := "ws"
	if !noTLS {
		tlsConfig, err := certs.LoadOrGenerate()
		if err != nil {
			logging.Warn(logging.CatSystem, "TLS unavailable, serving plain HTTP", map[string]any{
				"error": err.Error(),
			})
		} else {
			ln = certs.NewMuxListener(ln, tlsConfig)
			scheme = "wss"
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logging.Info(logging.CatSystem, "Shutting down", nil)
		ln.Close()
		os.Exit(0)
	}()

	log.Printf("pcsc-agent %s listening on %s\n", version.Current, addr)
	log.Printf("WebSocket available at %s://%s/v1/ws\n", scheme, addr)
	logging.Info(logging.CatSystem, "Server started", map[string]any{"address": addr})

	if err := http.Serve(ln, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// monitorLoop keeps a context established against the resource manager and
// feeds reader events to the hub, re-establishing after failures.
func monitorLoop(cfg *config.Config, hub *api.WSHub, session *swappableSession) {
	for {
		ctx, err := pcsc.EstablishContext(pcsc.ScopeSystem)
		if err != nil {
			logging.Warn(logging.CatSession, "failed to reach smart card service", map[string]any{
				"error": err.Error(),
			})
			time.Sleep(cfg.ReconnectDelay)
			continue
		}

		session.set(api.NewSession(ctx))
		logging.Info(logging.CatSession, "connected to smart card service", nil)

		mon := monitor.New(ctx)
		go func() {
			for ev := range mon.Events() {
				logging.Info(logging.CatMonitor, "reader event", map[string]any{
					"type":   string(ev.Type),
					"reader": ev.Reader,
				})
				hub.BroadcastEvent(ev)
			}
		}()

		if err := mon.Run(); err != nil {
			logging.Error(logging.CatMonitor, "monitor stopped", map[string]any{
				"error": err.Error(),
			})
		}

		session.set(nil)
		ctx.Close()
		time.Sleep(cfg.ReconnectDelay)
	}
}
