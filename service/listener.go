package service

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/cloudflare/tableflip"
	"github.com/minibit/relay/config"
	"github.com/pires/go-proxyproto"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const pidFileName = "relay.pid"

type ListenFunc func(network, addr string) (net.Listener, error)

func useHotSwap(cfg config.RelayConfig, version string) bool {
	return cfg.UseTableflip && runtime.GOOS != "windows" && version != "docker"
}

// newUpgrader writes the pid file and upgrades the process on SIGHUP.
func newUpgrader(cfg config.RelayConfig, configDir string) (*tableflip.Upgrader, error) {
	pidFile := cfg.PidFile
	if pidFile == "" {
		pidFile = filepath.Join(configDir, pidFileName)
	}
	if _, err := os.Stat(pidFile); errors.Is(err, os.ErrNotExist) {
		pid := fmt.Sprint(os.Getpid())
		if err := os.WriteFile(pidFile, []byte(pid), 0644); err != nil {
			log.Warn().Err(err).Str("pidFile", pidFile).Msg("could not write pid file")
		}
	}
	upg, err := tableflip.New(tableflip.Options{
		PIDFile: pidFile,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating upgrader")
	}
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGHUP)
		for range sig {
			err := upg.Upgrade()
			if err != nil {
				log.Warn().Err(err).Msg("upgrade failed")
			}
		}
	}()
	return upg, nil
}

// wrapProxyProtocol makes the listener require a PROXY protocol header
// from every connection.
func wrapProxyProtocol(ln net.Listener) net.Listener {
	policyFunc := func(upstream net.Addr) (proxyproto.Policy, error) {
		return proxyproto.REQUIRE, nil
	}
	return &proxyproto.Listener{
		Listener: ln,
		Policy:   policyFunc,
	}
}

func createBridgeListener(cfg config.RelayConfig, listen ListenFunc) (net.Listener, error) {
	ln, err := listen("tcp", cfg.ListenTo)
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %s", cfg.ListenTo)
	}
	if cfg.AcceptProxyProtocol {
		return wrapProxyProtocol(ln), nil
	}
	return ln, nil
}
