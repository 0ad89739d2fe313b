package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/minibit/relay/config"
	"github.com/minibit/relay/service"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	version        = "dev"
	defaultCfgPath = "/etc/relay"
)

func main() {
	service.SetupLogging("info", true)
	if len(os.Args) < 2 {
		log.Fatal().Msg("Didnt receive enough arguments, try adding 'run' or 'reload' after the command")
	}

	flags := flag.NewFlagSet("", flag.ExitOnError)
	cfgDir := flags.String("config", defaultCfgPath, "`Path` to be used as directory")
	flags.Parse(os.Args[2:])

	switch os.Args[1] {
	case "run":
		if err := service.Run(*cfgDir, version); err != nil {
			log.Fatal().Err(err).Msg("relay stopped")
		}
	case "reload":
		if err := callReloadAPI(*cfgDir); err != nil {
			log.Fatal().Err(err).Msg("reload failed")
		}
		log.Info().Msg("Finished reloading")
	default:
		log.Fatal().Str("command", os.Args[1]).Msg("unknown command, use 'run' or 'reload'")
	}
}

func callReloadAPI(configDir string) error {
	mainCfg, err := config.NewRelayConfigFileReader(configDir)()
	if err != nil {
		return errors.Wrapf(err, "reading main config in %s", configDir)
	}

	client := http.Client{Timeout: 10 * time.Second}
	url := fmt.Sprintf("http://%s/reload", mainCfg.APIBind)
	resp, err := client.Post(url, "text/plain", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("reload returned %s", resp.Status)
	}
	return nil
}
