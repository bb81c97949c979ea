package cmd

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"vanisher/api"
	"vanisher/config"
	"vanisher/core"
	"vanisher/logger"

	"github.com/spf13/cobra"
)

var (
	startServerPort string
	startProxyPort  string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts all vanisher services (rules API server and interception proxy)",
	Long: `Starts both the rules API server and the interception proxy concurrently,
sharing a single rule store so UI mutations are visible to the proxy immediately.
Press Ctrl+C to shut down.`,
	Run: func(cmd *cobra.Command, args []string) {
		actualServerPort := startServerPort
		if !cmd.Flags().Changed("server-port") {
			actualServerPort = config.AppConfig.Server.Port
		}
		if actualServerPort == "" {
			actualServerPort = "8891"
		}

		actualProxyPort := startProxyPort
		if !cmd.Flags().Changed("proxy-port") {
			actualProxyPort = config.AppConfig.Proxy.Port
		}
		if actualProxyPort == "" {
			actualProxyPort = "8890"
		}

		v, lister, err := newVanisher(true)
		if err != nil {
			logger.Fatal("Could not initialize rule store: %v", err)
			return
		}

		go func() {
			apiRouter := api.NewRouter(v, lister)
			mainMux := http.NewServeMux()
			mainMux.Handle("/api/", http.StripPrefix("/api", apiRouter))
			logger.Info("Rules API server starting on :%s", actualServerPort)
			if err := http.ListenAndServe(":"+actualServerPort, mainMux); err != nil {
				logger.Error("API server exited: %v", err)
			}
		}()

		go func() {
			caCertPath := config.AppConfig.Proxy.CACertPath
			caKeyPath := config.AppConfig.Proxy.CAKeyPath
			if err := core.StartMitmProxy(actualProxyPort, caCertPath, caKeyPath, v, config.AppConfig.Proxy.MatchCache); err != nil {
				logger.ProxyError("Interception proxy exited: %v", err)
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Received signal %v, shutting down.", sig)
	},
}

func init() {
	startCmd.Flags().StringVar(&startServerPort, "server-port", "8891", "Port for the API server")
	startCmd.Flags().StringVar(&startProxyPort, "proxy-port", "8890", "Port for the interception proxy")
	rootCmd.AddCommand(startCmd)
}
