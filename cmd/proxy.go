package cmd

import (
	"fmt"
	"vanisher/config"
	"vanisher/core"
	"vanisher/logger"

	"github.com/spf13/cobra"
)

var standaloneProxyPort string

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Manages the interception proxy (can be run standalone or as part of 'start')",
}

var proxyStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the interception proxy",
	Long: `Starts the MITM proxy that tags responses matching ignore rules with
Content-Type: text/css and an X-OFS-Vanisher header so they can be hidden via
MIME-type filtering. Configure your browser or the host proxy's upstream to use it.
A CA certificate must be generated (using 'proxy init-ca') and trusted by your client.`,
	Run: func(cmd *cobra.Command, args []string) {
		portToUse := standaloneProxyPort
		if !cmd.Flags().Changed("port") {
			portToUse = config.AppConfig.Proxy.Port
		}
		if portToUse == "" {
			portToUse = "8890"
		}

		caCertPath := config.AppConfig.Proxy.CACertPath
		caKeyPath := config.AppConfig.Proxy.CAKeyPath
		if caCertPath == "" || caKeyPath == "" {
			logger.Error("Proxy CA certificate or key path not configured. Check config or run 'proxy init-ca' first.")
			return
		}

		v, _, err := newVanisher(true)
		if err != nil {
			logger.ProxyError("Could not initialize rule store: %v", err)
			return
		}

		logger.ProxyInfo("Proxy using CA Cert: %s, CA Key: %s", caCertPath, caKeyPath)
		if err := core.StartMitmProxy(portToUse, caCertPath, caKeyPath, v, config.AppConfig.Proxy.MatchCache); err != nil {
			logger.ProxyError("Error starting proxy: %v", err)
		}
	},
}

var proxyInitCACmd = &cobra.Command{
	Use:   "init-ca",
	Short: "Initializes (generates) the root CA certificate and key for the interception proxy",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Initializing Proxy CA...")
		certPath := config.AppConfig.Proxy.CACertPath
		keyPath := config.AppConfig.Proxy.CAKeyPath

		if certPath == "" || keyPath == "" {
			logger.Error("CA certificate or key path is not defined in configuration.")
			return
		}

		if err := core.GenerateAndSaveCA(certPath, keyPath); err != nil {
			fmt.Printf("Error generating CA. Check logs for details: %v\n", err)
			return
		}
		fmt.Println("Please import the CA certificate (e.g., vanisher-ca.crt) into your browser/system's trust store.")
	},
}

func init() {
	proxyStartCmd.Flags().StringVarP(&standaloneProxyPort, "port", "p", "8890", "Port for the proxy server to listen on (overrides config)")

	proxyCmd.AddCommand(proxyStartCmd)
	proxyCmd.AddCommand(proxyInitCACmd)
	rootCmd.AddCommand(proxyCmd)
}
