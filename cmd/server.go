package cmd

import (
	"net/http"
	"vanisher/api"
	"vanisher/config"
	"vanisher/logger"

	"github.com/spf13/cobra"
)

var standaloneServerPort string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the rules API server (can be run standalone or as part of 'start')",
	Run: func(cmd *cobra.Command, args []string) {
		portToUse := standaloneServerPort
		if !cmd.Flags().Changed("port") {
			portToUse = config.AppConfig.Server.Port
		}
		if portToUse == "" {
			portToUse = "8891"
		}

		v, lister, err := newVanisher(true)
		if err != nil {
			logger.Fatal("Could not initialize rule store: %v", err)
			return
		}

		apiRouter := api.NewRouter(v, lister)
		mainMux := http.NewServeMux()
		mainMux.Handle("/api/", http.StripPrefix("/api", apiRouter))

		logger.Info("Rules API server starting on :%s", portToUse)
		if err := http.ListenAndServe(":"+portToUse, mainMux); err != nil {
			logger.Fatal("Could not start server: %v", err)
		}
	},
}

func init() {
	serverCmd.Flags().StringVarP(&standaloneServerPort, "port", "p", "8891", "Port for the API server to listen on (if run standalone)")
	rootCmd.AddCommand(serverCmd)
}
