package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"remoteops/cmd"
	"remoteops/config"
	"remoteops/internal/logging"
)

func main() {
	cnf, err := config.Load(config.EnvFileFromArgs(os.Args[1:]))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Setup(cnf.LogLevel, false)

	if err := cmd.Execute(cnf); err != nil {
		log.Debugf("Command failed: %v", err)
		os.Exit(1)
	}
}
