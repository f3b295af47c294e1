package main

// @title           Notify Client Control API
// @version         1.0
// @description     Local control surface of the notification client
// @host            localhost:8090
// @BasePath        /api/v1
// @schemes         http

import (
	"fmt"
	"os"

	"notify-client/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
