package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"voiceprint-server-go/internal/bootstrap"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to VOICE_CONFIG or ./config.yaml)")
	flag.Parse()

	fmt.Printf("[%s] [INFO] [引导] 开始启动 voiceprint-server...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background(), *configPath); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "voiceprint-server failed: %v\n", err)
		os.Exit(1)
	}
}
