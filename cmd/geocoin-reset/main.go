// geocoin-reset：清除已配置后端中的会话记录，下次启动时按生成器冷启动
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"geocoin/internal/config"
	"geocoin/internal/logger"
	"geocoin/internal/store"
)

func main() {
	var envFile string
	yes := false
	for i := 1; i < len(os.Args); i++ {
		switch {
		case os.Args[i] == "--env" && i+1 < len(os.Args):
			envFile = os.Args[i+1]
			i++
		case strings.HasSuffix(os.Args[i], ".env"):
			envFile = os.Args[i]
		case os.Args[i] == "--yes" || os.Args[i] == "-y":
			yes = true
		}
	}
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}
	l := logger.Setup()
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	if !yes {
		fmt.Printf("clear %q from %s backend? [y/N]: ", cfg.StoreKey, cfg.StoreBackend)
		s, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(s)); a != "y" && a != "yes" {
			fmt.Println("aborted")
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mgr, closeStore, err := store.Open(ctx, cfg.Store())
	if err != nil {
		fmt.Println("store error:", err)
		os.Exit(1)
	}
	defer closeStore()
	if err := mgr.Clear(ctx); err != nil {
		fmt.Println("clear error:", err)
		os.Exit(1)
	}
	l.Info("state_cleared", "backend", mgr.Backend(), "key", cfg.StoreKey)
	fmt.Println("cleared")
}
